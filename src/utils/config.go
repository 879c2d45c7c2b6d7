package utils

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

func LoadConsolidatorConfig(path string) (*eventmodels.ConsolidatorConfigYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadConsolidatorConfig: failed to read %s: %w", path, err)
	}

	return ParseConsolidatorConfig(data)
}

func ParseConsolidatorConfig(data []byte) (*eventmodels.ConsolidatorConfigYAML, error) {
	var config eventmodels.ConsolidatorConfigYAML
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ParseConsolidatorConfig: failed to unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("ParseConsolidatorConfig: %w", err)
	}

	return &config, nil
}

// NewSchedule builds the close schedule described by cfg.
func NewSchedule(cfg *eventmodels.ConsolidatorYAML) (*consolidator.Schedule, error) {
	closeTimeOfDay, err := consolidator.ParseTimeOfDay(cfg.CloseTimeOfDay)
	if err != nil {
		return nil, fmt.Errorf("NewSchedule: %s: %w", cfg.Symbol, err)
	}

	schedule, err := consolidator.NewSchedule(closeTimeOfDay, cfg.CloseTimeZone, cfg.ExchangeTimeZone)
	if err != nil {
		return nil, fmt.Errorf("NewSchedule: %s: %w", cfg.Symbol, err)
	}

	return schedule, nil
}

// ConsolidatorOptions converts the optional crossing settings of cfg.
func ConsolidatorOptions(cfg *eventmodels.ConsolidatorYAML) ([]consolidator.Option, error) {
	var opts []consolidator.Option

	if cfg.CrossingTolerance != "" {
		tolerance, err := time.ParseDuration(cfg.CrossingTolerance)
		if err != nil {
			return nil, fmt.Errorf("ConsolidatorOptions: %s: crossingTolerance: %w", cfg.Symbol, err)
		}

		opts = append(opts, consolidator.WithCrossingTolerance(tolerance))
	}

	field, err := consolidator.ParseCrossingField(cfg.CrossingField)
	if err != nil {
		return nil, fmt.Errorf("ConsolidatorOptions: %s: %w", cfg.Symbol, err)
	}

	return append(opts, consolidator.WithCrossingField(field)), nil
}

func NewQuoteBarConsolidator(cfg *eventmodels.ConsolidatorYAML) (*consolidator.DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar], error) {
	schedule, err := NewSchedule(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := ConsolidatorOptions(cfg)
	if err != nil {
		return nil, err
	}

	return consolidator.NewDailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar](schedule, consolidator.QuoteBarAggregator{}, opts...)
}

func NewTradeBarConsolidator(cfg *eventmodels.ConsolidatorYAML) (*consolidator.DailyConsolidator[*eventmodels.TradeBar, *eventmodels.TradeBar], error) {
	schedule, err := NewSchedule(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := ConsolidatorOptions(cfg)
	if err != nil {
		return nil, err
	}

	return consolidator.NewDailyConsolidator[*eventmodels.TradeBar, *eventmodels.TradeBar](schedule, consolidator.TradeBarAggregator{}, opts...)
}
