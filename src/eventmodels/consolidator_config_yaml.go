package eventmodels

import (
	"fmt"
	"strings"
	"time"
)

type ConsolidatorYAML struct {
	Symbol            string `yaml:"symbol"`
	CloseTimeOfDay    string `yaml:"closeTimeOfDay"`
	CloseTimeZone     string `yaml:"closeTimeZone"`
	ExchangeTimeZone  string `yaml:"exchangeTimeZone"`
	CrossingTolerance string `yaml:"crossingTolerance"`
	CrossingField     string `yaml:"crossingField"`
}

func (c ConsolidatorYAML) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("ConsolidatorYAML: symbol is required")
	}

	if c.CloseTimeOfDay == "" {
		return fmt.Errorf("ConsolidatorYAML: %s: closeTimeOfDay is required", c.Symbol)
	}

	if c.CloseTimeZone == "" || c.ExchangeTimeZone == "" {
		return fmt.Errorf("ConsolidatorYAML: %s: closeTimeZone and exchangeTimeZone are required", c.Symbol)
	}

	return nil
}

type ConsolidatorConfigYAML struct {
	Consolidators []ConsolidatorYAML `yaml:"consolidators"`
	ProbeInterval string             `yaml:"probeInterval"`
}

func (c *ConsolidatorConfigYAML) GetConsolidator(symbol Symbol) (*ConsolidatorYAML, error) {
	for _, cfg := range c.Consolidators {
		if strings.EqualFold(cfg.Symbol, symbol.String()) {
			found := cfg
			return &found, nil
		}
	}

	return nil, fmt.Errorf("ConsolidatorConfigYAML: consolidator for %s not found", symbol)
}

// GetProbeInterval returns the configured probe interval, or defaultInterval
// when none is set.
func (c *ConsolidatorConfigYAML) GetProbeInterval(defaultInterval time.Duration) (time.Duration, error) {
	if c.ProbeInterval == "" {
		return defaultInterval, nil
	}

	d, err := time.ParseDuration(c.ProbeInterval)
	if err != nil {
		return 0, fmt.Errorf("ConsolidatorConfigYAML: probeInterval: %w", err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("ConsolidatorConfigYAML: probeInterval must be positive, found %v", d)
	}

	return d, nil
}

func (c *ConsolidatorConfigYAML) Validate() error {
	if len(c.Consolidators) == 0 {
		return fmt.Errorf("ConsolidatorConfigYAML: no consolidators configured")
	}

	seen := make(map[string]bool)
	for _, cfg := range c.Consolidators {
		if err := cfg.Validate(); err != nil {
			return err
		}

		key := strings.ToUpper(cfg.Symbol)
		if seen[key] {
			return fmt.Errorf("ConsolidatorConfigYAML: duplicate symbol %s", cfg.Symbol)
		}
		seen[key] = true
	}

	return nil
}
