package eventmodels

import (
	"fmt"
	"strings"
	"time"
)

// NaiveTimeLayout is the wire format for exchange local timestamps. No
// offset is written: the exchange zone is implied by configuration.
const NaiveTimeLayout = "2006-01-02 15:04:05"

type QuoteBarDTO struct {
	Symbol      string  `json:"symbol"`
	Time        string  `json:"time"`
	EndTime     string  `json:"end_time,omitempty"`
	Period      string  `json:"period,omitempty"`
	Bid         *Bar    `json:"bid,omitempty"`
	Ask         *Bar    `json:"ask,omitempty"`
	LastBidSize float64 `json:"last_bid_size"`
	LastAskSize float64 `json:"last_ask_size"`
	Value       float64 `json:"value"`
}

func (dto *QuoteBarDTO) Validate() error {
	if dto.Time == "" {
		return fmt.Errorf("QuoteBarDTO: Validate: time is required")
	}

	if dto.Bid == nil && dto.Ask == nil {
		return fmt.Errorf("QuoteBarDTO: Validate: at least one of bid or ask is required")
	}

	return nil
}

func (dto *QuoteBarDTO) ToModel() (*QuoteBar, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := ParseNaiveTime(dto.Time)
	if err != nil {
		return nil, fmt.Errorf("QuoteBarDTO: ToModel: time: %w", err)
	}

	bar := &QuoteBar{
		Symbol:      NewSymbol(dto.Symbol),
		Time:        t,
		Bid:         dto.Bid.Clone(),
		Ask:         dto.Ask.Clone(),
		LastBidSize: dto.LastBidSize,
		LastAskSize: dto.LastAskSize,
		Value:       dto.Value,
	}

	if dto.EndTime != "" {
		bar.EndTime, err = ParseNaiveTime(dto.EndTime)
		if err != nil {
			return nil, fmt.Errorf("QuoteBarDTO: ToModel: end_time: %w", err)
		}

		if bar.EndTime.Before(bar.Time) {
			return nil, fmt.Errorf("QuoteBarDTO: ToModel: end_time %s is before time %s", dto.EndTime, dto.Time)
		}
	}

	if dto.Period != "" {
		bar.Period, err = ParsePeriod(dto.Period)
		if err != nil {
			return nil, fmt.Errorf("QuoteBarDTO: ToModel: period: %w", err)
		}

		if bar.Period < 0 {
			return nil, fmt.Errorf("QuoteBarDTO: ToModel: period %s is negative", dto.Period)
		}
	} else if !bar.EndTime.IsZero() {
		bar.Period = bar.EndTime.Sub(bar.Time)
	}

	return bar, nil
}

// ParseNaiveTime parses an exchange local timestamp. When the input carries an
// offset (RFC3339) the offset is dropped and only the wall clock is kept.
func ParseNaiveTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range []string{NaiveTimeLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseNaiveTime: unrecognized timestamp %q", value)
	}

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}
