package eventmodels

import "time"

// ConsolidatedBar is the read side shared by quote and trade bars. Quote bars
// report the mid of whichever sides are present.
type ConsolidatedBar interface {
	GetSymbol() Symbol
	GetTime() time.Time
	GetEndTime() time.Time
	GetOpen() float64
	GetHigh() float64
	GetLow() float64
	GetClose() float64
}

type ConsolidatedBarDTO struct {
	Symbol    string  `json:"symbol" csv:"symbol"`
	StartTime string  `json:"start_time" csv:"start_time"`
	EndTime   string  `json:"end_time" csv:"end_time"`
	Open      float64 `json:"open" csv:"open"`
	High      float64 `json:"high" csv:"high"`
	Low       float64 `json:"low" csv:"low"`
	Close     float64 `json:"close" csv:"close"`
}

func NewConsolidatedBarDTO(bar ConsolidatedBar) *ConsolidatedBarDTO {
	return &ConsolidatedBarDTO{
		Symbol:    bar.GetSymbol().String(),
		StartTime: bar.GetTime().Format(time.RFC3339),
		EndTime:   bar.GetEndTime().Format(time.RFC3339),
		Open:      bar.GetOpen(),
		High:      bar.GetHigh(),
		Low:       bar.GetLow(),
		Close:     bar.GetClose(),
	}
}
