package eventmodels

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuoteBarCSVDTO is one row of a quote bar file. Prices are kept as strings
// so that an empty bid or ask group can be told apart from a zero price.
type QuoteBarCSVDTO struct {
	Symbol      string `csv:"symbol"`
	Time        string `csv:"time"`
	EndTime     string `csv:"end_time"`
	Period      string `csv:"period"`
	BidOpen     string `csv:"bid_open"`
	BidHigh     string `csv:"bid_high"`
	BidLow      string `csv:"bid_low"`
	BidClose    string `csv:"bid_close"`
	AskOpen     string `csv:"ask_open"`
	AskHigh     string `csv:"ask_high"`
	AskLow      string `csv:"ask_low"`
	AskClose    string `csv:"ask_close"`
	LastBidSize string `csv:"last_bid_size"`
	LastAskSize string `csv:"last_ask_size"`
	Value       string `csv:"value"`
}

func (c *QuoteBarCSVDTO) ToModel() (*QuoteBar, error) {
	bid, err := parseSide("bid", c.BidOpen, c.BidHigh, c.BidLow, c.BidClose)
	if err != nil {
		return nil, fmt.Errorf("QuoteBarCSVDTO: ToModel: %w", err)
	}

	ask, err := parseSide("ask", c.AskOpen, c.AskHigh, c.AskLow, c.AskClose)
	if err != nil {
		return nil, fmt.Errorf("QuoteBarCSVDTO: ToModel: %w", err)
	}

	dto := QuoteBarDTO{
		Symbol:  c.Symbol,
		Time:    c.Time,
		EndTime: c.EndTime,
		Period:  c.Period,
		Bid:     bid,
		Ask:     ask,
	}

	if dto.LastBidSize, err = parseOptionalFloat(c.LastBidSize); err != nil {
		return nil, fmt.Errorf("QuoteBarCSVDTO: ToModel: last_bid_size: %w", err)
	}

	if dto.LastAskSize, err = parseOptionalFloat(c.LastAskSize); err != nil {
		return nil, fmt.Errorf("QuoteBarCSVDTO: ToModel: last_ask_size: %w", err)
	}

	if dto.Value, err = parseOptionalFloat(c.Value); err != nil {
		return nil, fmt.Errorf("QuoteBarCSVDTO: ToModel: value: %w", err)
	}

	return dto.ToModel()
}

func NewQuoteBarCSVDTO(bar *QuoteBar) *QuoteBarCSVDTO {
	dto := &QuoteBarCSVDTO{
		Symbol:      bar.Symbol.String(),
		Time:        bar.Time.Format(NaiveTimeLayout),
		LastBidSize: formatFloat(bar.LastBidSize),
		LastAskSize: formatFloat(bar.LastAskSize),
		Value:       formatFloat(bar.Value),
	}

	if bar.Period > 0 {
		dto.Period = bar.Period.String()
	}

	if !bar.EndTime.IsZero() {
		dto.EndTime = bar.EndTime.Format(NaiveTimeLayout)
	}

	if bar.Bid != nil {
		dto.BidOpen, dto.BidHigh, dto.BidLow, dto.BidClose = formatFloat(bar.Bid.Open), formatFloat(bar.Bid.High), formatFloat(bar.Bid.Low), formatFloat(bar.Bid.Close)
	}

	if bar.Ask != nil {
		dto.AskOpen, dto.AskHigh, dto.AskLow, dto.AskClose = formatFloat(bar.Ask.Open), formatFloat(bar.Ask.High), formatFloat(bar.Ask.Low), formatFloat(bar.Ask.Close)
	}

	return dto
}

func parseSide(name string, open, high, low, closePrice string) (*Bar, error) {
	fields := []string{open, high, low, closePrice}

	empty := 0
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			empty++
		}
	}

	if empty == len(fields) {
		return nil, nil
	}

	if empty > 0 {
		return nil, fmt.Errorf("%s: open, high, low and close must all be set or all be empty", name)
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		values[i] = v
	}

	return &Bar{Open: values[0], High: values[1], Low: values[2], Close: values[3]}, nil
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	return strconv.ParseFloat(value, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePeriod accepts Go durations ("1m", "1h30m") and bare seconds ("60").
func ParsePeriod(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return time.ParseDuration(value)
}
