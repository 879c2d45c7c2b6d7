package eventmodels

import "time"

// QuoteBar holds bid and ask ranges over a period. Either side may be nil
// when the source had no quotes for it.
//
// Time is the start of the bar. EndTime is optional: when it is zero the bar
// ends at Time + Period.
type QuoteBar struct {
	Symbol      Symbol
	Time        time.Time
	EndTime     time.Time
	Period      time.Duration
	Bid         *Bar
	Ask         *Bar
	LastBidSize float64
	LastAskSize float64
	Value       float64
}

func (q *QuoteBar) GetTime() time.Time {
	return q.Time
}

func (q *QuoteBar) GetEndTime() time.Time {
	if !q.EndTime.IsZero() {
		return q.EndTime
	}

	return q.Time.Add(q.Period)
}

func (q *QuoteBar) SetEndTime(t time.Time) {
	q.EndTime = t
}

func (q *QuoteBar) GetSymbol() Symbol {
	return q.Symbol
}

func (q *QuoteBar) GetOpen() float64 {
	return q.mid(func(b *Bar) float64 { return b.Open })
}

func (q *QuoteBar) GetHigh() float64 {
	return q.mid(func(b *Bar) float64 { return b.High })
}

func (q *QuoteBar) GetLow() float64 {
	return q.mid(func(b *Bar) float64 { return b.Low })
}

func (q *QuoteBar) GetClose() float64 {
	return q.mid(func(b *Bar) float64 { return b.Close })
}

// mid averages a field over the sides that are present.
func (q *QuoteBar) mid(field func(*Bar) float64) float64 {
	switch {
	case q.Bid != nil && q.Ask != nil:
		return (field(q.Bid) + field(q.Ask)) / 2
	case q.Bid != nil:
		return field(q.Bid)
	case q.Ask != nil:
		return field(q.Ask)
	default:
		return 0
	}
}

// Clone returns a deep copy. The bid and ask ranges are not shared.
func (q *QuoteBar) Clone() *QuoteBar {
	if q == nil {
		return nil
	}

	c := *q
	c.Bid = q.Bid.Clone()
	c.Ask = q.Ask.Clone()
	return &c
}

func (q *QuoteBar) ToDTO() *QuoteBarDTO {
	dto := &QuoteBarDTO{
		Symbol:      q.Symbol.String(),
		Time:        q.Time.Format(NaiveTimeLayout),
		Period:      q.Period.String(),
		Bid:         q.Bid.Clone(),
		Ask:         q.Ask.Clone(),
		LastBidSize: q.LastBidSize,
		LastAskSize: q.LastAskSize,
		Value:       q.Value,
	}

	if !q.EndTime.IsZero() {
		dto.EndTime = q.EndTime.Format(NaiveTimeLayout)
	}

	return dto
}
