package eventmodels

import "time"

type TradeBar struct {
	Symbol  Symbol
	Time    time.Time
	EndTime time.Time
	Period  time.Duration
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
}

func (b *TradeBar) GetTime() time.Time {
	return b.Time
}

func (b *TradeBar) GetEndTime() time.Time {
	if !b.EndTime.IsZero() {
		return b.EndTime
	}

	return b.Time.Add(b.Period)
}

func (b *TradeBar) SetEndTime(t time.Time) {
	b.EndTime = t
}

func (b *TradeBar) GetSymbol() Symbol {
	return b.Symbol
}

func (b *TradeBar) GetOpen() float64 {
	return b.Open
}

func (b *TradeBar) GetHigh() float64 {
	return b.High
}

func (b *TradeBar) GetLow() float64 {
	return b.Low
}

func (b *TradeBar) GetClose() float64 {
	return b.Close
}

func (b *TradeBar) Clone() *TradeBar {
	if b == nil {
		return nil
	}

	c := *b
	return &c
}
