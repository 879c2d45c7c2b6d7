package consolidator

import (
	"time"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

// QuoteBarAggregator merges bid and ask ranges. A side missing from an
// observation leaves the same side of the working bar untouched.
type QuoteBarAggregator struct{}

func (QuoteBarAggregator) Start(obs *eventmodels.QuoteBar, start time.Time) *eventmodels.QuoteBar {
	return &eventmodels.QuoteBar{
		Symbol:      obs.Symbol,
		Time:        start,
		Period:      obs.Period,
		Bid:         obs.Bid.Clone(),
		Ask:         obs.Ask.Clone(),
		LastBidSize: obs.LastBidSize,
		LastAskSize: obs.LastAskSize,
		Value:       obs.Value,
	}
}

func (QuoteBarAggregator) Merge(working *eventmodels.QuoteBar, obs *eventmodels.QuoteBar) *eventmodels.QuoteBar {
	if obs.Bid != nil {
		working.Bid = mergeSide(working.Bid, obs.Bid)
		working.LastBidSize = obs.LastBidSize
	}

	if obs.Ask != nil {
		working.Ask = mergeSide(working.Ask, obs.Ask)
		working.LastAskSize = obs.LastAskSize
	}

	working.Period += obs.Period
	working.Value = obs.Value

	return working
}

func mergeSide(working, obs *eventmodels.Bar) *eventmodels.Bar {
	if working == nil {
		return obs.Clone()
	}

	working.Update(obs)
	return working
}

func NewQuoteBarConsolidator(closeTimeOfDay time.Duration, closeTimeZone, exchangeTimeZone string, opts ...Option) (*DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar], error) {
	schedule, err := NewSchedule(closeTimeOfDay, closeTimeZone, exchangeTimeZone)
	if err != nil {
		return nil, err
	}

	return NewDailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar](schedule, QuoteBarAggregator{}, opts...)
}
