package consolidator

import (
	"time"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

// TradeBarAggregator builds an OHLCV bar: first open, highest high, lowest
// low, last close and summed volume.
type TradeBarAggregator struct{}

func (TradeBarAggregator) Start(obs *eventmodels.TradeBar, start time.Time) *eventmodels.TradeBar {
	bar := obs.Clone()
	bar.Time = start
	bar.EndTime = time.Time{}
	return bar
}

func (TradeBarAggregator) Merge(working *eventmodels.TradeBar, obs *eventmodels.TradeBar) *eventmodels.TradeBar {
	if obs.High > working.High {
		working.High = obs.High
	}

	if obs.Low < working.Low {
		working.Low = obs.Low
	}

	working.Close = obs.Close
	working.Volume += obs.Volume
	working.Period += obs.Period

	return working
}

func NewTradeBarConsolidator(closeTimeOfDay time.Duration, closeTimeZone, exchangeTimeZone string, opts ...Option) (*DailyConsolidator[*eventmodels.TradeBar, *eventmodels.TradeBar], error) {
	schedule, err := NewSchedule(closeTimeOfDay, closeTimeZone, exchangeTimeZone)
	if err != nil {
		return nil, err
	}

	return NewDailyConsolidator[*eventmodels.TradeBar, *eventmodels.TradeBar](schedule, TradeBarAggregator{}, opts...)
}
