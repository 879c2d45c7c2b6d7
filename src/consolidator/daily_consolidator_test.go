package consolidator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

type quoteEvent = BarConsolidatedEvent[*eventmodels.QuoteBar]

func newQuoteConsolidator(t *testing.T, closeTimeOfDay time.Duration, closeTimeZone, exchangeTimeZone string, opts ...Option) (*DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar], *[]quoteEvent) {
	c, err := NewQuoteBarConsolidator(closeTimeOfDay, closeTimeZone, exchangeTimeZone, opts...)
	require.NoError(t, err)

	events := &[]quoteEvent{}
	c.Subscribe(func(ev quoteEvent) {
		*events = append(*events, ev)
	})

	return c, events
}

// naive builds a wall clock timestamp with no meaningful zone.
func naive(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

func quoteAt(t time.Time, price float64) *eventmodels.QuoteBar {
	return &eventmodels.QuoteBar{
		Symbol: "EURUSD",
		Time:   t,
		Bid:    eventmodels.NewBar(price),
		Ask:    eventmodels.NewBar(price + 0.0002),
		Value:  price + 0.0001,
	}
}

func TestDailyConsolidatorScenario(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")

	t.Run("london close with new york exchange emits once per day in winter", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		for day := 15; day <= 16; day++ {
			for hour := 0; hour < 24; hour++ {
				c.OnObservation(quoteAt(naive(2024, time.January, day, hour, 0, 0), 1.1))
			}
		}

		require.Len(t, *events, 2)

		first, second := (*events)[0], (*events)[1]
		requireSameInstant(t, time.Date(2024, time.January, 14, 22, 0, 0, 0, ny), first.StartTime)
		requireSameInstant(t, time.Date(2024, time.January, 15, 22, 0, 0, 0, ny), first.EndTime)
		requireSameInstant(t, time.Date(2024, time.January, 15, 22, 0, 0, 0, ny), first.Bar.EndTime)
		requireSameInstant(t, time.Date(2024, time.January, 15, 22, 0, 0, 0, ny), second.StartTime)
		requireSameInstant(t, time.Date(2024, time.January, 16, 22, 0, 0, 0, ny), second.EndTime)

		assert.Equal(t, "America/New_York", first.EndTime.Location().String())
		assert.Equal(t, 22, first.EndTime.Hour())

		snapshot, ok := c.Snapshot()
		require.True(t, ok)
		requireSameInstant(t, time.Date(2024, time.January, 16, 22, 0, 0, 0, ny), snapshot.Time)
	})

	t.Run("close moves to 23:00 new york while only us dst is in effect", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		for day := 12; day <= 13; day++ {
			for hour := 0; hour < 24; hour++ {
				c.OnObservation(quoteAt(naive(2024, time.March, day, hour, 0, 0), 1.1))
			}
		}

		require.Len(t, *events, 2)
		requireSameInstant(t, time.Date(2024, time.March, 12, 23, 0, 0, 0, ny), (*events)[0].EndTime)
		requireSameInstant(t, time.Date(2024, time.March, 13, 23, 0, 0, 0, ny), (*events)[1].EndTime)
	})

	hourly := func(c *DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar], month time.Month, fromDay, toDay int) {
		for day := fromDay; day <= toDay; day++ {
			for hour := 0; hour < 24; hour++ {
				c.OnObservation(quoteAt(naive(2024, month, day, hour, 0, 0), 1.1))
			}
		}
	}

	t.Run("new york spring forward keeps one bar per london day", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		hourly(c, time.March, 9, 11)

		require.Len(t, *events, 3)
		requireSameInstant(t, time.Date(2024, time.March, 9, 22, 0, 0, 0, ny), (*events)[0].EndTime)
		requireSameInstant(t, time.Date(2024, time.March, 10, 23, 0, 0, 0, ny), (*events)[1].EndTime)
		requireSameInstant(t, time.Date(2024, time.March, 11, 23, 0, 0, 0, ny), (*events)[2].EndTime)

		assert.Equal(t, 22, (*events)[0].EndTime.Hour())
		assert.Equal(t, 23, (*events)[1].EndTime.Hour())

		for i := 1; i < len(*events); i++ {
			requireSameInstant(t, (*events)[i-1].EndTime, (*events)[i].StartTime)
			assert.Equal(t, 24*time.Hour, (*events)[i].EndTime.Sub((*events)[i-1].EndTime))
		}
	})

	t.Run("new york fall back keeps one bar per london day", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		hourly(c, time.November, 2, 4)

		require.Len(t, *events, 3)
		requireSameInstant(t, time.Date(2024, time.November, 2, 23, 0, 0, 0, ny), (*events)[0].EndTime)
		requireSameInstant(t, time.Date(2024, time.November, 3, 22, 0, 0, 0, ny), (*events)[1].EndTime)
		requireSameInstant(t, time.Date(2024, time.November, 4, 22, 0, 0, 0, ny), (*events)[2].EndTime)

		assert.Equal(t, 23, (*events)[0].EndTime.Hour())
		assert.Equal(t, 22, (*events)[1].EndTime.Hour())

		for i := 1; i < len(*events); i++ {
			requireSameInstant(t, (*events)[i-1].EndTime, (*events)[i].StartTime)
			assert.Equal(t, 24*time.Hour, (*events)[i].EndTime.Sub((*events)[i-1].EndTime))
		}
	})
}

func TestDailyConsolidatorDST(t *testing.T) {
	feed := func(c *DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar], from, to time.Time, step time.Duration) {
		for ts := from; !ts.After(to); ts = ts.Add(step) {
			c.OnObservation(quoteAt(ts, 1.25))
		}
	}

	t.Run("spring forward emits once per day with a 23 hour day", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "UTC")

		feed(c, naive(2024, time.March, 29, 12, 0, 0), naive(2024, time.April, 1, 12, 0, 0), 10*time.Minute)

		require.Len(t, *events, 3)
		requireSameInstant(t, time.Date(2024, time.March, 30, 3, 0, 0, 0, time.UTC), (*events)[0].EndTime)
		requireSameInstant(t, time.Date(2024, time.March, 31, 2, 0, 0, 0, time.UTC), (*events)[1].EndTime)
		requireSameInstant(t, time.Date(2024, time.April, 1, 2, 0, 0, 0, time.UTC), (*events)[2].EndTime)

		assert.Equal(t, 23*time.Hour, (*events)[1].EndTime.Sub((*events)[0].EndTime))
		assert.Equal(t, 24*time.Hour, (*events)[2].EndTime.Sub((*events)[1].EndTime))
	})

	t.Run("fall back emits once per day with a 25 hour day", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "UTC")

		feed(c, naive(2024, time.October, 25, 12, 0, 0), naive(2024, time.October, 28, 12, 0, 0), 10*time.Minute)

		require.Len(t, *events, 3)
		requireSameInstant(t, time.Date(2024, time.October, 26, 2, 0, 0, 0, time.UTC), (*events)[0].EndTime)
		requireSameInstant(t, time.Date(2024, time.October, 27, 3, 0, 0, 0, time.UTC), (*events)[1].EndTime)
		requireSameInstant(t, time.Date(2024, time.October, 28, 3, 0, 0, 0, time.UTC), (*events)[2].EndTime)

		assert.Equal(t, 25*time.Hour, (*events)[1].EndTime.Sub((*events)[0].EndTime))
	})

	t.Run("consecutive bars are contiguous", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "UTC")

		feed(c, naive(2024, time.March, 29, 12, 0, 0), naive(2024, time.April, 3, 12, 0, 0), 10*time.Minute)

		require.Len(t, *events, 5)
		for i := 1; i < len(*events); i++ {
			prev, next := (*events)[i-1], (*events)[i]
			requireSameInstant(t, prev.EndTime, next.StartTime)
			requireSameInstant(t, next.Bar.Time, next.StartTime)
			assert.True(t, next.EndTime.After(next.StartTime))
		}
	})
}

func TestDailyConsolidatorTimeProbe(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")

	t.Run("probe without a working bar does nothing", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		assert.False(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 0)))
		assert.Empty(t, *events)
	})

	t.Run("probe emits a quiet day at the boundary", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		assert.False(t, c.OnTimeProbe(naive(2024, time.January, 15, 21, 59, 0)))
		assert.True(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 15)))

		require.Len(t, *events, 1)
		requireSameInstant(t, time.Date(2024, time.January, 15, 22, 0, 0, 0, ny), (*events)[0].EndTime)
		requireSameInstant(t, (*events)[0].EndTime, c.LastEmittedAt())
	})

	t.Run("repeated probes after an emission do nothing", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		assert.True(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 0)))
		assert.False(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 0)))
		assert.False(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 20)))

		require.Len(t, *events, 1)
	})

	t.Run("probe outside the tolerance misses the boundary", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		assert.False(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 31)))
		assert.Empty(t, *events)

		_, ok := c.Snapshot()
		assert.True(t, ok)
	})

	t.Run("tolerance is inclusive", func(t *testing.T) {
		c, _ := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		assert.True(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 30)))
	})

	t.Run("zero tolerance requires an exact boundary", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York", WithCrossingTolerance(0))
		assert.Equal(t, time.Duration(0), c.CrossingTolerance())

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		assert.False(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 1)))
		assert.True(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 0)))
		require.Len(t, *events, 1)
	})
}

func TestDailyConsolidatorObservation(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")

	t.Run("late observations are not folded", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		result := c.OnObservation(quoteAt(naive(2024, time.January, 15, 22, 0, 0), 1.2))
		assert.True(t, result.Folded)
		assert.True(t, result.Emitted)

		result = c.OnObservation(quoteAt(naive(2024, time.January, 15, 21, 0, 0), 5.0))
		assert.False(t, result.Folded)
		assert.False(t, result.Emitted)

		_, ok := c.Snapshot()
		assert.False(t, ok)
		require.Len(t, *events, 1)
		assert.Equal(t, 1.2, (*events)[0].Bar.Bid.Close)
	})

	t.Run("observation at the last emission time starts a new bar without emitting", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		c.OnObservation(quoteAt(naive(2024, time.January, 15, 22, 0, 0), 1.2))

		result := c.OnObservation(quoteAt(naive(2024, time.January, 15, 22, 0, 0), 1.3))
		assert.True(t, result.Folded)
		assert.False(t, result.Emitted)
		require.Len(t, *events, 1)

		snapshot, ok := c.Snapshot()
		require.True(t, ok)
		requireSameInstant(t, time.Date(2024, time.January, 15, 22, 0, 0, 0, ny), snapshot.Time)
		assert.Equal(t, 1.3, snapshot.Bid.Close)
	})

	t.Run("end time governs the crossing by default", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")
		assert.Equal(t, CrossingOnEndTime, c.CrossingField())

		bar := quoteAt(naive(2024, time.January, 15, 21, 0, 0), 1.1)
		bar.Period = time.Hour

		result := c.OnObservation(bar)
		assert.True(t, result.Emitted)
		require.Len(t, *events, 1)
		requireSameInstant(t, time.Date(2024, time.January, 15, 22, 0, 0, 0, ny), (*events)[0].EndTime)
		assert.Equal(t, time.Hour, (*events)[0].Bar.Period)
	})

	t.Run("start time can govern the crossing", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York", WithCrossingField(CrossingOnStartTime))

		bar := quoteAt(naive(2024, time.January, 15, 21, 59, 0), 1.1)
		bar.Period = time.Minute
		assert.False(t, c.OnObservation(bar).Emitted)

		bar = quoteAt(naive(2024, time.January, 15, 22, 0, 0), 1.1)
		bar.Period = time.Minute
		assert.True(t, c.OnObservation(bar).Emitted)

		require.Len(t, *events, 1)
	})

	t.Run("invalid crossing field fails construction", func(t *testing.T) {
		_, err := NewQuoteBarConsolidator(3*time.Hour, "Europe/London", "America/New_York", WithCrossingField("middle"))
		require.ErrorIs(t, err, ErrInvalidCrossingField)
	})

	t.Run("unknown timezone fails construction", func(t *testing.T) {
		_, err := NewQuoteBarConsolidator(3*time.Hour, "Europe/Atlantis", "America/New_York")
		require.ErrorIs(t, err, ErrUnknownTimezone)
	})

	t.Run("duplicate observations at the boundary emit once", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		for i := 0; i < 3; i++ {
			c.OnObservation(quoteAt(naive(2024, time.January, 15, 22, 0, 0), 1.1))
			c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 10))
		}

		require.Len(t, *events, 1)
	})
}

func TestDailyConsolidatorAggregation(t *testing.T) {
	t.Run("bid ranges merge into one daily bar", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		inputs := []struct {
			hour                   int
			open, high, low, close float64
		}{
			{9, 1.07, 1.1, 1.05, 1.08},
			{12, 1.09, 1.3, 1.15, 1.2},
			{15, 1.19, 1.2, 1.0, 1.12},
		}

		for _, in := range inputs {
			c.OnObservation(&eventmodels.QuoteBar{
				Symbol:      "EURUSD",
				Time:        naive(2024, time.January, 15, in.hour, 0, 0),
				Bid:         &eventmodels.Bar{Open: in.open, High: in.high, Low: in.low, Close: in.close},
				LastBidSize: float64(in.hour),
				Value:       in.close,
			})
		}

		require.True(t, c.OnTimeProbe(naive(2024, time.January, 15, 22, 0, 0)))
		require.Len(t, *events, 1)

		bar := (*events)[0].Bar
		require.NotNil(t, bar.Bid)
		assert.Nil(t, bar.Ask)
		assert.Equal(t, 1.07, bar.Bid.Open)
		assert.Equal(t, 1.3, bar.Bid.High)
		assert.Equal(t, 1.0, bar.Bid.Low)
		assert.Equal(t, 1.12, bar.Bid.Close)
		assert.Equal(t, 15.0, bar.LastBidSize)
		assert.Equal(t, 1.12, bar.Value)
		assert.Equal(t, eventmodels.Symbol("EURUSD"), bar.Symbol)
	})

	t.Run("emitted bars are not touched by later observations", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))
		c.OnObservation(quoteAt(naive(2024, time.January, 15, 22, 0, 0), 1.2))
		require.Len(t, *events, 1)

		emitted := (*events)[0].Bar
		c.OnObservation(quoteAt(naive(2024, time.January, 15, 23, 0, 0), 9.9))
		c.OnObservation(quoteAt(naive(2024, time.January, 16, 1, 0, 0), 0.1))

		assert.Equal(t, 1.2, emitted.Bid.High)
		assert.Equal(t, 1.1, emitted.Bid.Low)
		assert.Equal(t, 1.2, emitted.Bid.Close)
	})
}

func TestDailyConsolidatorSnapshot(t *testing.T) {
	t.Run("absent before the first observation", func(t *testing.T) {
		c, _ := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		snapshot, ok := c.Snapshot()
		assert.False(t, ok)
		assert.Nil(t, snapshot)
	})

	t.Run("snapshot is a deep copy", func(t *testing.T) {
		c, _ := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")
		c.OnObservation(quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1))

		snapshot, ok := c.Snapshot()
		require.True(t, ok)
		snapshot.Bid.High = 99
		snapshot.Value = 99

		again, ok := c.Snapshot()
		require.True(t, ok)
		assert.Equal(t, 1.1, again.Bid.High)
		assert.InDelta(t, 1.1001, again.Value, 1e-9)
	})

	t.Run("observations are not aliased by the working bar", func(t *testing.T) {
		c, _ := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		first := quoteAt(naive(2024, time.January, 15, 10, 0, 0), 1.1)
		c.OnObservation(first)
		first.Bid.High = 42

		second := quoteAt(naive(2024, time.January, 15, 11, 0, 0), 1.3)
		c.OnObservation(second)
		assert.Equal(t, 1.3, second.Bid.High)
		assert.Equal(t, 1.3, second.Bid.Low)

		snapshot, ok := c.Snapshot()
		require.True(t, ok)
		assert.Equal(t, 1.3, snapshot.Bid.High)
		assert.Equal(t, 1.1, snapshot.Bid.Low)
	})
}

func TestDailyConsolidatorSubscriptions(t *testing.T) {
	emitOne := func(c *DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar], day int) {
		c.OnObservation(quoteAt(naive(2024, time.January, day, 10, 0, 0), 1.1))
		c.OnTimeProbe(naive(2024, time.January, day, 22, 0, 0))
	}

	t.Run("listeners run in registration order", func(t *testing.T) {
		c, err := NewQuoteBarConsolidator(3*time.Hour, "Europe/London", "America/New_York")
		require.NoError(t, err)

		var calls []string
		c.Subscribe(func(quoteEvent) { calls = append(calls, "first") })
		c.Subscribe(func(quoteEvent) { calls = append(calls, "second") })

		emitOne(c, 15)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("unsubscribed listeners are not called", func(t *testing.T) {
		c, err := NewQuoteBarConsolidator(3*time.Hour, "Europe/London", "America/New_York")
		require.NoError(t, err)

		var calls []string
		id := c.Subscribe(func(quoteEvent) { calls = append(calls, "first") })
		c.Subscribe(func(quoteEvent) { calls = append(calls, "second") })

		emitOne(c, 15)
		require.NoError(t, c.Unsubscribe(id))
		emitOne(c, 16)

		assert.Equal(t, []string{"first", "second", "second"}, calls)
	})

	t.Run("unsubscribing an unknown id fails", func(t *testing.T) {
		c, err := NewQuoteBarConsolidator(3*time.Hour, "Europe/London", "America/New_York")
		require.NoError(t, err)

		id := c.Subscribe(func(quoteEvent) {})
		require.NoError(t, c.Unsubscribe(id))
		require.ErrorIs(t, c.Unsubscribe(id), ErrSubscriptionNotFound)
	})

	t.Run("each event has its own id", func(t *testing.T) {
		c, events := newQuoteConsolidator(t, 3*time.Hour, "Europe/London", "America/New_York")

		emitOne(c, 15)
		emitOne(c, 16)

		require.Len(t, *events, 2)
		assert.NotEqual(t, (*events)[0].ID, (*events)[1].ID)
	})
}
