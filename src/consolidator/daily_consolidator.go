package consolidator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DailyConsolidator folds observations into one bar per close zone calendar
// day and emits the bar when the configured close time is reached.
//
// It is not safe for concurrent use. Drive each instance from one goroutine,
// or serialize calls externally.
type DailyConsolidator[O Observation, R Record[R]] struct {
	schedule      *Schedule
	aggregator    Aggregator[O, R]
	tolerance     time.Duration
	crossingField CrossingField

	working      R
	accumulating bool
	lastEmit     time.Time

	subscriptions []subscription[R]
}

// ObservationResult reports what OnObservation did with an observation.
// Folded is false for observations older than the last emitted bar.
type ObservationResult struct {
	Folded  bool
	Emitted bool
}

func NewDailyConsolidator[O Observation, R Record[R]](schedule *Schedule, aggregator Aggregator[O, R], opts ...Option) (*DailyConsolidator[O, R], error) {
	if schedule == nil {
		return nil, fmt.Errorf("NewDailyConsolidator: schedule is nil")
	}

	if aggregator == nil {
		return nil, fmt.Errorf("NewDailyConsolidator: aggregator is nil")
	}

	o, err := newOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("NewDailyConsolidator: %w", err)
	}

	return &DailyConsolidator[O, R]{
		schedule:      schedule,
		aggregator:    aggregator,
		tolerance:     o.tolerance,
		crossingField: o.crossingField,
	}, nil
}

// OnObservation folds obs into the working bar, unless obs is older than the
// last emitted bar, and then emits the working bar if obs reaches a close
// boundary. Timestamps on obs are read as exchange local wall clock times.
func (c *DailyConsolidator[O, R]) OnObservation(obs O) ObservationResult {
	var result ObservationResult

	obsTime := c.schedule.ToExchangeTime(obs.GetTime())
	if !obsTime.Before(c.lastEmit) {
		c.fold(obs, obsTime)
		result.Folded = true
	}

	t := obsTime
	if c.crossingField == CrossingOnEndTime {
		t = c.schedule.ToExchangeTime(obs.GetEndTime())
	}

	result.Emitted = c.scan(t)
	return result
}

// OnTimeProbe emits the working bar if currentTime, an exchange local wall
// clock time, reaches a close boundary. It does nothing while no bar is being
// accumulated.
func (c *DailyConsolidator[O, R]) OnTimeProbe(currentTime time.Time) bool {
	return c.scan(c.schedule.ToExchangeTime(currentTime))
}

func (c *DailyConsolidator[O, R]) fold(obs O, obsTime time.Time) {
	if c.accumulating {
		c.working = c.aggregator.Merge(c.working, obs)
		return
	}

	start := c.schedule.BoundaryAtOrBefore(obsTime).In(c.schedule.ExchangeLocation())
	c.working = c.aggregator.Start(obs, start)
	c.accumulating = true
}

func (c *DailyConsolidator[O, R]) scan(t time.Time) bool {
	if !c.accumulating {
		return false
	}

	shouldHaveEmittedAt := c.schedule.BoundaryAtOrBefore(t)
	if !approximatelyEqual(t, shouldHaveEmittedAt, c.tolerance) {
		return false
	}

	// the bar already started at or after this boundary
	start := c.schedule.ToExchangeTime(c.working.GetTime())
	if !shouldHaveEmittedAt.After(start) {
		return false
	}

	c.emit(shouldHaveEmittedAt.In(c.schedule.ExchangeLocation()))
	return true
}

func (c *DailyConsolidator[O, R]) emit(endTime time.Time) {
	bar := c.working
	bar.SetEndTime(endTime)

	var zero R
	c.working = zero
	c.accumulating = false
	c.lastEmit = endTime

	event := BarConsolidatedEvent[R]{
		ID:        uuid.New(),
		StartTime: c.schedule.ToExchangeTime(bar.GetTime()),
		EndTime:   endTime,
		Bar:       bar,
	}

	for _, sub := range c.subscriptions {
		sub.listener(event)
	}
}

func approximatelyEqual(a, b time.Time, tolerance time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}

	return d <= tolerance
}

// Subscribe registers listener and returns an id for Unsubscribe. Listeners
// are called in registration order. They must not subscribe or unsubscribe
// from inside their own callback.
func (c *DailyConsolidator[O, R]) Subscribe(listener Listener[R]) uuid.UUID {
	id := uuid.New()
	c.subscriptions = append(c.subscriptions, subscription[R]{id: id, listener: listener})
	return id
}

func (c *DailyConsolidator[O, R]) Unsubscribe(id uuid.UUID) error {
	for i, sub := range c.subscriptions {
		if sub.id == id {
			subscriptions := make([]subscription[R], 0, len(c.subscriptions)-1)
			subscriptions = append(subscriptions, c.subscriptions[:i]...)
			c.subscriptions = append(subscriptions, c.subscriptions[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("DailyConsolidator.Unsubscribe: %v: %w", id, ErrSubscriptionNotFound)
}

// Snapshot returns a deep copy of the working bar, if there is one.
func (c *DailyConsolidator[O, R]) Snapshot() (R, bool) {
	if !c.accumulating {
		var zero R
		return zero, false
	}

	return c.working.Clone(), true
}

// LastEmittedAt returns the end time of the last emitted bar, or the zero
// time if nothing has been emitted yet.
func (c *DailyConsolidator[O, R]) LastEmittedAt() time.Time {
	return c.lastEmit
}

func (c *DailyConsolidator[O, R]) Schedule() *Schedule {
	return c.schedule
}

func (c *DailyConsolidator[O, R]) CrossingTolerance() time.Duration {
	return c.tolerance
}

func (c *DailyConsolidator[O, R]) CrossingField() CrossingField {
	return c.crossingField
}
