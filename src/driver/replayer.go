package driver

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
	"github.com/jiaming2012/daily-consolidator/src/eventpubsub"
)

// SymbolObservation is an observation that knows its instrument.
type SymbolObservation interface {
	consolidator.Observation
	GetSymbol() eventmodels.Symbol
}

type ReplayResult struct {
	Observations int
	Dropped      int
	Probes       int
	Emitted      int
}

// Replayer feeds recorded observations to a consolidator in time order and
// probes the consolidator between them, so a day that ends without a
// boundary crossing observation is still emitted.
type Replayer[O SymbolObservation, R consolidator.Record[R]] struct {
	consolidator  *consolidator.DailyConsolidator[O, R]
	probeInterval time.Duration
	bus           *eventpubsub.Bus

	// Until keeps probing after the last observation up to and including this
	// time. Zero stops at the last observation.
	Until time.Time
}

// NewReplayer builds a replayer. A non positive probeInterval probes at close
// boundaries only. Late observations are published on bus as
// eventmodels.ObservationDroppedEvent when bus is not nil.
func NewReplayer[O SymbolObservation, R consolidator.Record[R]](c *consolidator.DailyConsolidator[O, R], probeInterval time.Duration, bus *eventpubsub.Bus) *Replayer[O, R] {
	return &Replayer[O, R]{
		consolidator:  c,
		probeInterval: probeInterval,
		bus:           bus,
	}
}

func (r *Replayer[O, R]) Run(ctx context.Context, observations []O) (ReplayResult, error) {
	var result ReplayResult

	schedule := r.consolidator.Schedule()

	sorted := make([]O, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return schedule.ToExchangeTime(sorted[i].GetTime()).Before(schedule.ToExchangeTime(sorted[j].GetTime()))
	})

	var previous time.Time
	for i, obs := range sorted {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("Replayer.Run: stopped after %d observations: %w", i, err)
		}

		obsTime := schedule.ToExchangeTime(obs.GetTime())
		if i > 0 {
			r.probe(NewClock(previous, obsTime, r.probeInterval, schedule), &result)
		}

		res := r.consolidator.OnObservation(obs)
		result.Observations++

		if !res.Folded {
			result.Dropped++
			r.publishDropped(obs, obsTime)
		}

		if res.Emitted {
			result.Emitted++
		}

		previous = obsTime
	}

	if !r.Until.IsZero() && len(sorted) > 0 {
		until := schedule.ToExchangeTime(r.Until)
		if until.After(previous) {
			r.probe(NewClock(previous, until, r.probeInterval, schedule), &result)
			r.probeAt(until, &result)
		}
	}

	log.Debugf("Replayer.Run: %d observations, %d dropped, %d probes, %d bars", result.Observations, result.Dropped, result.Probes, result.Emitted)

	return result, nil
}

func (r *Replayer[O, R]) probe(clock *Clock, result *ReplayResult) {
	for clock.Next() {
		r.probeAt(clock.CurrentTime, result)
	}
}

func (r *Replayer[O, R]) probeAt(t time.Time, result *ReplayResult) {
	result.Probes++
	if r.consolidator.OnTimeProbe(t) {
		result.Emitted++
	}
}

func (r *Replayer[O, R]) publishDropped(obs O, obsTime time.Time) {
	if r.bus == nil || !r.bus.HasSubscribers(eventpubsub.ObservationDroppedEvent) {
		return
	}

	r.bus.Publish(eventpubsub.ObservationDroppedEvent, eventmodels.ObservationDroppedEvent{
		Symbol:        obs.GetSymbol(),
		Time:          obsTime,
		LastEmittedAt: r.consolidator.LastEmittedAt(),
	})
}
