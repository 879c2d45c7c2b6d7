package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
	"github.com/jiaming2012/daily-consolidator/src/eventpubsub"
	"github.com/jiaming2012/daily-consolidator/src/utils"
)

type quoteBarConsolidator = consolidator.DailyConsolidator[*eventmodels.QuoteBar, *eventmodels.QuoteBar]

const DefaultProbeInterval = time.Minute

// BarMessage is what stream clients receive for every consolidated bar.
type BarMessage struct {
	ID  uuid.UUID                       `json:"id"`
	Bar *eventmodels.ConsolidatedBarDTO `json:"bar"`
}

// ConsolidatorService owns one quote bar consolidator per configured symbol.
// All calls into the consolidators are serialized by mu.
type ConsolidatorService struct {
	mu            sync.Mutex
	consolidators map[eventmodels.Symbol]*quoteBarConsolidator
	bars          map[eventmodels.Symbol][]*eventmodels.QuoteBar
	maxBars       int

	bus         *eventpubsub.Bus
	broadcaster *Broadcaster
	metrics     *utils.ConsolidatorMetrics

	probeInterval time.Duration
	now           func() time.Time
}

// NewConsolidatorService builds a consolidator for every entry of config.
// Emitted bars are kept in memory, up to maxBars per symbol, published on bus
// and sent to stream clients. A non positive probeInterval uses
// DefaultProbeInterval.
func NewConsolidatorService(config *eventmodels.ConsolidatorConfigYAML, bus *eventpubsub.Bus, probeInterval time.Duration, maxBars int) (*ConsolidatorService, error) {
	if probeInterval <= 0 {
		probeInterval = DefaultProbeInterval
	}

	metrics, err := utils.NewConsolidatorMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("NewConsolidatorService: %w", err)
	}

	s := &ConsolidatorService{
		consolidators: make(map[eventmodels.Symbol]*quoteBarConsolidator),
		bars:          make(map[eventmodels.Symbol][]*eventmodels.QuoteBar),
		maxBars:       maxBars,
		bus:           bus,
		broadcaster:   NewBroadcaster(),
		metrics:       metrics,
		probeInterval: probeInterval,
		now:           time.Now,
	}

	for i := range config.Consolidators {
		cfg := &config.Consolidators[i]

		c, err := utils.NewQuoteBarConsolidator(cfg)
		if err != nil {
			return nil, fmt.Errorf("NewConsolidatorService: %w", err)
		}

		symbol := eventmodels.NewSymbol(cfg.Symbol)
		c.Subscribe(s.recordBar(symbol))

		schedule := c.Schedule()
		log.Infof("NewConsolidatorService: %s closes at %s %s, exchange zone %s",
			symbol, schedule.CloseTimeOfDay(), schedule.CloseLocation(), schedule.ExchangeLocation())

		if bus != nil {
			c.Subscribe(eventpubsub.PublishTo[*eventmodels.QuoteBar](bus, eventpubsub.QuoteBarConsolidatedEvent))
		}

		s.consolidators[symbol] = c
	}

	return s, nil
}

func (s *ConsolidatorService) Broadcaster() *Broadcaster {
	return s.broadcaster
}

func (s *ConsolidatorService) Symbols() []eventmodels.Symbol {
	symbols := make([]eventmodels.Symbol, 0, len(s.consolidators))
	for symbol := range s.consolidators {
		symbols = append(symbols, symbol)
	}

	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

// recordBar runs with mu held, from inside OnObservation or OnTimeProbe.
func (s *ConsolidatorService) recordBar(symbol eventmodels.Symbol) consolidator.Listener[*eventmodels.QuoteBar] {
	return func(event consolidator.BarConsolidatedEvent[*eventmodels.QuoteBar]) {
		bars := append(s.bars[symbol], event.Bar)
		if s.maxBars > 0 && len(bars) > s.maxBars {
			bars = bars[len(bars)-s.maxBars:]
		}
		s.bars[symbol] = bars

		s.metrics.BarEmitted(context.Background(), symbol)

		msg, err := json.Marshal(BarMessage{ID: event.ID, Bar: eventmodels.NewConsolidatedBarDTO(event.Bar)})
		if err != nil {
			log.Errorf("ConsolidatorService: failed to marshal bar message: %v", err)
			return
		}

		s.broadcaster.Broadcast(msg)
	}
}

func (s *ConsolidatorService) get(symbol eventmodels.Symbol) (*quoteBarConsolidator, error) {
	c, ok := s.consolidators[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}

	return c, nil
}

func (s *ConsolidatorService) OnObservation(ctx context.Context, bar *eventmodels.QuoteBar) (consolidator.ObservationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(bar.Symbol)
	if err != nil {
		return consolidator.ObservationResult{}, fmt.Errorf("ConsolidatorService.OnObservation: %w", err)
	}

	result := c.OnObservation(bar)
	if !result.Folded && s.bus != nil {
		s.bus.Publish(eventpubsub.ObservationDroppedEvent, eventmodels.ObservationDroppedEvent{
			Symbol:        bar.Symbol,
			Time:          c.Schedule().ToExchangeTime(bar.Time),
			LastEmittedAt: c.LastEmittedAt(),
		})
	}

	return result, nil
}

// Probe probes every consolidator with currentTime, read as a wall clock time
// in each exchange zone. It returns the symbols that emitted a bar.
func (s *ConsolidatorService) Probe(ctx context.Context, currentTime time.Time) []eventmodels.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()

	var emitted []eventmodels.Symbol
	for _, symbol := range s.Symbols() {
		if s.consolidators[symbol].OnTimeProbe(currentTime) {
			emitted = append(emitted, symbol)
		}
	}

	return emitted
}

// probeInstant probes every consolidator with the same instant, converted to
// each exchange zone.
func (s *ConsolidatorService) probeInstant(instant time.Time) []eventmodels.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()

	var emitted []eventmodels.Symbol
	for _, symbol := range s.Symbols() {
		c := s.consolidators[symbol]
		if c.OnTimeProbe(instant.In(c.Schedule().ExchangeLocation())) {
			emitted = append(emitted, symbol)
		}
	}

	return emitted
}

func (s *ConsolidatorService) Snapshot(symbol eventmodels.Symbol) (*eventmodels.QuoteBar, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(symbol)
	if err != nil {
		return nil, false, fmt.Errorf("ConsolidatorService.Snapshot: %w", err)
	}

	bar, ok := c.Snapshot()
	return bar, ok, nil
}

// Bars returns copies of the bars emitted for symbol, oldest first.
func (s *ConsolidatorService) Bars(symbol eventmodels.Symbol) ([]*eventmodels.QuoteBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(symbol); err != nil {
		return nil, fmt.Errorf("ConsolidatorService.Bars: %w", err)
	}

	bars := make([]*eventmodels.QuoteBar, 0, len(s.bars[symbol]))
	for _, bar := range s.bars[symbol] {
		bars = append(bars, bar.Clone())
	}

	return bars, nil
}

// nextWakeUp is the earlier of the next probe tick and the next close
// boundary of any consolidator.
func (s *ConsolidatorService) nextWakeUp(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	wakeUp := now.Add(s.probeInterval)
	for _, c := range s.consolidators {
		if boundary := c.Schedule().NextBoundaryAfter(now); boundary.Before(wakeUp) {
			wakeUp = boundary
		}
	}

	return wakeUp
}

// Start runs the probe loop until ctx is cancelled. The loop wakes at every
// close boundary and at least once per probe interval, so days without a
// boundary crossing observation are still emitted.
func (s *ConsolidatorService) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			wait := s.nextWakeUp(s.now()).Sub(s.now())
			if wait < 0 {
				wait = 0
			}

			timer := time.NewTimer(wait)

			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info("ConsolidatorService: probe loop stopped")
				return
			case <-timer.C:
				for _, symbol := range s.probeInstant(s.now()) {
					log.Infof("ConsolidatorService: probe emitted a bar for %s", symbol)
				}
			}
		}
	}()
}
