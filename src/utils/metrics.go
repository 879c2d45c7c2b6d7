package utils

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

const meterName = "github.com/jiaming2012/daily-consolidator"

// ConsolidatorMetrics counts emitted bars and late observations per symbol.
type ConsolidatorMetrics struct {
	barsEmitted         metric.Int64Counter
	observationsDropped metric.Int64Counter
}

func NewConsolidatorMetrics(provider metric.MeterProvider) (*ConsolidatorMetrics, error) {
	meter := provider.Meter(meterName)

	barsEmitted, err := meter.Int64Counter("consolidator.bars.emitted",
		metric.WithDescription("Daily bars emitted at a close boundary"),
		metric.WithUnit("{bar}"))
	if err != nil {
		return nil, fmt.Errorf("NewConsolidatorMetrics: bars emitted: %w", err)
	}

	observationsDropped, err := meter.Int64Counter("consolidator.observations.dropped",
		metric.WithDescription("Observations older than the last emitted bar"),
		metric.WithUnit("{observation}"))
	if err != nil {
		return nil, fmt.Errorf("NewConsolidatorMetrics: observations dropped: %w", err)
	}

	return &ConsolidatorMetrics{
		barsEmitted:         barsEmitted,
		observationsDropped: observationsDropped,
	}, nil
}

func (m *ConsolidatorMetrics) BarEmitted(ctx context.Context, symbol eventmodels.Symbol) {
	m.barsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", symbol.String())))
}

func (m *ConsolidatorMetrics) ObservationDropped(ctx context.Context, event eventmodels.ObservationDroppedEvent) {
	m.observationsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", event.Symbol.String())))
}
