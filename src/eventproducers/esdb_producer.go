package eventproducers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
	"github.com/jiaming2012/daily-consolidator/src/utils"
)

const BarConsolidatedEventType = "BarConsolidated"

type streamAppender interface {
	AppendToStream(ctx context.Context, streamID string, opts esdb.AppendToStreamOptions, events ...esdb.EventData) (*esdb.WriteResult, error)
}

// EsdbBarWriter appends consolidated bars to one EventStoreDB stream per
// symbol.
type EsdbBarWriter struct {
	db           streamAppender
	streamPrefix eventmodels.StreamName
	timeout      time.Duration
}

type barMetaData struct {
	EventID      uuid.UUID       `json:"event_id"`
	TraceContext json.RawMessage `json:"trace_context,omitempty"`
}

func NewEsdbBarWriter(url string, streamPrefix eventmodels.StreamName) (*EsdbBarWriter, error) {
	settings, err := esdb.ParseConnectionString(url)
	if err != nil {
		return nil, fmt.Errorf("NewEsdbBarWriter: failed to parse connection string: %w", err)
	}

	db, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("NewEsdbBarWriter: failed to create client: %w", err)
	}

	return newEsdbBarWriter(db, streamPrefix), nil
}

func newEsdbBarWriter(db streamAppender, streamPrefix eventmodels.StreamName) *EsdbBarWriter {
	return &EsdbBarWriter{
		db:           db,
		streamPrefix: streamPrefix,
		timeout:      10 * time.Second,
	}
}

func (w *EsdbBarWriter) StreamName(symbol eventmodels.Symbol) string {
	return fmt.Sprintf("%s-%s", w.streamPrefix, symbol.String())
}

func (w *EsdbBarWriter) WriteBar(ctx context.Context, eventID uuid.UUID, bar eventmodels.ConsolidatedBar) error {
	if w.db == nil {
		return errors.New("EsdbBarWriter.WriteBar: db is nil")
	}

	tracer := otel.Tracer("EsdbBarWriter")
	ctx, span := tracer.Start(ctx, "EsdbBarWriter.WriteBar")
	defer span.End()

	data, err := json.Marshal(eventmodels.NewConsolidatedBarDTO(bar))
	if err != nil {
		return fmt.Errorf("EsdbBarWriter.WriteBar: failed to marshal bar: %w", err)
	}

	meta, err := w.metaData(eventID, span)
	if err != nil {
		return fmt.Errorf("EsdbBarWriter.WriteBar: %w", err)
	}

	eventData := esdb.EventData{
		ContentType: esdb.ContentTypeJson,
		EventType:   BarConsolidatedEventType,
		Data:        data,
		Metadata:    meta,
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	streamName := w.StreamName(bar.GetSymbol())
	if _, err := w.db.AppendToStream(ctx, streamName, esdb.AppendToStreamOptions{}, eventData); err != nil {
		span.RecordError(err)
		return fmt.Errorf("EsdbBarWriter.WriteBar: failed to append event to stream %s: %w", streamName, err)
	}

	log.Debugf("%s saved to stream %s", BarConsolidatedEventType, streamName)

	return nil
}

func (w *EsdbBarWriter) metaData(eventID uuid.UUID, span trace.Span) ([]byte, error) {
	meta := barMetaData{EventID: eventID}

	if sc := span.SpanContext(); sc.IsValid() {
		traceContext, err := utils.SerializeTraceContext(sc)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize trace context: %w", err)
		}

		meta.TraceContext = traceContext
	}

	return json.Marshal(meta)
}

// BarListener returns a listener that writes every consolidated bar. Write
// failures are logged and do not stop the consolidator.
func BarListener[R eventmodels.ConsolidatedBar](ctx context.Context, w *EsdbBarWriter) consolidator.Listener[R] {
	return func(event consolidator.BarConsolidatedEvent[R]) {
		if err := w.WriteBar(ctx, event.ID, event.Bar); err != nil {
			log.Errorf("BarListener: %v", err)
		}
	}
}
