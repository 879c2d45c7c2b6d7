package eventservices

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

// PolygonBarSource downloads aggregate bars from polygon.io as trade bar
// observations.
type PolygonBarSource struct {
	Client *polygon.Client
}

func NewPolygonBarSource(apiKey string) *PolygonBarSource {
	return &PolygonBarSource{
		Client: polygon.New(apiKey),
	}
}

// FetchTradeBars returns the bars of symbol between from and to in ascending
// order, with timestamps converted to exchangeLocation.
func (s *PolygonBarSource) FetchTradeBars(ctx context.Context, symbol eventmodels.Symbol, multiplier int, timespan models.Timespan, from, to time.Time, exchangeLocation *time.Location) ([]*eventmodels.TradeBar, error) {
	tracer := otel.Tracer("PolygonBarSource")
	ctx, span := tracer.Start(ctx, "PolygonBarSource.FetchTradeBars")
	defer span.End()

	span.SetAttributes(attribute.String("symbol", symbol.String()), attribute.Int("multiplier", multiplier), attribute.String("timespan", string(timespan)))

	period, err := TimespanDuration(multiplier, timespan)
	if err != nil {
		return nil, fmt.Errorf("PolygonBarSource.FetchTradeBars: %w", err)
	}

	log.Debugf("fetching polygon aggregates for %s from %v to %v", symbol, from, to)

	params := models.ListAggsParams{
		Ticker:     symbol.String(),
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := s.Client.ListAggs(ctx, params)

	var bars []*eventmodels.TradeBar
	for iter.Next() {
		bars = append(bars, NewTradeBarFromAgg(symbol, iter.Item(), period, exchangeLocation))
	}

	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("PolygonBarSource.FetchTradeBars: %s: %w", symbol, err)
	}

	span.SetAttributes(attribute.Int("bars", len(bars)))

	return bars, nil
}

func NewTradeBarFromAgg(symbol eventmodels.Symbol, agg models.Agg, period time.Duration, exchangeLocation *time.Location) *eventmodels.TradeBar {
	return &eventmodels.TradeBar{
		Symbol: symbol,
		Time:   time.Time(agg.Timestamp).In(exchangeLocation),
		Period: period,
		Open:   agg.Open,
		High:   agg.High,
		Low:    agg.Low,
		Close:  agg.Close,
		Volume: agg.Volume,
	}
}

// TimespanDuration is the length of one aggregate. Calendar spans longer than
// a day have no fixed length and are rejected.
func TimespanDuration(multiplier int, timespan models.Timespan) (time.Duration, error) {
	if multiplier <= 0 {
		return 0, fmt.Errorf("TimespanDuration: multiplier must be positive, found %d", multiplier)
	}

	var unit time.Duration
	switch timespan {
	case models.Second:
		unit = time.Second
	case models.Minute:
		unit = time.Minute
	case models.Hour:
		unit = time.Hour
	case models.Day:
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("TimespanDuration: unsupported timespan %q", timespan)
	}

	return time.Duration(multiplier) * unit, nil
}

func ParseTimespan(value string) (models.Timespan, error) {
	timespan := models.Timespan(value)
	if _, err := TimespanDuration(1, timespan); err != nil {
		return "", fmt.Errorf("ParseTimespan: %w", err)
	}

	return timespan, nil
}
