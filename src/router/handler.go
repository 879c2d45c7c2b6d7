package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
	"github.com/jiaming2012/daily-consolidator/src/service"
)

type ObservationResponse struct {
	Folded  bool `json:"folded"`
	Emitted bool `json:"emitted"`
}

type ProbeRequest struct {
	Time string `json:"time"`
}

type ProbeResponse struct {
	Emitted []eventmodels.Symbol `json:"emitted"`
}

type handler struct {
	svc *service.ConsolidatorService
}

// SetupHandler registers the consolidator routes on router. Every route is
// tagged for the otelhttp instrumentation.
func SetupHandler(router *mux.Router, svc *service.ConsolidatorService) {
	h := &handler{svc: svc}

	handleFunc := func(path string, f func(http.ResponseWriter, *http.Request), methods ...string) {
		tagged := otelhttp.WithRouteTag(path, http.HandlerFunc(f))
		router.Handle(path, tagged).Methods(methods...)
	}

	handleFunc("/observations", h.handleObservation, http.MethodPost)
	handleFunc("/probe", h.handleProbe, http.MethodPost)
	handleFunc("/snapshot", h.handleSnapshot, http.MethodGet)
	handleFunc("/bars", h.handleBars, http.MethodGet)
	handleFunc("/bars/stream", h.handleStream, http.MethodGet)
}

func symbolParam(r *http.Request) (eventmodels.Symbol, error) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		return "", fmt.Errorf("missing symbol query parameter")
	}

	return eventmodels.NewSymbol(symbol), nil
}

func statusFor(err error) int {
	if errors.Is(err, service.ErrUnknownSymbol) {
		return 404
	}

	return 500
}

func (h *handler) handleObservation(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("router").Start(r.Context(), "handleObservation")
	defer span.End()

	var dto eventmodels.QuoteBarDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		setErrorResponse("handleObservation: failed to decode request", 400, err, w)
		return
	}

	bar, err := dto.ToModel()
	if err != nil {
		setErrorResponse("handleObservation: invalid observation", 400, err, w)
		return
	}

	span.SetAttributes(attribute.String("symbol", bar.Symbol.String()))

	result, err := h.svc.OnObservation(ctx, bar)
	if err != nil {
		setErrorResponse("handleObservation: failed to process observation", statusFor(err), err, w)
		return
	}

	if !result.Folded {
		log.WithContext(ctx).Warnf("handleObservation: dropped late %s observation at %s", bar.Symbol, dto.Time)
	}

	if err := setResponse(ObservationResponse{Folded: result.Folded, Emitted: result.Emitted}, w); err != nil {
		log.WithContext(ctx).Errorf("handleObservation: %v", err)
	}
}

func (h *handler) handleProbe(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("router").Start(r.Context(), "handleProbe")
	defer span.End()

	var req ProbeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleProbe: failed to decode request", 400, err, w)
		return
	}

	currentTime, err := eventmodels.ParseNaiveTime(req.Time)
	if err != nil {
		setErrorResponse("handleProbe: invalid time", 400, err, w)
		return
	}

	emitted := h.svc.Probe(ctx, currentTime)
	if emitted == nil {
		emitted = []eventmodels.Symbol{}
	}

	if err := setResponse(ProbeResponse{Emitted: emitted}, w); err != nil {
		log.WithContext(ctx).Errorf("handleProbe: %v", err)
	}
}

func (h *handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		setErrorResponse("handleSnapshot: invalid request", 400, err, w)
		return
	}

	bar, ok, err := h.svc.Snapshot(symbol)
	if err != nil {
		setErrorResponse("handleSnapshot: failed to get snapshot", statusFor(err), err, w)
		return
	}

	if !ok {
		setErrorResponse("handleSnapshot: no bar in progress", 404, fmt.Errorf("no bar in progress for %s", symbol), w)
		return
	}

	if err := setResponse(bar.ToDTO(), w); err != nil {
		log.Errorf("handleSnapshot: %v", err)
	}
}

func (h *handler) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		setErrorResponse("handleBars: invalid request", 400, err, w)
		return
	}

	bars, err := h.svc.Bars(symbol)
	if err != nil {
		setErrorResponse("handleBars: failed to get bars", statusFor(err), err, w)
		return
	}

	dtos := make([]*eventmodels.QuoteBarDTO, 0, len(bars))
	for _, bar := range bars {
		dtos = append(dtos, bar.ToDTO())
	}

	if err := setResponse(dtos, w); err != nil {
		log.Errorf("handleBars: %v", err)
	}
}

// handleStream pushes every consolidated bar to a websocket client as a
// handleStream pushes every consolidated bar to a websocket client as a
// service.BarMessage.
func (h *handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Broadcaster().HandleRequest(w, r); err != nil {
		log.Errorf("handleStream: %v", err)
	}
}
