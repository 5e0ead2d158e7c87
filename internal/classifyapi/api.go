// Package classifyapi exposes the classification core over HTTP: single and
// batch classification, stored batch lookup, the aggregate metrics snapshot,
// and per-tier health.
package classifyapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/history"
)

// Classifier defines the core operations the API needs.
type Classifier interface {
	Classify(ctx context.Context, source, message string) classify.Outcome
	ClassifyBatch(ctx context.Context, entries []classify.Entry) []classify.Outcome
	MetricsSnapshot() classify.Snapshot
	TierHealth(ctx context.Context) map[string]bool
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    Classifier
	store  history.Store
}

// New creates a new API handler.
func New(logger log.Logger, svc Classifier, store history.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("classifier is required"))
	}
	if store == nil {
		panic(xerrors.New("history store is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		store:  store,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/classify", a.handleClassify)
		r.Post("/classify/batch", a.handleClassifyBatch)
		r.Get("/history/{id}", a.handleGetHistory)
		r.Get("/stats", a.handleStats)
		r.Get("/health/tiers", a.handleTierHealth)
	})
}

func (a *API) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.record.id", id))

	rec, ok, err := a.store.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get classification record", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.MetricsSnapshot())
}

func (a *API) handleTierHealth(w http.ResponseWriter, r *http.Request) {
	health := a.svc.TierHealth(r.Context())

	status := http.StatusOK
	for _, ok := range health {
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]any{"tiers": health})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
