package classifyapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/history"
)

// Input bounds. The core receives only validated, trimmed, bounded entries.
const (
	maxSourceLen  = 100
	maxMessageLen = 5000
	maxBatchSize  = 1000
)

type classifyRequest struct {
	Source  string `json:"source"`
	Message string `json:"log_message"`
}

type classifyResponse struct {
	Source     string          `json:"source"`
	Message    string          `json:"log_message"`
	Label      string          `json:"target_label"`
	Method     classify.Method `json:"classification_method"`
	Confidence *float64        `json:"confidence,omitempty"`
	LatencyMs  float64         `json:"processing_time_ms"`
}

type batchRequest struct {
	Entries []classifyRequest `json:"entries"`
}

type batchResponse struct {
	ID      string             `json:"id"`
	Total   int                `json:"total_logs"`
	Results []classifyResponse `json:"results"`
}

func (a *API) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	entry, errMsg := validateEntry(req)
	if errMsg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": errMsg})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.source", entry.Source))

	outcome := a.svc.Classify(r.Context(), entry.Source, entry.Message)
	span.SetAttributes(attribute.String("sift.method", string(outcome.Method)))

	writeJSON(w, http.StatusOK, toResponse(entry, outcome))
}

func (a *API) handleClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if len(req.Entries) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "entries must not be empty"})
		return
	}
	if len(req.Entries) > maxBatchSize {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "too many entries"})
		return
	}

	entries := make([]classify.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entry, errMsg := validateEntry(e)
		if errMsg != "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": errMsg})
			return
		}
		entries = append(entries, entry)
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("sift.batch.size", len(entries)))

	start := time.Now()
	outcomes := a.svc.ClassifyBatch(r.Context(), entries)

	id := ulid.Make().String()
	rec := &history.Record{
		ID:         id,
		CreatedAt:  time.Now(),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Items:      make([]history.Item, 0, len(outcomes)),
	}

	results := make([]classifyResponse, 0, len(outcomes))
	for i, o := range outcomes {
		results = append(results, toResponse(entries[i], o))
		rec.Items = append(rec.Items, history.Item{
			Source:     entries[i].Source,
			Message:    entries[i].Message,
			Label:      o.Label,
			Method:     o.Method,
			Confidence: o.Confidence,
			LatencyMs:  o.LatencyMs,
		})
	}

	// a history write failure must not fail the classification response
	if err := a.store.Put(r.Context(), rec); err != nil {
		a.logger.Error(r.Context(), err, "failed to persist classification record", "id", id)
	}

	writeJSON(w, http.StatusOK, batchResponse{
		ID:      id,
		Total:   len(results),
		Results: results,
	})
}

// validateEntry trims and bounds one request entry. Returns a non-empty
// message describing the first violation.
func validateEntry(req classifyRequest) (classify.Entry, string) {
	source := strings.TrimSpace(req.Source)
	message := strings.TrimSpace(req.Message)

	switch {
	case source == "":
		return classify.Entry{}, "source must not be empty"
	case len(source) > maxSourceLen:
		return classify.Entry{}, "source too long"
	case message == "":
		return classify.Entry{}, "log_message must not be empty"
	case len(message) > maxMessageLen:
		return classify.Entry{}, "log_message too long"
	}
	return classify.Entry{Source: source, Message: message}, ""
}

func toResponse(entry classify.Entry, o classify.Outcome) classifyResponse {
	return classifyResponse{
		Source:     entry.Source,
		Message:    entry.Message,
		Label:      o.Label,
		Method:     o.Method,
		Confidence: o.Confidence,
		LatencyMs:  o.LatencyMs,
	}
}
