// Package history persists batch classification runs so callers can fetch
// results after the fact. It plays the job-record role: the classification
// core itself stays stateless.
package history

import (
	"context"
	"time"

	"github.com/linnemanlabs/sift/internal/classify"
)

// Item is one classified entry within a record.
type Item struct {
	Source     string          `json:"source"`
	Message    string          `json:"log_message"`
	Label      string          `json:"label"`
	Method     classify.Method `json:"method"`
	Confidence *float64        `json:"confidence,omitempty"`
	LatencyMs  float64         `json:"processing_time_ms"`
}

// Record is one stored batch classification run.
type Record struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMs float64   `json:"duration_ms"`
	Items      []Item    `json:"items"`
}

// Store is the persistence interface for classification records.
type Store interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, bool, error)
}
