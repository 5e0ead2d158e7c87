// Package pgstore provides a PostgreSQL implementation of history.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/history"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/history/pgstore")

//go:embed schema.sql
var schema string

// Store persists classification records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Put inserts or replaces a classification record.
func (s *Store) Put(ctx context.Context, rec *history.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	items, err := json.Marshal(rec.Items)
	if err != nil {
		return spanErr(span, fmt.Errorf("marshal items: %w", err))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO classification_runs (id, created_at, duration_ms, items)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET created_at = EXCLUDED.created_at,
		    duration_ms = EXCLUDED.duration_ms,
		    items = EXCLUDED.items`,
		rec.ID, rec.CreatedAt, rec.DurationMs, items,
	)
	if err != nil {
		return spanErr(span, fmt.Errorf("insert record: %w", err))
	}
	return nil
}

// Get retrieves a classification record by ID.
func (s *Store) Get(ctx context.Context, id string) (*history.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var (
		rec   history.Record
		items []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, created_at, duration_ms, items
		FROM classification_runs WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.DurationMs, &items)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, spanErr(span, fmt.Errorf("select record: %w", err))
	}

	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return nil, false, spanErr(span, fmt.Errorf("unmarshal items: %w", err))
	}
	return &rec, true, nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
