// Package memstore provides an in-memory implementation of history.Store.
// Suitable for dev/testing; records do not survive a restart.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/history"
)

// Store holds classification records in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]*history.Record
}

// New initializes an empty in-memory Store.
func New() *Store {
	return &Store{records: make(map[string]*history.Record)}
}

// Put stores a copy of the record.
func (s *Store) Put(_ context.Context, rec *history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.Items = append([]history.Item(nil), rec.Items...)
	s.records[rec.ID] = &cp
	return nil
}

// Get retrieves a record by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*history.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	cp.Items = append([]history.Item(nil), rec.Items...)
	return &cp, true, nil
}
