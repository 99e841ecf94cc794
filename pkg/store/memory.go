package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and keyless dev runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, uid string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[uid]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	if rec.Profile != nil {
		p := *rec.Profile
		out.Profile = &p
	}
	return &out, nil
}

func (s *MemoryStore) Set(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *rec
	if rec.Profile != nil {
		p := *rec.Profile
		stored.Profile = &p
	}
	s.records[rec.UID] = stored
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, uid string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[uid]
	if !ok {
		return ErrNotFound
	}
	rec.LastLogin = t
	s.records[uid] = rec
	return nil
}
