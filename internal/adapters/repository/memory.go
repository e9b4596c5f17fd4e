package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hedvall/vakthund/internal/domain/model"
)

// MemoryStore implements Store on a plain map. It backs tests and the
// "memory" store driver; semantics match SQLiteStore exactly.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]model.StoredIncident
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]model.StoredIncident)}
}

// Upsert creates or merges rec under rec.Key.
func (s *MemoryStore) Upsert(ctx context.Context, rec model.StoredIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.docs[rec.Key]; ok {
		rec.Incident = model.Merge(existing.Incident, rec.Incident)
	}
	s.docs[rec.Key] = rec
	return nil
}

// Replace stores rec under rec.Key, discarding any existing document.
func (s *MemoryStore) Replace(ctx context.Context, rec model.StoredIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[rec.Key] = rec
	return nil
}

// RecentN returns up to n records ordered by timestamp descending.
func (s *MemoryStore) RecentN(ctx context.Context, n int) ([]model.StoredIncident, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]model.StoredIncident, 0, len(s.docs))
	for _, rec := range s.docs {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// KeysOlderThan returns keys of records with timestamp strictly below cutoff.
func (s *MemoryStore) KeysOlderThan(ctx context.Context, cutoff int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, rec := range s.docs {
		if rec.Timestamp < cutoff {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// DeleteBatch removes the given keys. Missing keys are not an error.
func (s *MemoryStore) DeleteBatch(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.docs, k)
	}
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
