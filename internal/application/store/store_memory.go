package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lendo/internal/application/models"
	"lendo/pkg/platform/sentinel"
)

// InMemoryStore implements RecordStore for unit tests and local development.
// Expiry is checked lazily on read, mirroring the authoritative store-native
// expiry of the Redis implementation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
	pending map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*models.Record),
		pending: make(map[string]struct{}),
	}
}

func memKey(kind models.Kind, id string) string {
	return string(kind) + ":" + sanitizeKeySegment(id)
}

func (s *InMemoryStore) Store(_ context.Context, record *models.Record) error {
	if record.TTL(time.Now()) <= 0 {
		return fmt.Errorf("record %s: %w", record.ID, sentinel.ErrExpired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	s.records[memKey(record.Kind, record.ID)] = &clone
	if record.Kind == models.KindApplication {
		s.pending[record.ID] = struct{}{}
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string, kind models.Kind) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[memKey(kind, id)]
	if !ok || record.Expired(time.Now()) {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, next models.Status) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[memKey(models.KindApplication, id)]
	if !ok || record.Expired(time.Now()) {
		return nil, sentinel.ErrNotFound
	}
	if !next.Valid() {
		return nil, fmt.Errorf("status %q: %w", next, sentinel.ErrInvalidState)
	}
	if !record.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("transition %s -> %s: %w", record.Status, next, sentinel.ErrInvalidState)
	}

	record.Status = next
	if next != models.StatusPending {
		delete(s.pending, id)
	}

	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *InMemoryStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := time.Now()
	for id := range s.pending {
		record, ok := s.records[memKey(models.KindApplication, id)]
		if !ok {
			delete(s.pending, id)
			removed++
			continue
		}
		if !record.Expired(now) {
			continue
		}
		delete(s.records, memKey(models.KindApplication, id))
		delete(s.pending, id)
		removed++
	}
	return removed, nil
}
