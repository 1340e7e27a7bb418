package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errAppendFailed = errors.New("audit: append failed")

// InMemoryStore keeps entries in memory for tests. No retention; tests are
// short-lived.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry

	// FailAppends makes Append fail, for exercising best-effort semantics.
	FailAppends bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppends {
		return errAppendFailed
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, resourceID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, entry := range s.entries {
		if resourceID == "" || entry.ResourceID == resourceID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
