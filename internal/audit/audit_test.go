package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"lendo/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestLogWritesEntryWithClientMetadata(t *testing.T) {
	store := NewInMemoryStore()
	logger := NewLogger(store, discardLogger())

	ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.9", "Firefox/142.0 (Linux)")
	logger.Log(ctx, ActionApplicationCreated, "app-1", map[string]string{"loanType": "personal"})

	entries, err := store.List(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Action != ActionApplicationCreated {
		t.Errorf("unexpected action %q", entry.Action)
	}
	if entry.Details["clientIp"] != "203.0.113.9" {
		t.Errorf("expected client IP in details, got %v", entry.Details)
	}
	if entry.Details["userAgent"] == "" {
		t.Errorf("expected user agent in details, got %v", entry.Details)
	}
	if entry.Details["loanType"] != "personal" {
		t.Errorf("caller details lost: %v", entry.Details)
	}
	if entry.ID == "" || entry.Timestamp.IsZero() {
		t.Errorf("entry missing id or timestamp: %+v", entry)
	}
}

func TestLogSwallowsStoreFailure(t *testing.T) {
	store := NewInMemoryStore()
	store.FailAppends = true
	logger := NewLogger(store, discardLogger())

	// Must not panic or propagate anything.
	logger.Log(context.Background(), ActionDraftSaved, "draft-1", nil)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Log(context.Background(), ActionCleanupRun, "", nil)

	entries, err := logger.List(context.Background(), "")
	if err != nil || entries != nil {
		t.Fatalf("nil logger should return nothing, got %v, %v", entries, err)
	}
}

func TestListFiltersByResourceAndSorts(t *testing.T) {
	store := NewInMemoryStore()
	logger := NewLogger(store, discardLogger())

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{ActionApplicationCreated, ActionApplicationStatusChanged} {
		// Later actions logged first to prove sorting.
		ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(1-i)*time.Minute))
		logger.Log(ctx, action, "app-1", nil)
	}
	logger.Log(context.Background(), ActionDraftSaved, "draft-9", nil)

	entries, err := logger.List(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for app-1, got %d", len(entries))
	}
	if !entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Fatalf("entries not sorted oldest first: %v", entries)
	}
	if entries[0].Action != ActionApplicationStatusChanged {
		t.Fatalf("expected the earlier-timestamped entry first, got %q", entries[0].Action)
	}
}
