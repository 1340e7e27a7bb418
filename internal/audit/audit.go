// Package audit records an append-only, best-effort trail of state-changing
// actions. It is a trace, not a ledger: entries have their own retention,
// carry no foreign-key guarantee to the records they mention, and failures
// to write never propagate to the operation being audited.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lendo/pkg/requestcontext"
)

// Actions recorded by the service.
const (
	ActionApplicationCreated       = "application_created"
	ActionApplicationStatusChanged = "application_status_changed"
	ActionDraftSaved               = "draft_saved"
	ActionCleanupRun               = "cleanup_run"
)

// Entry is immutable once written.
type Entry struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Details    map[string]string `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// List returns entries for a resource, oldest first. Matching is a key
	// prefix scan plus in-memory sort; acceptable only at low log volume.
	List(ctx context.Context, resourceID string) ([]Entry, error)
}

// Logger writes audit entries to the store and mirrors them to the
// structured log. A nil *Logger is safe and does nothing, so callers never
// need to guard.
type Logger struct {
	store Store
	log   *slog.Logger
}

func NewLogger(store Store, log *slog.Logger) *Logger {
	return &Logger{store: store, log: log}
}

// Log records an action. Client metadata from the request context is folded
// into the details. Store failures are logged and swallowed: an unauditable
// action still succeeds.
func (l *Logger) Log(ctx context.Context, action, resourceID string, details map[string]string) {
	if l == nil {
		return
	}

	if details == nil {
		details = map[string]string{}
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		details["clientIp"] = ip
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		details["userAgent"] = ua
	}
	if reviewer := requestcontext.ReviewerID(ctx); reviewer != "" {
		details["reviewer"] = reviewer
	}

	entry := Entry{
		ID:         uuid.NewString(),
		Action:     action,
		ResourceID: resourceID,
		Details:    details,
		Timestamp:  requestcontext.Now(ctx),
	}

	if l.log != nil {
		args := []any{
			"action", action,
			"resource_id", resourceID,
			"log_type", "audit",
		}
		if reqID := requestcontext.RequestID(ctx); reqID != "" {
			args = append(args, "request_id", reqID)
		}
		l.log.InfoContext(ctx, action, args...)
	}

	if l.store == nil {
		return
	}
	if err := l.store.Append(ctx, entry); err != nil && l.log != nil {
		l.log.ErrorContext(ctx, "audit append failed",
			"action", action,
			"resource_id", resourceID,
			"error", err,
		)
	}
}

// List exposes the trail for the review surface.
func (l *Logger) List(ctx context.Context, resourceID string) ([]Entry, error) {
	if l == nil || l.store == nil {
		return nil, nil
	}
	return l.store.List(ctx, resourceID)
}
