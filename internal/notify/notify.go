// Package notify is the outbound notification boundary. Rendering and
// delivery belong to external collaborators; the service only needs a
// capability to hand a recipient a payload.
package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Payload is what collaborators receive about a submission. No applicant
// PII beyond the contact address itself.
type Payload struct {
	ApplicationID string
	LoanType      string
	SubmittedAt   string
}

// Notifier delivers submission notifications. Implementations must be safe
// for concurrent use.
type Notifier interface {
	NotifyAdmin(ctx context.Context, payload Payload) error
	NotifyApplicant(ctx context.Context, recipient string, payload Payload) error
}

// FanOut sends both notifications concurrently and returns the first error.
// Callers treat any error as a partial-success warning, never a rollback.
func FanOut(ctx context.Context, n Notifier, recipient string, payload Payload) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.NotifyAdmin(ctx, payload)
	})
	g.Go(func() error {
		return n.NotifyApplicant(ctx, recipient, payload)
	})
	return g.Wait()
}

// LogNotifier writes notifications to the structured log. It stands in for
// the real mail collaborator in development and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) NotifyAdmin(ctx context.Context, payload Payload) error {
	n.Logger.InfoContext(ctx, "admin notification",
		"application_id", payload.ApplicationID,
		"loan_type", payload.LoanType,
	)
	return nil
}

func (n *LogNotifier) NotifyApplicant(ctx context.Context, recipient string, payload Payload) error {
	n.Logger.InfoContext(ctx, "applicant confirmation",
		"application_id", payload.ApplicationID,
		"recipient", recipient,
	)
	return nil
}
