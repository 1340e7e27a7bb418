// Package store persists encrypted application records with per-record
// expiry, plus the advisory pending index used by review dashboards.
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks RecordStore

import (
	"context"
	"strings"

	"lendo/internal/application/models"
)

// RecordStore is the persistence boundary for records.
//
// Semantics shared by all implementations:
//   - Store rejects records whose expiry has already passed
//     (sentinel.ErrExpired) and writes nothing.
//   - Get returns sentinel.ErrNotFound for absent or expired records.
//   - UpdateStatus preserves the record's original expiry and returns
//     sentinel.ErrInvalidState for transitions the lifecycle forbids.
//   - The record write and the pending-index write are separate operations;
//     the index is advisory and may briefly disagree with record state.
type RecordStore interface {
	Store(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, id string, kind models.Kind) (*models.Record, error)
	UpdateStatus(ctx context.Context, id string, next models.Status) (*models.Record, error)
	ListPending(ctx context.Context) ([]string, error)
	CleanupExpired(ctx context.Context) (int, error)
}

// sanitizeKeySegment escapes delimiter characters in key segments so a
// caller-supplied id containing ':' cannot address adjacent keys.
func sanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
