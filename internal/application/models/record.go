// Package models defines the persisted record shape, the review status
// lifecycle, and the applicant data structures.
package models

import (
	"time"
)

// Kind determines a record's retention policy and whether it participates in
// the pending index.
type Kind string

const (
	KindDraft       Kind = "draft"
	KindApplication Kind = "application"
)

func (k Kind) Valid() bool {
	return k == KindDraft || k == KindApplication
}

// Status is the review state of an application record. Drafts carry no status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// transitions is the full lifecycle: pending may move to any state, reviewed
// may only be decided, approved and rejected are terminal. Re-applying a
// terminal status is a rejected transition, not a no-op.
var transitions = map[Status][]Status{
	StatusPending:  {StatusReviewed, StatusApproved, StatusRejected},
	StatusReviewed: {StatusApproved, StatusRejected},
	StatusApproved: {},
	StatusRejected: {},
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Record is the persisted unit. Data holds ciphertext only; the store layer
// never sees plaintext applicant data.
//
// Invariants:
//   - ExpiresAt > CreatedAt at creation time, enforced before any write
//   - Status is set iff Kind is application
//   - Status changes never renew ExpiresAt
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Data      string    `json:"data"`
	Status    Status    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TTL computes the remaining lifetime of the record relative to now.
// Non-positive means the record is already expired.
func (r *Record) TTL(now time.Time) time.Duration {
	return r.ExpiresAt.Sub(now)
}

// Expired reports whether the record's expiry has passed.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
