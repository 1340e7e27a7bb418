// Package service orchestrates the submission pipeline: validation,
// encryption, storage, audit, and notification. It holds no state beyond its
// injected collaborators.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"lendo/internal/application/models"
	"lendo/internal/application/store"
	"lendo/internal/application/validate"
	"lendo/internal/audit"
	"lendo/internal/crypto"
	"lendo/internal/notify"
	"lendo/internal/platform/config"
	"lendo/internal/platform/metrics"
	dErrors "lendo/pkg/domain-errors"
	"lendo/pkg/platform/sentinel"
	"lendo/pkg/requestcontext"
)

// Service is the entry point for every record operation.
type Service struct {
	store    store.RecordStore
	crypto   *crypto.Service
	audit    *audit.Logger
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	draftTTL       time.Duration
	applicationTTL time.Duration
}

// Option configures optional collaborators.
type Option func(*Service)

func WithAudit(logger *audit.Logger) Option {
	return func(s *Service) { s.audit = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTTLs(draft, application time.Duration) Option {
	return func(s *Service) {
		s.draftTTL = draft
		s.applicationTTL = application
	}
}

// New constructs the service. Store and crypto are required; everything else
// degrades gracefully when absent.
func New(recordStore store.RecordStore, cryptoSvc *crypto.Service, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:          recordStore,
		crypto:         cryptoSvc,
		logger:         logger,
		draftTTL:       config.DefaultDraftTTL,
		applicationTTL: config.DefaultApplicationTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitResult reports the outcome of a submission. FieldErrors is non-empty
// exactly when validation rejected the payload (and nothing was stored).
// Warning is set when the record was stored but a follow-up step failed.
type SubmitResult struct {
	ID          string
	FieldErrors []validate.FieldError
	Warning     string
}

// Application is a decrypted view of an application record.
type Application struct {
	ID        string
	Status    models.Status
	CreatedAt time.Time
	ExpiresAt time.Time
	Data      map[string]any
}

// SaveDraft validates leniently, encrypts, and stores a draft snapshot.
// The id is reused when given so the wizard can keep writing to one slot;
// concurrent saves to the same id are last-write-wins, full overwrite.
func (s *Service) SaveDraft(ctx context.Context, raw map[string]any, existingID string) (string, []validate.FieldError, error) {
	if fieldErrs := validate.Draft(raw); len(fieldErrs) > 0 {
		return "", fieldErrs, dErrors.New(dErrors.CodeValidation, "draft contains invalid fields")
	}

	ciphertext, err := s.crypto.Encrypt(raw)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt draft")
	}

	id := existingID
	if id == "" {
		id = uuid.NewString()
	}

	now := requestcontext.Now(ctx)
	record := &models.Record{
		ID:        id,
		Kind:      models.KindDraft,
		Data:      ciphertext,
		CreatedAt: now,
		ExpiresAt: now.Add(s.draftTTL),
	}
	if err := s.store.Store(ctx, record); err != nil {
		return "", nil, s.translateStoreErr(err, "failed to store draft")
	}

	s.audit.Log(ctx, audit.ActionDraftSaved, id, nil)
	if s.metrics != nil {
		s.metrics.DraftsSaved.Inc()
	}
	return id, nil, nil
}

// LoadDraft fetches and decrypts a draft. Absence and decrypt failure are
// both reported as not found; the distinction stays in the logs.
func (s *Service) LoadDraft(ctx context.Context, id string) (map[string]any, error) {
	record, err := s.store.Get(ctx, id, models.KindDraft)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to load draft")
	}

	var data map[string]any
	if err := s.crypto.Decrypt(record.Data, &data); err != nil {
		return nil, s.maskDecryptErr(ctx, err, id)
	}
	return data, nil
}

// Submit runs the full pipeline. Validation failure stops before any storage
// attempt. Once the record is stored, audit and notification failures only
// degrade the result, never undo the submission.
func (s *Service) Submit(ctx context.Context, raw map[string]any) (*SubmitResult, error) {
	data, fieldErrs := validate.Submission(raw)
	if len(fieldErrs) > 0 {
		if s.metrics != nil {
			s.metrics.ValidationFailures.Inc()
		}
		return &SubmitResult{FieldErrors: fieldErrs},
			dErrors.New(dErrors.CodeValidation, "application failed validation")
	}

	// The validator returns typed structures, so document entries are already
	// reduced to metadata descriptors; bytes never reach this pipeline.
	ciphertext, err := s.crypto.Encrypt(data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt application")
	}

	now := requestcontext.Now(ctx)
	record := &models.Record{
		ID:        uuid.NewString(),
		Kind:      models.KindApplication,
		Data:      ciphertext,
		Status:    models.StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.applicationTTL),
	}
	if err := s.store.Store(ctx, record); err != nil {
		return nil, s.translateStoreErr(err, "failed to store application")
	}

	s.audit.Log(ctx, audit.ActionApplicationCreated, record.ID, map[string]string{
		"loanType": data.LoanDetails.LoanType,
	})
	if s.metrics != nil {
		s.metrics.SubmissionsCreated.Inc()
	}

	result := &SubmitResult{ID: record.ID}
	if s.notifier != nil {
		payload := notify.Payload{
			ApplicationID: record.ID,
			LoanType:      data.LoanDetails.LoanType,
			SubmittedAt:   now.UTC().Format(time.RFC3339),
		}
		if err := notify.FanOut(ctx, s.notifier, data.PersonalInfo.Email, payload); err != nil {
			s.logger.ErrorContext(ctx, "notification delivery failed",
				"application_id", record.ID,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.NotificationErrors.Inc()
			}
			result.Warning = "application stored but notification delivery failed"
		}
	}

	return result, nil
}

// GetApplication fetches and decrypts an application record.
func (s *Service) GetApplication(ctx context.Context, id string) (*Application, error) {
	record, err := s.store.Get(ctx, id, models.KindApplication)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to load application")
	}
	return s.decryptApplication(ctx, record)
}

// UpdateStatus applies a review decision and returns the decrypted record.
func (s *Service) UpdateStatus(ctx context.Context, id string, next models.Status) (*Application, error) {
	record, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to update status")
	}

	s.audit.Log(ctx, audit.ActionApplicationStatusChanged, id, map[string]string{
		"status": string(next),
	})
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(next)).Inc()
	}

	return s.decryptApplication(ctx, record)
}

// ListPending returns the advisory pending index.
func (s *Service) ListPending(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to list pending applications")
	}
	return ids, nil
}

// CleanupExpired sweeps expired pending records. Intended for periodic
// invocation; safe to run concurrently with request traffic.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := s.store.CleanupExpired(ctx)
	if err != nil {
		return 0, s.translateStoreErr(err, "cleanup sweep failed")
	}
	if removed > 0 {
		s.audit.Log(ctx, audit.ActionCleanupRun, "", map[string]string{
			"removed": strconv.Itoa(removed),
		})
		if s.metrics != nil {
			s.metrics.RecordsCleaned.Add(float64(removed))
		}
	}
	return removed, nil
}

// AuditTrail lists audit entries for a resource on the review surface.
func (s *Service) AuditTrail(ctx context.Context, resourceID string) ([]audit.Entry, error) {
	entries, err := s.audit.List(ctx, resourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unreachable")
	}
	return entries, nil
}

func (s *Service) decryptApplication(ctx context.Context, record *models.Record) (*Application, error) {
	var data map[string]any
	if err := s.crypto.Decrypt(record.Data, &data); err != nil {
		return nil, s.maskDecryptErr(ctx, err, record.ID)
	}
	return &Application{
		ID:        record.ID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
		Data:      data,
	}, nil
}

// maskDecryptErr logs the real failure and returns plain not-found, so
// external callers cannot distinguish a tampered record from an absent one.
func (s *Service) maskDecryptErr(ctx context.Context, err error, recordID string) error {
	s.logger.ErrorContext(ctx, "record decrypt failed",
		"record_id", recordID,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.DecryptFailures.Inc()
	}
	return dErrors.New(dErrors.CodeNotFound, "record not found")
}

func (s *Service) translateStoreErr(err error, message string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeBadRequest, "record is already expired")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "status transition not allowed")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, message)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
