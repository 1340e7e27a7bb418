package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lendo/internal/application/models"
	"lendo/internal/application/store"
	storemocks "lendo/internal/application/store/mocks"
	"lendo/internal/audit"
	"lendo/internal/crypto"
	"lendo/internal/notify"
	dErrors "lendo/pkg/domain-errors"
	"lendo/pkg/platform/sentinel"
)

type recordingNotifier struct {
	mu         sync.Mutex
	fail       bool
	admin      int
	applicants []string
}

func (n *recordingNotifier) NotifyAdmin(_ context.Context, _ notify.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.admin++
	return nil
}

func (n *recordingNotifier) NotifyApplicant(_ context.Context, recipient string, _ notify.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.applicants = append(n.applicants, recipient)
	return nil
}

type fixture struct {
	svc        *Service
	records    *store.InMemoryStore
	auditStore *audit.InMemoryStore
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cryptoSvc, err := crypto.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records := store.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()
	notifier := &recordingNotifier{}

	svc := New(records, cryptoSvc, logger,
		WithAudit(audit.NewLogger(auditStore, logger)),
		WithNotifier(notifier),
	)
	return &fixture{svc: svc, records: records, auditStore: auditStore, notifier: notifier}
}

func submissionPayload(t *testing.T) map[string]any {
	t.Helper()
	raw := `{
		"personalInfo": {
			"firstName": "Jean",
			"lastName": "Dupont",
			"email": "jean.dupont@example.fr",
			"phone": "+33612345678",
			"dateOfBirth": "1988-04-12",
			"idType": "passport",
			"idNumber": "18AC45678",
			"employmentStatus": "employed",
			"monthlyIncome": 3200,
			"address": {
				"street": "12 rue de la Paix",
				"city": "Lyon",
				"postalCode": "69002",
				"country": "France"
			}
		},
		"loanDetails": {
			"loanAmount": 5000,
			"loanTerm": 24,
			"loanType": "personal",
			"purpose": "Kitchen renovation",
			"preferredDisbursement": "bank_transfer"
		},
		"documents": {
			"idDocument": {"name": "id.pdf", "size": 204800, "type": "application/pdf", "uploadedAt": "2026-08-01T10:00:00Z"},
			"proofOfIncome": {"name": "payslip.pdf", "size": 102400, "type": "application/pdf", "uploadedAt": "2026-08-01T10:01:00Z"}
		},
		"termsAccepted": true,
		"privacyAccepted": true
	}`
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestSubmitRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, submissionPayload(t))
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	assert.Empty(t, result.Warning)
	assert.Empty(t, result.FieldErrors)

	app, err := f.svc.GetApplication(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.True(t, app.ExpiresAt.After(app.CreatedAt))

	personal, ok := app.Data["personalInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jean", personal["firstName"])
	loan, ok := app.Data["loanDetails"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5000), loan["loanAmount"])

	assert.Equal(t, 1, f.notifier.admin)
	assert.Equal(t, []string{"jean.dupont@example.fr"}, f.notifier.applicants)

	entries, err := f.auditStore.List(ctx, result.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionApplicationCreated, entries[0].Action)
}

func TestSubmitValidationFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, map[string]any{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.NotEmpty(t, result.FieldErrors)
	assert.Empty(t, result.ID)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := f.auditStore.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, f.notifier.admin)
}

func TestSubmitSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t)
	f.auditStore.FailAppends = true

	result, err := f.svc.Submit(context.Background(), submissionPayload(t))
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Empty(t, result.Warning)
}

func TestSubmitNotifierFailureDegradesToWarning(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, submissionPayload(t))
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	assert.NotEmpty(t, result.Warning)

	// The record survives the delivery failure.
	app, err := f.svc.GetApplication(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
}

func TestDraftRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sparse := map[string]any{
		"personalInfo": map[string]any{"firstName": "Jean"},
	}
	id, fieldErrs, err := f.svc.SaveDraft(ctx, sparse, "")
	require.NoError(t, err)
	assert.Empty(t, fieldErrs)
	require.NotEmpty(t, id)

	loaded, err := f.svc.LoadDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sparse, loaded)
}

func TestSaveDraftOverwritesExistingID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := map[string]any{"loanDetails": map[string]any{"loanAmount": float64(2000)}}
	id, _, err := f.svc.SaveDraft(ctx, first, "")
	require.NoError(t, err)

	second := map[string]any{"loanDetails": map[string]any{"loanAmount": float64(9000)}}
	sameID, _, err := f.svc.SaveDraft(ctx, second, id)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)

	loaded, err := f.svc.LoadDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestSaveDraftRejectsTypeErrors(t *testing.T) {
	f := newFixture(t)

	_, fieldErrs, err := f.svc.SaveDraft(context.Background(), map[string]any{
		"loanDetails": map[string]any{"loanAmount": "five thousand"},
	}, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.NotEmpty(t, fieldErrs)
}

func TestLoadDraftMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.LoadDraft(context.Background(), "no-such-draft")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, submissionPayload(t))
	require.NoError(t, err)

	app, err := f.svc.UpdateStatus(ctx, result.ID, models.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, app.Status)

	app, err = f.svc.UpdateStatus(ctx, result.ID, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, app.Status)

	// Terminal status: repeating the decision is a conflict.
	_, err = f.svc.UpdateStatus(ctx, result.ID, models.StatusApproved)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	entries, err := f.auditStore.List(ctx, result.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionApplicationStatusChanged, entries[1].Action)
	assert.Equal(t, "approved", entries[2].Details["status"])
}

func TestUpdateStatusUnknownApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "missing", models.StatusReviewed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListPendingReflectsDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, submissionPayload(t))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, submissionPayload(t))
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, pending)

	_, err = f.svc.UpdateStatus(ctx, first.ID, models.StatusRejected)
	require.NoError(t, err)

	pending, err = f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, pending)
}

func TestGetApplicationMasksDecryptFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A record whose ciphertext never came from our key looks exactly like
	// an absent record to callers.
	now := time.Now()
	require.NoError(t, f.records.Store(ctx, &models.Record{
		ID:        "tampered",
		Kind:      models.KindApplication,
		Data:      base64.StdEncoding.EncodeToString([]byte("garbage ciphertext")),
		Status:    models.StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	_, err := f.svc.GetApplication(ctx, "tampered")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSubmitStoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := storemocks.NewMockRecordStore(ctrl)
	records.EXPECT().
		Store(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("write: %w", sentinel.ErrUnavailable))

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cryptoSvc, err := crypto.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := New(records, cryptoSvc, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithNotifier(notifier),
	)

	_, err = svc.Submit(context.Background(), submissionPayload(t))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	// Nothing was stored, so nothing gets announced.
	assert.Zero(t, notifier.admin)
	assert.Empty(t, notifier.applicants)
}

func TestLoadDraftStoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := storemocks.NewMockRecordStore(ctrl)
	records.EXPECT().
		Get(gomock.Any(), "draft-1", models.KindDraft).
		Return(nil, fmt.Errorf("read: %w", sentinel.ErrUnavailable))

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cryptoSvc, err := crypto.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	svc := New(records, cryptoSvc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err = svc.LoadDraft(context.Background(), "draft-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestCleanupExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, f.records.Store(ctx, &models.Record{
		ID:        "stale",
		Kind:      models.KindApplication,
		Data:      "x",
		Status:    models.StatusPending,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(10 * time.Millisecond),
	}))
	time.Sleep(20 * time.Millisecond)

	removed, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := f.auditStore.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCleanupRun, entries[0].Action)
	assert.Equal(t, "1", entries[0].Details["removed"])
}
