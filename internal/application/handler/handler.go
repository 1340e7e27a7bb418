// Package handler exposes the record store over HTTP: the public wizard
// endpoints and the JWT-guarded review surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lendo/internal/application/models"
	"lendo/internal/application/service"
	"lendo/internal/application/validate"
	"lendo/internal/audit"
	"lendo/internal/platform/middleware"
	dErrors "lendo/pkg/domain-errors"
	"lendo/pkg/platform/httputil"
	"lendo/pkg/requestcontext"
)

// Service defines the operations the handler needs.
type Service interface {
	SaveDraft(ctx context.Context, raw map[string]any, existingID string) (string, []validate.FieldError, error)
	LoadDraft(ctx context.Context, id string) (map[string]any, error)
	Submit(ctx context.Context, raw map[string]any) (*service.SubmitResult, error)
	GetApplication(ctx context.Context, id string) (*service.Application, error)
	UpdateStatus(ctx context.Context, id string, next models.Status) (*service.Application, error)
	ListPending(ctx context.Context) ([]string, error)
	CleanupExpired(ctx context.Context) (int, error)
	AuditTrail(ctx context.Context, resourceID string) ([]audit.Entry, error)
}

// Handler serves the application endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	validator middleware.TokenValidator
}

// New creates a Handler. The validator guards only the review subtree.
func New(svc Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		service:   svc,
		validator: validator,
	}
}

// Register mounts the routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(public chi.Router) {
		public.Use(middleware.RequestID)
		public.Use(middleware.ClientMetadata)
		public.Post("/draft", h.handleSaveDraft)
		public.Get("/draft", h.handleLoadDraft)
		public.Post("/submit", h.handleSubmit)
	})

	r.Route("/review", func(review chi.Router) {
		review.Use(middleware.RequestID)
		review.Use(middleware.ClientMetadata)
		review.Use(middleware.RequireReviewer(h.validator, h.logger))
		review.Get("/applications/pending", h.handleListPending)
		review.Get("/applications/{id}", h.handleGetApplication)
		review.Put("/applications/{id}/status", h.handleUpdateStatus)
		review.Post("/cleanup", h.handleCleanup)
		review.Get("/audit", h.handleAuditTrail)
	})
}

func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DraftRequest
	if err := httputil.DecodeAndPrepare(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.DraftData == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "draftData is required"))
		return
	}

	id, fieldErrs, err := h.service.SaveDraft(ctx, req.DraftData, req.DraftID)
	if err != nil {
		if len(fieldErrs) > 0 {
			h.writeValidationFailure(w, fieldErrs)
			return
		}
		h.logError(ctx, "save draft failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, draftSavedResponse{
		Success: true,
		DraftID: id,
		Message: "Draft saved successfully",
	})
}

func (h *Handler) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.URL.Query().Get("draftId")
	if id == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "draftId query parameter is required"))
		return
	}

	data, err := h.service.LoadDraft(ctx, id)
	if err != nil {
		h.logError(ctx, "load draft failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, draftLoadedResponse{Success: true, Data: data})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var raw map[string]any
	if err := httputil.DecodeAndPrepare(r, &raw); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Submit(ctx, raw)
	if err != nil {
		if result != nil && len(result.FieldErrors) > 0 {
			h.writeValidationFailure(w, result.FieldErrors)
			return
		}
		h.logError(ctx, "submit failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, submitResponse{
		Success:       true,
		ApplicationID: result.ID,
		Warning:       result.Warning,
	})
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListPending(r.Context())
	if err != nil {
		h.logError(r.Context(), "list pending failed", err)
		httputil.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, pendingResponse{Success: true, IDs: ids})
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := h.service.GetApplication(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.logError(ctx, "get application failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, applicationResponse{
		Success:     true,
		Application: toApplicationView(app),
	})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StatusRequest
	if err := httputil.DecodeAndPrepare(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	next := models.Status(req.Status)
	if !next.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown status"))
		return
	}

	app, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), next)
	if err != nil {
		h.logError(ctx, "status update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, applicationResponse{
		Success:     true,
		Application: toApplicationView(app),
	})
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.CleanupExpired(r.Context())
	if err != nil {
		h.logError(r.Context(), "cleanup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cleanupResponse{Success: true, Removed: removed})
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resource := r.URL.Query().Get("resource")
	if resource == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "resource query parameter is required"))
		return
	}

	entries, err := h.service.AuditTrail(ctx, resource)
	if err != nil {
		h.logError(ctx, "audit trail fetch failed", err)
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, auditResponse{Success: true, Entries: entries})
}

func (h *Handler) writeValidationFailure(w http.ResponseWriter, fieldErrs []validate.FieldError) {
	httputil.WriteJSON(w, http.StatusBadRequest, validationResponse{
		Success:     false,
		Error:       string(dErrors.CodeValidation),
		FieldErrors: fieldErrs,
	})
}

func (h *Handler) logError(ctx context.Context, message string, err error) {
	// Expected outcomes stay at info level; only infrastructure trouble is an
	// error for the operator.
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, message,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	default:
		h.logger.InfoContext(ctx, message,
			"code", string(code),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
