package handler

import (
	"time"

	"lendo/internal/application/models"
	"lendo/internal/application/service"
	"lendo/internal/application/validate"
	"lendo/internal/audit"
)

type draftSavedResponse struct {
	Success bool   `json:"success"`
	DraftID string `json:"draftId"`
	Message string `json:"message"`
}

type draftLoadedResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
}

type submitResponse struct {
	Success       bool   `json:"success"`
	ApplicationID string `json:"applicationId"`
	Warning       string `json:"warning,omitempty"`
}

// validationResponse carries per-field failures back to the wizard so it can
// highlight inputs. Only validation failures expose this level of detail.
type validationResponse struct {
	Success     bool                  `json:"success"`
	Error       string                `json:"error"`
	FieldErrors []validate.FieldError `json:"fieldErrors"`
}

type applicationView struct {
	ID        string         `json:"id"`
	Status    models.Status  `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Data      map[string]any `json:"data"`
}

func toApplicationView(app *service.Application) applicationView {
	return applicationView{
		ID:        app.ID,
		Status:    app.Status,
		CreatedAt: app.CreatedAt,
		ExpiresAt: app.ExpiresAt,
		Data:      app.Data,
	}
}

type applicationResponse struct {
	Success     bool            `json:"success"`
	Application applicationView `json:"application"`
}

type pendingResponse struct {
	Success bool     `json:"success"`
	IDs     []string `json:"ids"`
}

type cleanupResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}

type auditResponse struct {
	Success bool          `json:"success"`
	Entries []audit.Entry `json:"entries"`
}
