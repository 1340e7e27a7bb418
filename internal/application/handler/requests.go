package handler

// DraftRequest is the body of POST /draft. DraftData is stored as given;
// DraftID, when present, keeps the wizard writing to the same slot.
type DraftRequest struct {
	DraftData map[string]any `json:"draftData"`
	DraftID   string         `json:"draftId,omitempty"`
}

// StatusRequest is the body of PUT /review/applications/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}
