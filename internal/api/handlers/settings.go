package handlers

import (
	"net/http"

	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
)

// SettingsHandler serves the user settings.
type SettingsHandler struct {
	store *settings.Store
}

// NewSettingsHandler creates a new SettingsHandler instance.
func NewSettingsHandler(store *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Get())
}

// ApplySettings handles PUT /api/v1/settings. Omitted fields keep their current values.
func (h *SettingsHandler) ApplySettings(w http.ResponseWriter, r *http.Request) {
	next := h.store.Get()
	if err := decodeJSON(w, r, &next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Apply(next); err != nil {
		writeServiceError(w, "apply settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Get())
}
