package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
)

// ProviderHandler serves provider records and their API keys.
type ProviderHandler struct {
	providers *provider.Service
	lookupEnv func(string) string
}

// NewProviderHandler creates a new ProviderHandler instance. Keys are imported from os.Getenv.
func NewProviderHandler(providers *provider.Service) *ProviderHandler {
	return &ProviderHandler{providers: providers, lookupEnv: os.Getenv}
}

type setKeyRequest struct {
	APIKey string `json:"api_key"`
}

// ListProviders handles GET /api/v1/providers. Keys are never returned.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.List(r.Context())
	if err != nil {
		writeServiceError(w, "list providers", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": providers})
}

// GetProvider handles GET /api/v1/providers/{name}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, "get provider", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AddProvider handles POST /api/v1/providers
func (h *ProviderHandler) AddProvider(w http.ResponseWriter, r *http.Request) {
	var req provider.AddInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.providers.Add(r.Context(), req)
	if err != nil {
		writeServiceError(w, "add provider", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProvider handles PUT /api/v1/providers/{name}
func (h *ProviderHandler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	var req provider.UpdateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.providers.Update(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		writeServiceError(w, "update provider", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProvider handles DELETE /api/v1/providers/{name}
func (h *ProviderHandler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.providers.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, "delete provider", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAPIKey handles PUT /api/v1/providers/{name}/key
// The key is stored even when it fails validation; the body reports the outcome.
func (h *ProviderHandler) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req setKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.providers.SetAPIKey(r.Context(), chi.URLParam(r, "name"), req.APIKey)
	if err != nil {
		writeServiceError(w, "set api key", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ValidateKey handles POST /api/v1/providers/{name}/validate
func (h *ProviderHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	status, err := h.providers.ValidateKey(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, "validate api key", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ImportEnvKeys handles POST /api/v1/providers/import-env. Only routed in development mode.
func (h *ProviderHandler) ImportEnvKeys(w http.ResponseWriter, r *http.Request) {
	imported, err := h.providers.ImportFromEnv(r.Context(), h.lookupEnv)
	if err != nil {
		writeServiceError(w, "import api keys", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}
