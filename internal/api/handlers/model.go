package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/genhub/internal/domain/model"
)

// ModelHandler serves the model catalogue.
type ModelHandler struct {
	models *model.Service
}

// NewModelHandler creates a new ModelHandler instance.
func NewModelHandler(models *model.Service) *ModelHandler {
	return &ModelHandler{models: models}
}

// modelKey reads {provider} and the model name from the trailing wildcard, which may contain slashes.
func modelKey(r *http.Request) (string, string) {
	return chi.URLParam(r, "provider"), chi.URLParam(r, "*")
}

// ListModels handles GET /api/v1/models. ?all=true lists the whole catalogue.
func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	list := h.models.ListAvailable
	if boolQuery(r, "all") {
		list = h.models.ListAll
	}
	models, err := list(r.Context())
	if err != nil {
		writeServiceError(w, "list models", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": models})
}

// GetModel handles GET /api/v1/models/{provider}/{model}
func (h *ModelHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	p, name := modelKey(r)
	m, err := h.models.Get(r.Context(), p, name)
	if err != nil {
		writeServiceError(w, "get model", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AddModel handles POST /api/v1/models
func (h *ModelHandler) AddModel(w http.ResponseWriter, r *http.Request) {
	req := model.Model{Show: true}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.models.Add(r.Context(), req)
	if err != nil {
		writeServiceError(w, "add model", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateModel handles PUT /api/v1/models/{provider}/{model}
// Omitted fields keep their stored values.
func (h *ModelHandler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	p, name := modelKey(r)
	existing, err := h.models.Get(r.Context(), p, name)
	if err != nil {
		writeServiceError(w, "update model", err)
		return
	}

	req := *existing
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.models.Update(r.Context(), p, name, req)
	if err != nil {
		writeServiceError(w, "update model", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteModel handles DELETE /api/v1/models/{provider}/{model}
func (h *ModelHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	p, name := modelKey(r)
	if err := h.models.Delete(r.Context(), p, name); err != nil {
		writeServiceError(w, "delete model", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
