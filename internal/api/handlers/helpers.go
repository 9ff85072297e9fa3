// Package handlers implements the JSON command surface over the chat core.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/domain/chat"
	"github.com/matiasleandrokruk/genhub/internal/domain/model"
	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"

	// maxBodyBytes bounds every JSON request body.
	maxBodyBytes = 1 << 20
)

// decodeJSON reads one JSON document from the request body into dst.
// An empty body is accepted and leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeJSON writes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(headerContentType, mimeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}

// writeServiceError maps a domain error onto its status code.
func writeServiceError(w http.ResponseWriter, action string, err error) {
	writeError(w, statusFor(err), fmt.Sprintf("failed to %s: %v", action, err))
}

func statusFor(err error) int {
	var cfgErr *settings.ConfigError
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsDuplicate(err):
		return http.StatusConflict
	case errors.Is(err, chat.ErrInvalidTurn),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, provider.ErrInvalidInput),
		errors.Is(err, provider.ErrBuiltinProvider),
		errors.Is(err, provider.ErrNoDefaultModel):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr) && cfgErr.Op == "validate":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// boolQuery reads a boolean query parameter; anything unparsable is false.
func boolQuery(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
