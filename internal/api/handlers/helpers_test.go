package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/domain/chat"
	"github.com/matiasleandrokruk/genhub/internal/domain/model"
	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get: %w", &apperr.NotFoundError{Entity: "Chat", ID: "x"}), http.StatusNotFound},
		{"duplicate", &apperr.DuplicateError{Entity: "Model", ID: "x"}, http.StatusConflict},
		{"invalid turn", fmt.Errorf("%w: empty", chat.ErrInvalidTurn), http.StatusBadRequest},
		{"invalid model", model.ErrInvalidInput, http.StatusBadRequest},
		{"invalid provider", provider.ErrInvalidInput, http.StatusBadRequest},
		{"builtin", provider.ErrBuiltinProvider, http.StatusBadRequest},
		{"no default model", provider.ErrNoDefaultModel, http.StatusBadRequest},
		{"bad setting", &settings.ConfigError{Op: "validate", Setting: "code_theme", Err: errors.New("x")}, http.StatusBadRequest},
		{"save failure", &settings.ConfigError{Op: "save", Path: "/x", Err: errors.New("x")}, http.StatusInternalServerError},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("%s: statusFor = %d; want %d", tc.name, got, tc.want)
		}
	}
}

func TestWriteServiceError_JSONBody(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	writeServiceError(w, "get chat", &apperr.NotFoundError{Entity: "Chat", ID: "c1"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w.Code)
	}
	if ct := w.Header().Get(headerContentType); ct != mimeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"error":"failed to get chat: Chat with id 'c1' not found"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestDecodeJSON_EmptyBodyAllowed(t *testing.T) {
	t.Parallel()

	dst := model.Model{Show: true}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := decodeJSON(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatalf("decodeJSON(empty) = %v", err)
	}
	if !dst.Show {
		t.Error("empty body must leave dst unchanged")
	}

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := decodeJSON(httptest.NewRecorder(), bad, &dst); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestSameHostOrLoopback(t *testing.T) {
	t.Parallel()

	cases := []struct {
		origin, host string
		want         bool
	}{
		{"", "127.0.0.1:7450", true},
		{"http://127.0.0.1:7450", "127.0.0.1:7450", true},
		{"http://localhost:5173", "127.0.0.1:7450", true},
		{"http://[::1]:3000", "127.0.0.1:7450", true},
		{"https://evil.example", "127.0.0.1:7450", false},
		{"://bad", "127.0.0.1:7450", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Host = tc.host
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := sameHostOrLoopback(req); got != tc.want {
			t.Errorf("origin %q host %q: got %v; want %v", tc.origin, tc.host, got, tc.want)
		}
	}
}
