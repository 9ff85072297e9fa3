package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/matiasleandrokruk/genhub/internal/api/ctxkeys"
)

// AccessLog writes one structured line per request: the command it maps to, the
// status and the duration. Expected order in router: AuthMiddleware -> AccessLog -> handlers.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			attrs := []any{
				"command", commandFromRequest(r.Method, r.URL.Path),
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if client, ok := ctxkeys.String(r.Context(), ctxkeys.Client); ok {
				attrs = append(attrs, "client", client)
			}
			logger.Log(r.Context(), levelFromStatus(recorder.statusCode), "request", attrs...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets the events WebSocket upgrade through the recorder.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func levelFromStatus(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// commandFromRequest names the command a request invokes, e.g. "send_turn" or "update_provider".
func commandFromRequest(method, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "api" || segments[1] != "v1" {
		return strings.ToLower(method) + "_request"
	}

	entity := singularEntity(segments[2])
	if entity == "" {
		return strings.ToLower(method) + "_request"
	}

	switch len(segments) {
	case 3:
		return actionForCollection(method, entity)
	case 4:
		if sub := subCommand(method, entity, segments[3]); sub != "" {
			return sub
		}
		return actionForEntity(method, entity)
	default:
		if sub := subCommand(method, entity, segments[len(segments)-1]); sub != "" {
			return sub
		}
		return actionForEntity(method, entity)
	}
}

func singularEntity(entity string) string {
	entityMap := map[string]string{
		"chats":     "chat",
		"models":    "model",
		"providers": "provider",
		"settings":  "settings",
		"events":    "events",
	}
	return entityMap[entity]
}

// subCommand maps action suffixes like /turns or /key onto their command names.
func subCommand(method, entity, last string) string {
	switch {
	case entity == "chat" && last == "turns" && method == http.MethodPost:
		return "send_turn"
	case entity == "chat" && last == "messages" && method == http.MethodGet:
		return "load_chat_messages"
	case entity == "chat" && last == "archive":
		return "archive_chat"
	case entity == "provider" && last == "key":
		return "set_provider_key"
	case entity == "provider" && last == "validate":
		return "validate_provider_key"
	case entity == "provider" && last == "import-env":
		return "import_provider_keys"
	}
	return ""
}

func actionForCollection(method, entity string) string {
	switch {
	case entity == "events":
		return "subscribe_events"
	case entity == "settings" && method == http.MethodGet:
		return "get_settings"
	case entity == "settings" && method == http.MethodPut:
		return "apply_settings"
	case method == http.MethodPost:
		return "add_" + entity
	case method == http.MethodGet:
		return "list_" + entity
	}
	return strings.ToLower(method) + "_" + entity
}

func actionForEntity(method, entity string) string {
	switch method {
	case http.MethodGet:
		return "get_" + entity
	case http.MethodPut, http.MethodPatch:
		return "update_" + entity
	case http.MethodDelete:
		return "delete_" + entity
	case http.MethodPost:
		return "add_" + entity
	}
	return strings.ToLower(method) + "_" + entity
}
