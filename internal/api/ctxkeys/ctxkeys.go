// Package ctxkeys holds the context keys shared by the api middleware and handlers.
// It is a leaf package so api and api/handlers can both import it.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
type Key string

const (
	// Client is the label the session token was minted for. Injected by AuthMiddleware.
	Client Key = "client"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String reads a string value set with WithValue. ok is false for missing or empty values.
func String(ctx context.Context, key Key) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
