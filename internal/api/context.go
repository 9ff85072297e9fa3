package api

import (
	"context"

	"github.com/matiasleandrokruk/genhub/internal/api/ctxkeys"
)

// WithClient adds the authenticated client label to the request context.
func WithClient(ctx context.Context, client string) context.Context {
	return ctxkeys.WithValue(ctx, ctxkeys.Client, client)
}

// GetClient retrieves the authenticated client label from context.
func GetClient(ctx context.Context) (string, error) {
	c, ok := ctxkeys.String(ctx, ctxkeys.Client)
	if !ok {
		return "", ErrMissingClient
	}
	return c, nil
}
