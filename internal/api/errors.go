package api

import "errors"

var (
	// ErrMissingClient is returned when no authenticated client is in context
	ErrMissingClient = errors.New("missing client in context")
)
