// Package uuid provides UUID v7 generation for message and conversation ids.
// UUID v7 is sortable by timestamp, which keeps sqlite primary key indexes append-friendly.
package uuid

import (
	"github.com/google/uuid"
)

// UUID is a v7 identifier.
type UUID = uuid.UUID

// NewV7 generates a new UUID v7.
// Falls back to a random v4 if the monotonic clock source fails, so callers never get a zero id.
func NewV7() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// NewString returns NewV7 in canonical form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func NewString() string {
	return NewV7().String()
}
