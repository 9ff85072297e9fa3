// Package apperr holds the storage error types shared by the domain services.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/matiasleandrokruk/genhub/internal/infra/sqlite"
)

// NotFoundError reports a missing row.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Entity, e.ID)
}

// DuplicateError reports an insert that collided with an existing key.
type DuplicateError struct {
	Entity string
	ID     string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with id '%s' already exists", e.Entity, e.ID)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is, or wraps, a *DuplicateError.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}

// FromSQL maps sql.ErrNoRows and unique violations to the typed errors; anything else is returned as is.
func FromSQL(err error, entity, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return &NotFoundError{Entity: entity, ID: id}
	case sqlite.IsUniqueViolation(err):
		return &DuplicateError{Entity: entity, ID: id}
	default:
		return err
	}
}

// RequireAffected turns a zero-row UPDATE/DELETE into a *NotFoundError.
func RequireAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
