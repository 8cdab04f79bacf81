// Package apperr defines the error kinds the service layer reports. Handlers
// map them to HTTP statuses; services never wrap them in anything opaque.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrConcurrencyConflict reports an optimistic-lock version mismatch.
	// The caller should reload the aggregate and resubmit.
	ErrConcurrencyConflict = errors.New("the record was modified by another user, reload and retry")

	// ErrInvalidCredentials is returned by authentication on a bad
	// username/password pair, without saying which was wrong.
	ErrInvalidCredentials = errors.New("username or password is incorrect")
)

// ValidationError reports malformed or missing required input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent referenced entity, naming its type.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

func NotFound(entity string, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError reports a stock reservation that would drive an
// article's stock negative.
type InsufficientStockError struct {
	ArticleID uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for article %s: available %d, requested %d",
		e.ArticleID, e.Available, e.Requested)
}
