package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidKind    = errors.New("invalid entry kind")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrTitleTooLong   = errors.New("title too long (max 200 characters)")
)

// ValidationError reports the required fields a request left out. It is
// always recoverable at the boundary: the caller corrects the input.
type ValidationError struct {
	Missing []string
}

func NewValidationError(missing ...string) *ValidationError {
	return &ValidationError{Missing: missing}
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 1 {
		return e.Missing[0] + " is required"
	}
	return strings.Join(e.Missing, ", ") + " are required"
}

// NotFoundError marks an entity that is absent or not owned by the caller.
// Ownership violations deliberately look identical to missing rows.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ComputationError wraps any unexpected failure inside the aggregation
// engine. Its message is generic; the cause is only for logs.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("failed to compute %s", e.Op)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
