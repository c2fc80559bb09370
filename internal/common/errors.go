// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Sheet errors.
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrEmptySheet     = errors.New("sheet has no rows")

	// Rate table errors.
	ErrInvalidRate = errors.New("invalid room rate")
	ErrAliasCycle  = errors.New("alias cycle")

	// Fee classification errors.
	ErrInvalidFeeInput = errors.New("invalid fee input")

	// Source errors.
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrSourceUnavailable = errors.New("source unavailable")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SchemaMismatchError reports a raw sheet narrower than the expected column layout.
type SchemaMismatchError struct {
	Expected int
	Actual   int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("sheet has %d columns, expected at least %d", e.Actual, e.Expected)
}

// Unwrap lets errors.Is match ErrSchemaMismatch.
func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// InvalidFeeInputError reports a fee value that is not a number.
type InvalidFeeInputError struct {
	Value string
}

func (e *InvalidFeeInputError) Error() string {
	return fmt.Sprintf("fee %q is not numeric", e.Value)
}

// Unwrap lets errors.Is match ErrInvalidFeeInput.
func (e *InvalidFeeInputError) Unwrap() error {
	return ErrInvalidFeeInput
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
