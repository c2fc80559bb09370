package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaMismatchError(t *testing.T) {
	err := fmt.Errorf("clean sheet: %w", &SchemaMismatchError{Expected: 10, Actual: 7})

	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "sheet has 7 columns, expected at least 10")

	var mismatch *SchemaMismatchError
	if assert.ErrorAs(t, err, &mismatch) {
		assert.Equal(t, 10, mismatch.Expected)
		assert.Equal(t, 7, mismatch.Actual)
	}
}

func TestInvalidFeeInputError(t *testing.T) {
	err := &InvalidFeeInputError{Value: "twelve"}

	assert.ErrorIs(t, err, ErrInvalidFeeInput)
	assert.Equal(t, `fee "twelve" is not numeric`, err.Error())
}

func TestUserError(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want string
	}{
		{
			name: "with wrapped error",
			err:  NewUserError("could not read sheet", ErrEmptySheet),
			want: "could not read sheet: sheet has no rows",
		},
		{
			name: "message only",
			err:  NewUserError("nothing to do", nil),
			want: "nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "rate limit", err: ErrRateLimit, want: true},
		{name: "source unavailable", err: fmt.Errorf("s3: %w", ErrSourceUnavailable), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "schema mismatch", err: &SchemaMismatchError{Expected: 10, Actual: 3}, want: false},
		{name: "marked retryable", err: &RetryableError{Err: errors.New("flaky"), Retryable: true}, want: true},
		{name: "marked permanent", err: &RetryableError{Err: errors.New("denied"), Retryable: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
