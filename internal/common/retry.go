package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/musiqhub/internal/service"
)

var (
	// ErrRateLimit indicates that the Sheets or S3 API throttled a request.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError marks whether a failed fetch or publish may be attempted again.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// permanent lists failures that another attempt cannot fix: a missing
// export, an unreadable layout or absent credentials.
var permanent = []error{ErrNotFound, ErrUnsupportedSource, ErrSchemaMismatch, ErrMissingConfig}

func isPermanent(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) && !retryable.Retryable {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, target := range permanent {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// WithRetry runs a remote step of a report run, such as fetching an export
// or writing a Sheets tab, with exponential backoff. label names the step in
// logs and in the final error.
func WithRetry(ctx context.Context, label string, operation func() error, opts service.RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 1 {
				slog.Debug("Recovered after retry", "step", label, "attempts", attempt)
			}
			return nil
		}
		if isPermanent(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%s: %w after %d attempts: %w", label, ErrMaxRetries, attempt, err)
		}

		// A throttled API needs the longest pause before the next call.
		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		slog.Warn("Remote step failed, retrying",
			"step", label,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}
