// Package storage persists the editable room-rate table and the report run
// history in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/musiqhub/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRecord  = errors.New("invalid room rate record")
	ErrInvalidAlias   = errors.New("invalid school alias")
	ErrInvalidRun     = errors.New("invalid report run")
	ErrInvalidLimit   = errors.New("limit must be positive")
	ErrDuplicateAlias = errors.New("duplicate school alias")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRecords(records []model.RoomRateRecord) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	for i, rec := range records {
		if rec.SchoolKey == "" {
			return fmt.Errorf("%w: record %d has no school", ErrInvalidRecord, i)
		}
		if rec.Rate.IsNegative() {
			return fmt.Errorf("%w: record %d has negative rate %s", ErrInvalidRecord, i, rec.Rate)
		}
	}
	return nil
}

func validateAliases(aliases []model.AliasEntry) error {
	if aliases == nil {
		return fmt.Errorf("%w: aliases", ErrNilParameter)
	}
	seen := make(map[string]bool, len(aliases))
	for i, a := range aliases {
		if a.AliasKey == "" || a.SchoolKey == "" {
			return fmt.Errorf("%w: entry %d is incomplete", ErrInvalidAlias, i)
		}
		if seen[a.AliasKey] {
			return fmt.Errorf("%w: %q", ErrDuplicateAlias, a.AliasKey)
		}
		seen[a.AliasKey] = true
	}
	return nil
}

func validateRun(run *model.ReportRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidRun)
	}
	if run.Lessons < 0 {
		return fmt.Errorf("%w: negative lesson count", ErrInvalidRun)
	}
	return nil
}
