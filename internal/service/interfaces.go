// Package service defines the interfaces shared between the reporting
// pipeline and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/musiqhub/internal/model"
)

// Storage defines the contract for the persistence layer: the editable
// room-rate table and the history of report runs.
type Storage interface {
	// Room rate operations
	ReplaceRoomRates(ctx context.Context, records []model.RoomRateRecord) error
	GetRoomRates(ctx context.Context) ([]model.RoomRateRecord, error)
	ReplaceAliases(ctx context.Context, aliases []model.AliasEntry) error
	GetAliases(ctx context.Context) ([]model.AliasEntry, error)

	// Report run operations
	SaveReportRun(ctx context.Context, run *model.ReportRun) error
	GetReportRun(ctx context.Context, id string) (*model.ReportRun, error)
	ListReportRuns(ctx context.Context, limit int) ([]model.ReportRun, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// GridSource fetches a raw lesson export as rows of cells.
type GridSource interface {
	// Supports reports whether ref is a location this source can read.
	Supports(ref string) bool
	Fetch(ctx context.Context, ref string) ([][]string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions is used for remote sources when nothing is configured.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}
