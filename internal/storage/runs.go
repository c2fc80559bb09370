package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/shopspring/decimal"
)

const runColumns = `id, created_at, sources, lessons, total_billed, total_gst,
	total_room_hire, total_profit, total_support_fee, gst_applied, zero_rate_schools`

// SaveReportRun records the headline figures of a run.
func (s *SQLiteStorage) SaveReportRun(ctx context.Context, run *model.ReportRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	sources, err := json.Marshal(nonNil(run.Sources))
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	zero, err := json.Marshal(nonNil(run.ZeroRateSchools))
	if err != nil {
		return fmt.Errorf("failed to encode zero-rate schools: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UTC(),
		string(sources),
		run.Lessons,
		run.TotalBilled.StringFixed(2),
		run.TotalGST.StringFixed(2),
		run.TotalRoomHire.StringFixed(2),
		run.TotalProfit.StringFixed(2),
		run.TotalSupportFee.StringFixed(2),
		run.GSTApplied,
		string(zero),
	)
	if err != nil {
		return fmt.Errorf("failed to save report run: %w", err)
	}
	return nil
}

// GetReportRun retrieves a run by ID. Missing runs return common.ErrNotFound.
func (s *SQLiteStorage) GetReportRun(ctx context.Context, id string) (*model.ReportRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM report_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListReportRuns returns the most recent runs, newest first.
func (s *SQLiteStorage) ListReportRuns(ctx context.Context, limit int) ([]model.ReportRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM report_runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ReportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.ReportRun, error) {
	var (
		run                                        model.ReportRun
		sources, zero                              string
		billed, gst, roomHire, profit, supportFees string
	)

	err := row.Scan(
		&run.ID,
		&run.CreatedAt,
		&sources,
		&run.Lessons,
		&billed,
		&gst,
		&roomHire,
		&profit,
		&supportFees,
		&run.GSTApplied,
		&zero,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report run: %w", err)
	}

	if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}
	if err := json.Unmarshal([]byte(zero), &run.ZeroRateSchools); err != nil {
		return nil, fmt.Errorf("failed to decode zero-rate schools: %w", err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&run.TotalBilled, billed},
		{&run.TotalGST, gst},
		{&run.TotalRoomHire, roomHire},
		{&run.TotalProfit, profit},
		{&run.TotalSupportFee, supportFees},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return nil, fmt.Errorf("stored amount %q: %w", f.raw, err)
		}
	}

	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
