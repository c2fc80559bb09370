package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/shopspring/decimal"
)

// ReplaceRoomRates swaps the stored rate table for records in one
// transaction. A later record for the same school and tutor wins.
func (s *SQLiteStorage) ReplaceRoomRates(ctx context.Context, records []model.RoomRateRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_rates`); err != nil {
			return fmt.Errorf("failed to clear room rates: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO room_rates (tutor_name, school_name, tutor_key, school_key, abbreviation, rate)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(school_key, tutor_key) DO UPDATE SET
				tutor_name = excluded.tutor_name,
				school_name = excluded.school_name,
				abbreviation = excluded.abbreviation,
				rate = excluded.rate,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, rec := range records {
			_, err := stmt.ExecContext(ctx,
				rec.TutorName,
				rec.SchoolName,
				rec.TutorKey,
				rec.SchoolKey,
				rec.Abbreviation,
				rec.Rate.StringFixed(2),
			)
			if err != nil {
				return fmt.Errorf("failed to save rate for %s at %s: %w", rec.TutorName, rec.SchoolName, err)
			}
		}
		return nil
	})
}

// GetRoomRates returns the stored rate table in insertion order.
func (s *SQLiteStorage) GetRoomRates(ctx context.Context) ([]model.RoomRateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRoomRatesTx(ctx, s.db)
}

func (s *SQLiteStorage) getRoomRatesTx(ctx context.Context, q queryable) ([]model.RoomRateRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT tutor_name, school_name, tutor_key, school_key, abbreviation, rate
		FROM room_rates
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query room rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.RoomRateRecord
	for rows.Next() {
		var rec model.RoomRateRecord
		var rate string
		if err := rows.Scan(
			&rec.TutorName,
			&rec.SchoolName,
			&rec.TutorKey,
			&rec.SchoolKey,
			&rec.Abbreviation,
			&rate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan room rate: %w", err)
		}
		if rec.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("stored rate %q for %s: %w", rate, rec.SchoolKey, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ReplaceAliases swaps the stored alias table in one transaction.
func (s *SQLiteStorage) ReplaceAliases(ctx context.Context, aliases []model.AliasEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAliases(aliases); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM school_aliases`); err != nil {
			return fmt.Errorf("failed to clear aliases: %w", err)
		}
		for _, a := range aliases {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO school_aliases (alias_key, school_key) VALUES (?, ?)
			`, a.AliasKey, a.SchoolKey); err != nil {
				return fmt.Errorf("failed to save alias %q: %w", a.AliasKey, err)
			}
		}
		return nil
	})
}

// GetAliases returns the stored aliases ordered by alias key.
func (s *SQLiteStorage) GetAliases(ctx context.Context) ([]model.AliasEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT alias_key, school_key
		FROM school_aliases
		ORDER BY alias_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var aliases []model.AliasEntry
	for rows.Next() {
		var a model.AliasEntry
		if err := rows.Scan(&a.AliasKey, &a.SchoolKey); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}

	return aliases, rows.Err()
}
