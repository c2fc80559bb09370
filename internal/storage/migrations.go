package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Room rates and school aliases",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS room_rates (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					tutor_name TEXT NOT NULL DEFAULT '',
					school_name TEXT NOT NULL,
					tutor_key TEXT NOT NULL DEFAULT '',
					school_key TEXT NOT NULL,
					rate TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(school_key, tutor_key)
				)`,
				`CREATE INDEX idx_room_rates_tutor ON room_rates(tutor_key)`,

				`CREATE TABLE IF NOT EXISTS school_aliases (
					alias_key TEXT PRIMARY KEY,
					school_key TEXT NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Report run history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS report_runs (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					sources TEXT NOT NULL,
					lessons INTEGER NOT NULL DEFAULT 0,
					total_billed TEXT NOT NULL,
					total_gst TEXT NOT NULL,
					total_room_hire TEXT NOT NULL,
					total_profit TEXT NOT NULL,
					total_support_fee TEXT NOT NULL,
					gst_applied INTEGER NOT NULL DEFAULT 0,
					zero_rate_schools TEXT NOT NULL DEFAULT '[]'
				)`,
				`CREATE INDEX idx_report_runs_created ON report_runs(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add school abbreviations to room rates",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE room_rates ADD COLUMN abbreviation TEXT NOT NULL DEFAULT ''`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
