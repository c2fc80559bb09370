package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/rates"
)

// RateStore is the part of the storage layer that holds the editable rate table.
type RateStore interface {
	GetRoomRates(ctx context.Context) ([]model.RoomRateRecord, error)
	GetAliases(ctx context.Context) ([]model.AliasEntry, error)
}

// RateTableOptions selects where the room-rate table comes from.
type RateTableOptions struct {
	Store       RateStore
	Source      string // builtin, file or db
	RatesFile   string
	AliasesFile string
	Build       rates.BuildOptions
}

// LoadRateTable reads rate records and aliases from the selected source and
// builds the immutable lookup table. An aliases file, when given, replaces
// the source's aliases.
func LoadRateTable(ctx context.Context, opts RateTableOptions) (*rates.Table, error) {
	var (
		records []model.RoomRateRecord
		aliases []model.AliasEntry
		err     error
	)

	switch opts.Source {
	case "builtin", "":
		if records, err = rates.BuiltinRecords(); err != nil {
			return nil, err
		}
		if aliases, err = rates.BuiltinAliases(); err != nil {
			return nil, err
		}
	case "file":
		if records, err = ReadRateFile(opts.RatesFile); err != nil {
			return nil, err
		}
	case "db":
		if opts.Store == nil {
			return nil, fmt.Errorf("%w: rate store", common.ErrMissingConfig)
		}
		if records, err = opts.Store.GetRoomRates(ctx); err != nil {
			return nil, fmt.Errorf("failed to load room rates: %w", err)
		}
		if aliases, err = opts.Store.GetAliases(ctx); err != nil {
			return nil, fmt.Errorf("failed to load aliases: %w", err)
		}
		if len(records) == 0 {
			return nil, common.NewUserError("the rate store is empty; run `musiqhub rates import` first", common.ErrNotFound)
		}
	default:
		return nil, fmt.Errorf("%w: rate source %q", common.ErrInvalidConfig, opts.Source)
	}

	if opts.AliasesFile != "" {
		if aliases, err = ReadAliasFile(opts.AliasesFile); err != nil {
			return nil, err
		}
	}

	table, err := rates.Build(records, aliases, opts.Build)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate table: %w", err)
	}
	return table, nil
}

// ReadRateFile parses a room-rate CSV file.
func ReadRateFile(path string) ([]model.RoomRateRecord, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open rate file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := rates.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadAliasFile parses an alias CSV file.
func ReadAliasFile(path string) ([]model.AliasEntry, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open alias file: %w", err)
	}
	defer func() { _ = f.Close() }()

	aliases, err := rates.ParseAliasCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return aliases, nil
}
