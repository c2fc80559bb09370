package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/musiqhub/internal/config"
	"github.com/Veraticus/musiqhub/internal/pipeline"
	"github.com/Veraticus/musiqhub/internal/rates"
	"github.com/Veraticus/musiqhub/internal/sheets"
	"github.com/Veraticus/musiqhub/internal/source"
	"github.com/Veraticus/musiqhub/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys such as rates.zero_policy onto
// MUSIQHUB_RATES_ZERO_POLICY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadSettings reads the validated settings after applying the rate flags
// shared by `report` and `rates resolve`.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	flags := cmd.Flags()
	bind := map[string]string{
		"rates-source":  "rates.source",
		"rates-file":    "rates.file",
		"aliases-file":  "rates.aliases_file",
		"zero-policy":   "rates.zero_policy",
		"fuzzy-scope":   "rates.fuzzy_scope",
		"fuzzy-minimum": "rates.fuzzy_threshold",
	}
	for flag, key := range bind {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
	if noFuzzy, _ := flags.GetBool("no-fuzzy"); noFuzzy {
		viper.Set("rates.fuzzy", false)
	}
	if noGST, _ := flags.GetBool("no-gst"); noGST {
		viper.Set("report.gst", false)
	}

	return config.LoadSettings()
}

func addRateFlags(cmd *cobra.Command) {
	cmd.Flags().String("rates-source", "", "where room rates come from (builtin, file, db)")
	cmd.Flags().String("rates-file", "", "room-rate CSV used when the rates source is file")
	cmd.Flags().String("aliases-file", "", "school alias CSV replacing the source's aliases")
	cmd.Flags().String("zero-policy", "", "how zero rates count toward a school default (legacy, lowest-nonzero)")
	cmd.Flags().String("fuzzy-scope", "", "which names fuzzy matching compares against (schools, all)")
	cmd.Flags().Float64("fuzzy-minimum", 0, "minimum similarity for a fuzzy match (0-1]")
	cmd.Flags().Bool("no-fuzzy", false, "disable fuzzy school matching")
}

// loadResolver builds the rate table the settings select. The store is
// only opened when rates come from the database.
func loadResolver(ctx context.Context, settings *config.Settings) (*rates.Resolver, error) {
	opts := pipeline.RateTableOptions{
		Source:      settings.RatesSource,
		RatesFile:   settings.RatesFile,
		AliasesFile: settings.AliasesFile,
		Build:       settings.BuildOptions(),
	}

	if settings.RatesSource == config.RatesStore {
		store, err := initStorage(ctx, settings)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		opts.Store = store
	}

	table, err := pipeline.LoadRateTable(ctx, opts)
	if err != nil {
		return nil, err
	}
	return rates.NewResolver(table, settings.ResolverOptions()), nil
}

// buildRegistry registers every lesson source that is configured. Local
// files always work; S3 and Google Sheets are added when their settings
// are present.
func buildRegistry(ctx context.Context, refs []string) (*source.Registry, error) {
	logger := slog.Default()
	registry := source.NewRegistry(logger, source.File{})

	if anyPrefix(refs, "s3://") {
		s3Source, err := source.NewS3(ctx, config.LoadS3Config(), logger)
		if err != nil {
			return nil, err
		}
		registry.Register(s3Source)
	}

	if anyPrefix(refs, "gsheet://") {
		sheetsConfig, err := config.LoadSheetsConfig()
		if err != nil {
			return nil, fmt.Errorf("google sheets source: %w", err)
		}
		reader, err := sheets.NewReader(ctx, *sheetsConfig, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(source.NewGoogleSheet(reader))
	}

	return registry, nil
}

func anyPrefix(refs []string, prefix string) bool {
	for _, ref := range refs {
		if strings.HasPrefix(strings.ToLower(ref), prefix) {
			return true
		}
	}
	return false
}
