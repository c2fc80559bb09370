package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/musiqhub/internal/cli"
	"github.com/Veraticus/musiqhub/internal/config"
	"github.com/Veraticus/musiqhub/internal/export"
	"github.com/Veraticus/musiqhub/internal/pipeline"
	"github.com/Veraticus/musiqhub/internal/sheets"
	"github.com/Veraticus/musiqhub/internal/tui"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <source...>",
		Short: "Build the franchise report from lesson exports",
		Long: `Build the franchise report from one or more raw lesson exports.

Sources may be local spreadsheets (lessons.xlsx, lessons.xlsx#Term 1,
lessons.csv), S3 objects (s3://bucket/key.xlsx) or Google Sheets
(gsheet://<spreadsheet id>/<range>). Each source is cleaned and priced on
its own; the report combines them.`,
		Example: `  musiqhub report lessons.xlsx
  musiqhub report term1.csv term2.csv --xlsx report.xlsx
  musiqhub report s3://franchise/march.xlsx --sheets --save`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReport,
	}

	cmd.Flags().String("xlsx", "", "write the report to an Excel workbook")
	cmd.Flags().String("json", "", "write the report as JSON to a file (- for stdout)")
	cmd.Flags().Bool("sheets", false, "publish the report to the configured Google spreadsheet")
	cmd.Flags().Bool("tui", false, "browse the report interactively")
	cmd.Flags().Bool("save", false, "record the run summary in the database")
	cmd.Flags().Bool("no-gst", false, "treat billed amounts as GST exclusive")
	cmd.Flags().Bool("quiet", false, "do not print the report tables")
	addRateFlags(cmd)

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	resolver, err := loadResolver(ctx, settings)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(ctx, args)
	if err != nil {
		return err
	}

	p := pipeline.New(registry, resolver, pipeline.Options{
		Logger:   slog.Default(),
		Progress: cmd.ErrOrStderr(),
		ApplyGST: settings.ApplyGST,
	})

	result, err := p.Run(ctx, args)
	if err != nil {
		return err
	}

	writers, closers, err := reportWriters(cmd)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		return err
	}

	var recorder pipeline.RunRecorder
	if save, _ := cmd.Flags().GetBool("save"); save {
		store, err := initStorage(ctx, settings)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		recorder = store
	}

	if err := pipeline.Publish(ctx, result, recorder, writers...); err != nil {
		return err
	}

	if browse, _ := cmd.Flags().GetBool("tui"); browse {
		return tui.Run(ctx, result.Tables(), result.Run)
	}

	jsonPath, _ := cmd.Flags().GetString("json")
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && jsonPath != "-" {
		fmt.Fprintln(out, cli.FormatTitle("Lesson Report"))
		fmt.Fprintln(out, cli.RenderSummary(result.Run))
		fmt.Fprintln(out)
		fmt.Fprint(out, cli.RenderReport(result.Tables()))
	}

	if recorder != nil {
		slog.Info("Saved report run", "id", result.Run.ID)
	}
	return nil
}

// reportWriters opens the outputs selected by flags. The returned closers
// must be closed even when an error is returned.
func reportWriters(cmd *cobra.Command) ([]pipeline.Writer, []io.Closer, error) {
	var (
		writers []pipeline.Writer
		closers []io.Closer
	)

	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		writers = append(writers, export.NewXLSX(config.ExpandPath(path), slog.Default()))
	}

	if path, _ := cmd.Flags().GetString("json"); path != "" {
		if path == "-" {
			writers = append(writers, export.NewJSON(cmd.OutOrStdout()))
		} else {
			f, err := os.Create(config.ExpandPath(path)) // #nosec G304
			if err != nil {
				return nil, closers, fmt.Errorf("failed to create %s: %w", path, err)
			}
			closers = append(closers, f)
			writers = append(writers, export.NewJSON(f))
		}
	}

	if publish, _ := cmd.Flags().GetBool("sheets"); publish {
		sheetsConfig, err := config.LoadSheetsConfig()
		if err != nil {
			return nil, closers, fmt.Errorf("google sheets output: %w", err)
		}
		w, err := sheets.NewWriter(cmd.Context(), *sheetsConfig, slog.Default())
		if err != nil {
			return nil, closers, err
		}
		writers = append(writers, w)
	}

	return writers, closers, nil
}
