package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/musiqhub/internal/cli"
	"github.com/Veraticus/musiqhub/internal/config"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/pipeline"
	"github.com/Veraticus/musiqhub/internal/rates"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/Veraticus/musiqhub/internal/storage"
	"github.com/spf13/cobra"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Inspect and manage the room-rate table",
	}

	cmd.AddCommand(ratesListCmd())
	cmd.AddCommand(ratesResolveCmd())
	cmd.AddCommand(ratesAliasesCmd())
	cmd.AddCommand(ratesImportCmd())
	cmd.AddCommand(ratesSnapshotsCmd())
	cmd.AddCommand(ratesRestoreCmd())

	return cmd
}

func ratesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List room rates",
		Long: `List the room-rate records in use, or with --defaults the school-wide
rate each school resolves to.`,
		Args: cobra.NoArgs,
		RunE: runRatesList,
	}
	cmd.Flags().Bool("defaults", false, "show the derived school defaults instead of the raw records")
	addRateFlags(cmd)
	return cmd
}

func runRatesList(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	resolver, err := loadResolver(cmd.Context(), settings)
	if err != nil {
		return err
	}
	table := resolver.Table()

	var view report.Table
	if defaults, _ := cmd.Flags().GetBool("defaults"); defaults {
		view = report.Table{
			Title:   fmt.Sprintf("School Defaults (%s)", table.ZeroPolicy()),
			Columns: []string{"School", "Rate"},
			Kinds:   []report.Kind{report.KindText, report.KindMoney},
		}
		for _, key := range table.DefaultKeys() {
			rate, _ := table.Default(key)
			view.Rows = append(view.Rows, []string{key, rate.StringFixed(2)})
		}
	} else {
		view = recordsTable(table.Records())
	}

	fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(view))
	return nil
}

func recordsTable(records []model.RoomRateRecord) report.Table {
	t := report.Table{
		Title:   "Room Rates",
		Columns: []string{"Tutor", "School", "Abbreviation", "Rate"},
		Kinds:   []report.Kind{report.KindText, report.KindText, report.KindText, report.KindMoney},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.TutorName, r.SchoolName, r.Abbreviation, r.Rate.StringFixed(2)})
	}
	return t
}

func ratesResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <school> [tutor]",
		Short: "Show which rate a school and tutor resolve to",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			resolver, err := loadResolver(cmd.Context(), settings)
			if err != nil {
				return err
			}

			var tutor string
			if len(args) == 2 {
				tutor = args[1]
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderResolution(args[0], tutor, resolver.Resolve(args[0], tutor)))
			return nil
		},
	}
	addRateFlags(cmd)
	return cmd
}

func ratesAliasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "List school aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			resolver, err := loadResolver(cmd.Context(), settings)
			if err != nil {
				return err
			}

			view := report.Table{
				Title:   "School Aliases",
				Columns: []string{"Alias", "School"},
				Kinds:   []report.Kind{report.KindText, report.KindText},
			}
			for _, a := range resolver.Table().Aliases() {
				view.Rows = append(view.Rows, []string{a.AliasKey, a.SchoolKey})
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(view))
			return nil
		},
	}
	addRateFlags(cmd)
	return cmd
}

func ratesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <rates.csv>",
		Short: "Replace the stored room rates with a CSV file",
		Long: `Replace the room rates kept in the database with the contents of a CSV
file. Reports use them when rates.source is "db". With --aliases the stored
school aliases are replaced too.`,
		Args: cobra.ExactArgs(1),
		RunE: runRatesImport,
	}
	cmd.Flags().String("aliases", "", "alias CSV to store alongside the rates")
	cmd.Flags().BoolP("yes", "y", false, "replace without asking")
	return cmd
}

func runRatesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	records, err := pipeline.ReadRateFile(config.ExpandPath(args[0]))
	if err != nil {
		return err
	}

	var aliases []model.AliasEntry
	aliasPath, _ := cmd.Flags().GetString("aliases")
	if aliasPath != "" {
		if aliases, err = pipeline.ReadAliasFile(config.ExpandPath(aliasPath)); err != nil {
			return err
		}
	}

	// Refuse tables the report could not load.
	if _, err := rates.Build(records, aliases, settings.BuildOptions()); err != nil {
		return err
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	existing, err := store.GetRoomRates(ctx)
	if err != nil {
		return err
	}
	if yes, _ := cmd.Flags().GetBool("yes"); !yes && len(existing) > 0 {
		question := fmt.Sprintf("Replace %d stored rate(s) with %d from %s?", len(existing), len(records), args[0])
		ok, err := cli.NewLineReader(cmd.InOrStdin()).Confirm(ctx, cmd.OutOrStdout(), question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Import cancelled"))
			return nil
		}
	}

	if len(existing) > 0 {
		snaps, err := storage.NewSnapshots(store)
		if err != nil {
			return err
		}
		snap, err := snaps.AutoSnapshot(ctx, "rates-import")
		if err != nil {
			return err
		}
		slog.Info("Saved previous rates", "snapshot", snap.ID)
	}

	if err := store.ReplaceRoomRates(ctx, records); err != nil {
		return err
	}
	if aliasPath != "" {
		if err := store.ReplaceAliases(ctx, aliases); err != nil {
			return err
		}
	}

	slog.Info("Imported room rates", "records", len(records), "aliases", len(aliases), "database", settings.DatabasePath)
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Stored %d room rate(s)", len(records))))
	return nil
}

func ratesSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List database snapshots taken before rate imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snaps, err := storage.NewSnapshots(store)
			if err != nil {
				return err
			}
			list, err := snaps.List(ctx)
			if err != nil {
				return err
			}

			view := report.Table{
				Title:   "Snapshots",
				Columns: []string{"Snapshot", "Created", "Rates", "Aliases", "Runs", "Description"},
				Kinds: []report.Kind{
					report.KindText, report.KindText, report.KindCount,
					report.KindCount, report.KindCount, report.KindText,
				},
			}
			for _, s := range list {
				view.Rows = append(view.Rows, []string{
					s.ID,
					s.CreatedAt.Local().Format("2006-01-02 15:04"),
					strconv.Itoa(s.RoomRates),
					strconv.Itoa(s.Aliases),
					strconv.Itoa(s.ReportRuns),
					s.Description,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(view))
			return nil
		},
	}
}

func ratesRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <snapshot>",
		Short: "Restore the database from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := cli.NewLineReader(cmd.InOrStdin()).Confirm(ctx, cmd.OutOrStdout(),
					fmt.Sprintf("Replace the database with snapshot %s?", args[0]))
				if err != nil || !ok {
					_ = store.Close()
					return err
				}
			}

			snaps, err := storage.NewSnapshots(store)
			if err != nil {
				_ = store.Close()
				return err
			}
			// Restore closes the store on success.
			if err := snaps.Restore(ctx, args[0]); err != nil {
				_ = store.Close()
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Restored snapshot "+args[0]))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "restore without asking")
	return cmd
}
