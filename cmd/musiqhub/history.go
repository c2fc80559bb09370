package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/musiqhub/internal/cli"
	"github.com/Veraticus/musiqhub/internal/config"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run id]",
		Short: "List saved report runs",
		Long: `List the report runs recorded with "report --save", newest first.
Given a run id, show that run's full summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to list")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		run, err := store.GetReportRun(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatTitle("Saved Run "+run.ID))
		fmt.Fprintln(out, cli.RenderSummary(run))
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListReportRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, cli.FormatInfo(`No saved runs yet. Use "musiqhub report --save" to record one.`))
		return nil
	}

	fmt.Fprint(out, cli.RenderTable(historyTable(runs)))
	return nil
}

func historyTable(runs []model.ReportRun) report.Table {
	t := report.Table{
		Title:   "Report Runs",
		Columns: []string{"Run", "Created", "Sources", "Lessons", "Billed", "Profit"},
		Kinds: []report.Kind{
			report.KindText, report.KindText, report.KindText,
			report.KindCount, report.KindMoney, report.KindMoney,
		},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			strings.Join(r.Sources, ", "),
			strconv.Itoa(r.Lessons),
			r.TotalBilled.StringFixed(2),
			r.TotalProfit.StringFixed(2),
		})
	}
	return t
}
