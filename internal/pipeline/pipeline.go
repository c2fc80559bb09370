// Package pipeline runs lesson exports through cleaning, derivation and
// aggregation, and hands the resulting tables to output writers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/finance"
	"github.com/Veraticus/musiqhub/internal/lessons"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/Veraticus/musiqhub/internal/service"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// ErrNoSources is returned when a run is started without any export.
var ErrNoSources = errors.New("no lesson sources given")

// Writer publishes a finished report.
type Writer interface {
	Write(ctx context.Context, tables []report.Table, run *model.ReportRun) error
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	SaveReportRun(ctx context.Context, run *model.ReportRun) error
}

// Options configures a pipeline.
type Options struct {
	Logger   *slog.Logger
	Progress io.Writer // progress bar destination; nil disables it
	Now      func() time.Time
	ApplyGST bool
}

// Pipeline turns lesson exports into a report.
type Pipeline struct {
	source   service.GridSource
	resolver finance.RateResolver
	cleaner  *lessons.Cleaner
	logger   *slog.Logger
	opts     Options
}

// Output is everything one run produces.
type Output struct {
	Report *report.Report
	Run    *model.ReportRun
	Result finance.Result
}

// Tables renders the report views in display order.
func (o *Output) Tables() []report.Table {
	return o.Report.Tables()
}

// New creates a pipeline reading exports from source and pricing rooms with resolver.
func New(source service.GridSource, resolver finance.RateResolver, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := common.LoggerOrDefault(opts.Logger)
	return &Pipeline{
		source:   source,
		resolver: resolver,
		cleaner:  lessons.NewCleaner(logger),
		logger:   logger,
		opts:     opts,
	}
}

// Run processes each export in order. Rooms are derived per export, so a
// school taught from two sheets is two rooms that the report later merges.
func (p *Pipeline) Run(ctx context.Context, refs []string) (*Output, error) {
	if len(refs) == 0 {
		return nil, ErrNoSources
	}

	var bar *progressbar.ProgressBar
	if p.opts.Progress != nil {
		bar = progressbar.NewOptions(len(refs),
			progressbar.OptionSetWriter(p.opts.Progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan]Loading lesson sheets...[reset]"),
			progressbar.OptionClearOnFinish(),
		)
	}

	var combined finance.Result
	derive := finance.Options{Logger: p.logger, ApplyGST: p.opts.ApplyGST}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.process(ctx, ref, derive)
		if err != nil {
			return nil, err
		}
		combined.Rows = append(combined.Rows, result.Rows...)
		combined.Rooms = append(combined.Rooms, result.Rooms...)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	rep := report.Build(combined)
	out := &Output{
		Report: rep,
		Result: combined,
		Run:    p.newRun(refs, rep, combined),
	}

	p.logger.Info("Report built",
		"sources", len(refs),
		"lessons", len(combined.Rows),
		"rooms", len(combined.Rooms),
		"zero_rate_schools", len(out.Run.ZeroRateSchools))

	return out, nil
}

func (p *Pipeline) process(ctx context.Context, ref string, opts finance.Options) (finance.Result, error) {
	grid, err := p.source.Fetch(ctx, ref)
	if err != nil {
		return finance.Result{}, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}

	events, err := p.cleaner.Clean(grid)
	if err != nil {
		return finance.Result{}, fmt.Errorf("failed to clean %s: %w", ref, err)
	}
	if len(events) == 0 {
		p.logger.Warn("No lessons found", "source", ref)
	}

	p.logger.Debug("Cleaned export", "source", ref, "rows", len(grid), "lessons", len(events))
	return finance.Derive(events, p.resolver, opts), nil
}

func (p *Pipeline) newRun(refs []string, rep *report.Report, result finance.Result) *model.ReportRun {
	return &model.ReportRun{
		ID:              uuid.NewString(),
		CreatedAt:       p.opts.Now().UTC(),
		Sources:         append([]string(nil), refs...),
		ZeroRateSchools: rep.ZeroRateSchools(),
		Lessons:         len(result.Rows),
		TotalBilled:     rep.ProfitsTotal.TotalBilled,
		TotalGST:        rep.ProfitsTotal.TotalGST,
		TotalRoomHire:   rep.ProfitsTotal.TotalRoomHire,
		TotalProfit:     rep.ProfitsTotal.TotalProfit,
		TotalSupportFee: rep.TiersTotal.TotalSupportFee,
		GSTApplied:      p.opts.ApplyGST,
	}
}

// Publish hands the report to each writer in turn and records the run
// when recorder is not nil. The first failure stops publishing.
func Publish(ctx context.Context, out *Output, recorder RunRecorder, writers ...Writer) error {
	tables := out.Tables()
	for _, w := range writers {
		if err := w.Write(ctx, tables, out.Run); err != nil {
			return fmt.Errorf("failed to publish report: %w", err)
		}
	}

	if recorder != nil {
		if err := recorder.SaveReportRun(ctx, out.Run); err != nil {
			return fmt.Errorf("failed to save run %s: %w", out.Run.ID, err)
		}
	}
	return nil
}
