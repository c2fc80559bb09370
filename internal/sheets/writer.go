package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/Veraticus/musiqhub/internal/service"
	"google.golang.org/api/sheets/v4"
)

// SummaryTab is the tab holding the run's headline figures.
const SummaryTab = report.SummaryTitle

// Writer publishes report tables to a Google spreadsheet, one tab per table.
type Writer struct {
	api    API
	logger *slog.Logger
	config Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	api, err := NewAPI(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithAPI(api, config, logger), nil
}

// NewWriterWithAPI creates a writer over an existing API client.
func NewWriterWithAPI(api API, config Config, logger *slog.Logger) *Writer {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Writer{
		api:    api,
		config: config,
		logger: common.LoggerOrDefault(logger),
	}
}

// Write replaces the contents of each report tab and the summary tab.
func (w *Writer) Write(ctx context.Context, tables []report.Table, run *model.ReportRun) error {
	w.logger.Info("Publishing report to Google Sheets", "tables", len(tables))

	tabs := make([]string, 0, len(tables)+1)
	tabs = append(tabs, SummaryTab)
	for _, t := range tables {
		tabs = append(tabs, t.Title)
	}

	spreadsheetID, sheetIDs, err := w.prepareSpreadsheet(ctx, tabs)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := retryOptions(w.config)

	contents := map[string][][]any{SummaryTab: summaryValues(run)}
	for _, t := range tables {
		contents[t.Title] = tableValues(t)
	}

	for _, tab := range tabs {
		values := contents[tab]
		err := common.WithRetry(ctx, "write tab "+tab, func() error {
			if err := w.api.ClearValues(ctx, spreadsheetID, quote(tab)+"!A:Z"); err != nil {
				return err
			}
			return w.writeData(ctx, spreadsheetID, tab, values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", tab, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, "format tabs", func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetIDs, tables)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Report published",
		"spreadsheet_id", spreadsheetID,
		"url", "https://docs.google.com/spreadsheets/d/"+spreadsheetID)

	return nil
}

func retryOptions(config Config) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  max(config.RetryAttempts, 1),
		InitialDelay: config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// prepareSpreadsheet opens or creates the spreadsheet, adds any missing
// tabs and returns the sheet ID of every tab by title.
func (w *Writer) prepareSpreadsheet(ctx context.Context, tabs []string) (string, map[string]int64, error) {
	var spreadsheet *sheets.Spreadsheet
	retryOpts := retryOptions(w.config)

	if w.config.SpreadsheetID == "" {
		props := make([]*sheets.Sheet, 0, len(tabs))
		for _, tab := range tabs {
			props = append(props, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: tab}})
		}

		err := common.WithRetry(ctx, "create spreadsheet", func() error {
			var err error
			spreadsheet, err = w.api.Create(ctx, &sheets.Spreadsheet{
				Properties: &sheets.SpreadsheetProperties{
					Title:    w.config.SpreadsheetName,
					TimeZone: w.config.TimeZone,
				},
				Sheets: props,
			})
			return err
		}, retryOpts)
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("Created new spreadsheet",
			"id", spreadsheet.SpreadsheetId,
			"url", spreadsheet.SpreadsheetUrl)
		return spreadsheet.SpreadsheetId, sheetIDsOf(spreadsheet), nil
	}

	id := w.config.SpreadsheetID
	load := func() error {
		var err error
		spreadsheet, err = w.api.Get(ctx, id)
		return err
	}
	if err := common.WithRetry(ctx, "open spreadsheet "+id, load, retryOpts); err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", id, err)
	}

	ids := sheetIDsOf(spreadsheet)
	var requests []*sheets.Request
	for _, tab := range tabs {
		if _, ok := ids[tab]; ok {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		})
	}
	if len(requests) == 0 {
		return id, ids, nil
	}

	err := common.WithRetry(ctx, "add tabs", func() error {
		return w.api.BatchUpdate(ctx, id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests})
	}, retryOpts)
	if err != nil {
		return "", nil, fmt.Errorf("failed to add tabs: %w", err)
	}
	if err := common.WithRetry(ctx, "reload spreadsheet "+id, load, retryOpts); err != nil {
		return "", nil, fmt.Errorf("unable to reload spreadsheet %s: %w", id, err)
	}

	return id, sheetIDsOf(spreadsheet), nil
}

// writeData writes values to a tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rng := fmt.Sprintf("%s!A%d", quote(tab), i+1)
		if err := w.api.UpdateValues(ctx, spreadsheetID, rng, batch); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("Wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetIDs map[string]int64, tables []report.Table) error {
	var requests []*sheets.Request

	for _, t := range tables {
		sheetID, ok := sheetIDs[t.Title]
		if !ok {
			continue
		}
		lastRow := int64(len(t.Rows)) // header occupies row 0

		requests = append(requests,
			boldRows(sheetID, 0, 1),
			boldRows(sheetID, lastRow, lastRow+1),
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        sheetID,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		)

		for col, kind := range t.Kinds {
			if kind != report.KindMoney {
				continue
			}
			requests = append(requests, &sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    1,
						EndRowIndex:      lastRow + 1,
						StartColumnIndex: int64(col),
						EndColumnIndex:   int64(col + 1),
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "$#,##0.00"},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			})
		}

		requests = append(requests, &sheets.Request{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(t.Columns)),
				},
			},
		})
	}

	if len(requests) == 0 {
		return nil
	}
	return w.api.BatchUpdate(ctx, spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests})
}

func boldRows(sheetID, start, end int64) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:       sheetID,
				StartRowIndex: start,
				EndRowIndex:   end,
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{Bold: true},
				},
			},
			Fields: "userEnteredFormat.textFormat.bold",
		},
	}
}

// tableValues lays a table out as a header row followed by its rows.
func tableValues(t report.Table) [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, toAny(t.Columns))
	for _, row := range t.Rows {
		values = append(values, toAny(row))
	}
	return values
}

func summaryValues(run *model.ReportRun) [][]any {
	rows := report.SummaryRows(run)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = toAny(row)
	}
	return values
}

func sheetIDsOf(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

// quote wraps a tab title for use in an A1 range.
func quote(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
