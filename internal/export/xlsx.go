// Package export writes report tables to local xlsx workbooks and JSON.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/xuri/excelize/v2"
)

const moneyFormat = "#,##0.00"

// XLSX writes one worksheet per table, preceded by the run summary.
type XLSX struct {
	logger *slog.Logger
	path   string
}

// NewXLSX creates a workbook writer targeting path.
func NewXLSX(path string, logger *slog.Logger) *XLSX {
	return &XLSX{path: path, logger: common.LoggerOrDefault(logger)}
}

// Write builds the workbook and saves it, replacing any existing file.
func (x *XLSX) Write(ctx context.Context, tables []report.Table, run *model.ReportRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", report.SummaryTitle); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummary(f, run); err != nil {
		return err
	}

	for _, t := range tables {
		if _, err := f.NewSheet(t.Title); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", t.Title, err)
		}
		if err := writeTable(f, t, styles); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", t.Title, err)
		}
	}

	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", x.path, err)
	}

	x.logger.Info("Workbook written", "path", x.path, "sheets", len(tables)+1)
	return nil
}

type styles struct {
	header int
	total  int
	money  int
	totalM int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	format := moneyFormat

	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	}); err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	if s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("failed to create total style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
		return s, fmt.Errorf("failed to create money style: %w", err)
	}
	if s.totalM, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &format,
	}); err != nil {
		return s, fmt.Errorf("failed to create total money style: %w", err)
	}
	return s, nil
}

func writeSummary(f *excelize.File, run *model.ReportRun) error {
	for i, row := range report.SummaryRows(run) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := cells(row, nil)
		if err := f.SetSheetRow(report.SummaryTitle, cell, &values); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return f.SetColWidth(report.SummaryTitle, "A", "A", 28)
}

func writeTable(f *excelize.File, t report.Table, st styles) error {
	sheet := t.Title

	header := cells(t.Columns, nil)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := cells(row, t.Kinds)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	last := len(t.Rows) + 1
	lastCol, err := excelize.ColumnNumberToName(max(len(t.Columns), 1))
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", st.header); err != nil {
		return err
	}

	for col, kind := range t.Kinds {
		if kind != report.KindMoney {
			continue
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if last > 2 {
			if err := f.SetCellStyle(sheet, name+"2", name+strconv.Itoa(last-1), st.money); err != nil {
				return err
			}
		}
	}

	if len(t.Rows) > 0 {
		row := strconv.Itoa(last)
		if err := f.SetCellStyle(sheet, "A"+row, lastCol+row, st.total); err != nil {
			return err
		}
		for col, kind := range t.Kinds {
			if kind != report.KindMoney {
				continue
			}
			name, _ := excelize.ColumnNumberToName(col + 1)
			if err := f.SetCellStyle(sheet, name+row, name+row, st.totalM); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return f.SetColWidth(sheet, "A", lastCol, 20)
}

// cells converts a row to cell values, writing numeric columns as numbers
// so totals stay summable in the workbook.
func cells(row []string, kinds []report.Kind) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
		if i >= len(kinds) || !kinds[i].Numeric() {
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[i] = n
		}
	}
	return out
}
