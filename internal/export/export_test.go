package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testTables() []report.Table {
	return []report.Table{
		{
			Title:   report.TitleProfitBySchool,
			Columns: report.ProfitBySchoolColumns,
			Kinds: []report.Kind{report.KindText, report.KindCount, report.KindMoney,
				report.KindMoney, report.KindMoney, report.KindMoney},
			Rows: [][]string{
				{"St Mark's", "2", "55.00", "7.17", "20.00", "27.83"},
				{"Total", "2", "55.00", "7.17", "20.00", "27.83"},
			},
		},
	}
}

func testRun() *model.ReportRun {
	return &model.ReportRun{
		ID:          "0b6c3c7e-1111-4222-8333-444455556666",
		CreatedAt:   time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC),
		Sources:     []string{"march.xlsx"},
		Lessons:     2,
		TotalBilled: decimal.RequireFromString("55"),
		TotalProfit: decimal.RequireFromString("27.83"),
		GSTApplied:  true,
	}
}

func TestXLSX_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewXLSX(path, nil).Write(context.Background(), testTables(), testRun()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{report.SummaryTitle, report.TitleProfitBySchool}, f.GetSheetList())

	rows, err := f.GetRows(report.SummaryTitle)
	require.NoError(t, err)
	assert.Equal(t, []string{"Run", "0b6c3c7e-1111-4222-8333-444455556666"}, rows[0])

	sheet := report.TitleProfitBySchool
	header, err := f.GetCellValue(sheet, "F1")
	require.NoError(t, err)
	assert.Equal(t, "Total Profit", header)

	school, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "St Mark's", school)

	raw, err := f.GetCellValue(sheet, "F3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "27.83", raw)

	cellType, err := f.GetCellType(sheet, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
}

func TestXLSX_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewXLSX(filepath.Join(t.TempDir(), "x.xlsx"), nil).Write(ctx, testTables(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSON_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSON(&buf).Write(context.Background(), testTables(), testRun()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.NotNil(t, doc.Run)
	assert.Equal(t, "55.00", doc.Run.TotalBilled)
	assert.Equal(t, "0.00", doc.Run.TotalGST)
	assert.Equal(t, []string{}, doc.Run.ZeroRateSchools)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, report.TitleProfitBySchool, doc.Tables[0].Title)
	assert.Equal(t, "27.83", doc.Tables[0].Rows[1][5])

	assert.Contains(t, buf.String(), `"total_profit": "27.83"`)
}

func TestJSON_NoRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSON(&buf).Write(context.Background(), nil, nil))
	assert.JSONEq(t, `{"tables": []}`, buf.String())
}

func TestCells(t *testing.T) {
	got := cells([]string{"Total", "3", "12.50", "n/a"},
		[]report.Kind{report.KindText, report.KindCount, report.KindMoney, report.KindMoney})
	assert.Equal(t, []any{"Total", 3.0, 12.5, "n/a"}, got)
}
