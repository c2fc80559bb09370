// Package lessons turns a raw lesson-export grid into tidy lesson events.
package lessons

import (
	"log/slog"
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/shopspring/decimal"
)

// Column positions in a lesson export.
const (
	ColEventDate = iota
	ColDuration
	ColDescription
	ColTeacher
	ColPayrollAmount
	ColStudentName
	ColFamily
	ColStatus
	ColPreTaxBilled
	ColBilled

	// ExpectedColumns is the minimum width of a lesson export.
	ExpectedColumns
)

// Columns are the header labels of a lesson export, in column order.
var Columns = [ExpectedColumns]string{
	"Event Date",
	"Duration",
	"Description",
	"Teacher",
	"Payroll Amount",
	"Student Name",
	"Family",
	"Status",
	"Pre-Tax Billed Amount",
	"Billed Amount",
}

// filled lists the grouping columns that are only written on the first
// row of each group in an export.
var filled = []int{ColEventDate, ColDuration, ColDescription}

// Cleaner converts raw grids into lesson events.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil logger uses the process default.
func NewCleaner(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: common.LoggerOrDefault(logger)}
}

// Clean cleans grid with the default logger.
func Clean(grid [][]string) ([]model.LessonEvent, error) {
	return NewCleaner(nil).Clean(grid)
}

// Clean discards the title row, drops a duplicated header row, forward-fills
// the grouping columns, drops rows without a student and parses amounts.
// A grid narrower than ExpectedColumns fails with *common.SchemaMismatchError
// and no events.
func (c *Cleaner) Clean(grid [][]string) ([]model.LessonEvent, error) {
	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}
	if width < ExpectedColumns {
		return nil, &common.SchemaMismatchError{Expected: ExpectedColumns, Actual: width}
	}

	if len(grid) <= 1 {
		return []model.LessonEvent{}, nil
	}

	rows := make([][ExpectedColumns]string, 0, len(grid)-1)
	sourceRows := make([]int, 0, len(grid)-1)
	for i, raw := range grid[1:] {
		var row [ExpectedColumns]string
		for col := range row {
			if col < len(raw) {
				row[col] = strings.TrimSpace(raw[col])
			}
		}
		rows = append(rows, row)
		sourceRows = append(sourceRows, i+2)
	}

	if len(rows) > 0 && isHeader(rows[0]) {
		c.logger.Debug("Dropping duplicated header row", "row", sourceRows[0])
		rows = rows[1:]
		sourceRows = sourceRows[1:]
	}

	for _, col := range filled {
		fillColumn(rows, col)
	}

	events := make([]model.LessonEvent, 0, len(rows))
	for i, row := range rows {
		if row[ColStudentName] == "" {
			continue
		}
		events = append(events, c.event(row, sourceRows[i]))
	}

	c.logger.Debug("Cleaned lesson sheet",
		"raw_rows", len(grid),
		"columns", width,
		"events", len(events))

	return events, nil
}

func (c *Cleaner) event(row [ExpectedColumns]string, sourceRow int) model.LessonEvent {
	billed := c.amount(row[ColBilled], "billed", sourceRow)
	if billed.IsNegative() {
		c.logger.Warn("Negative billed amount, using zero",
			"row", sourceRow,
			"student", row[ColStudentName],
			"amount", row[ColBilled])
		billed = decimal.Zero
	}

	return model.LessonEvent{
		EventDate:     row[ColEventDate],
		Duration:      row[ColDuration],
		School:        row[ColDescription],
		Teacher:       row[ColTeacher],
		Student:       row[ColStudentName],
		Family:        row[ColFamily],
		Status:        row[ColStatus],
		PayrollAmount: c.amount(row[ColPayrollAmount], "payroll", sourceRow),
		PreTaxBilled:  c.amount(row[ColPreTaxBilled], "pre_tax_billed", sourceRow),
		Billed:        billed,
		SourceRow:     sourceRow,
	}
}

func (c *Cleaner) amount(raw, field string, sourceRow int) decimal.Decimal {
	value, ok := ParseAmount(raw)
	if !ok && raw != "" {
		c.logger.Debug("Non-numeric amount, using zero",
			"row", sourceRow,
			"field", field,
			"value", raw)
	}
	return value
}

// ParseAmount parses a currency cell such as "$1,070.00" or "(12.50)".
// Blank or non-numeric cells yield zero and false.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		value = value.Neg()
	}
	return value, true
}

func isHeader(row [ExpectedColumns]string) bool {
	for i, label := range Columns {
		if row[i] != label {
			return false
		}
	}
	return true
}

// fillColumn carries the last non-blank value down a column. Blanks above
// the first value take that first value, so the column is never blank
// unless it is blank throughout.
func fillColumn(rows [][ExpectedColumns]string, col int) {
	last := ""
	firstSet := -1
	for i := range rows {
		if rows[i][col] != "" {
			last = rows[i][col]
			if firstSet < 0 {
				firstSet = i
			}
			continue
		}
		rows[i][col] = last
	}

	for i := 0; i < firstSet; i++ {
		rows[i][col] = rows[firstSet][col]
	}
}
