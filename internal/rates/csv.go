package rates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/normalize"
	"github.com/shopspring/decimal"
)

// ParseRate parses a currency-formatted weekly rate such as "$1,225.00".
func ParseRate(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", common.ErrInvalidRate)
	}

	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", common.ErrInvalidRate, raw)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative rate %q", common.ErrInvalidRate, raw)
	}

	return rate, nil
}

// ParseCSV reads room-rate records with the columns
// "franchisee name, school name, room rate per week" and an optional
// fourth "school abbreviation" column. A first row is skipped as a header
// only when its rate column holds a label rather than an amount.
func ParseCSV(r io.Reader) ([]model.RoomRateRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []model.RoomRateRecord
	line := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rate table: %w", err)
		}
		line++

		if isBlankRow(row) {
			continue
		}
		if line == 1 && isRateHeader(row) {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("rate table line %d: %w", line,
				&common.SchemaMismatchError{Expected: 3, Actual: len(row)})
		}

		rate, err := ParseRate(row[2])
		if err != nil {
			return nil, fmt.Errorf("rate table line %d: %w", line, err)
		}

		record := model.RoomRateRecord{
			TutorName:  strings.TrimSpace(row[0]),
			SchoolName: strings.TrimSpace(row[1]),
			TutorKey:   normalize.Tutor(row[0]),
			SchoolKey:  normalize.School(row[1]),
			Rate:       rate,
		}
		if len(row) > 3 {
			record.Abbreviation = strings.TrimSpace(row[3])
		}
		if record.SchoolKey == "" {
			return nil, fmt.Errorf("rate table line %d: missing school name", line)
		}

		records = append(records, record)
	}

	return records, nil
}

// ParseAliasCSV reads "alias, school" pairs. A header row is skipped when present.
func ParseAliasCSV(r io.Reader) ([]model.AliasEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var aliases []model.AliasEntry
	line := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read alias table: %w", err)
		}
		line++

		if isBlankRow(row) {
			continue
		}
		if line == 1 && isAliasHeader(row) {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("alias table line %d: %w", line,
				&common.SchemaMismatchError{Expected: 2, Actual: len(row)})
		}

		aliases = append(aliases, model.AliasEntry{
			AliasKey:  normalize.School(row[0]),
			SchoolKey: normalize.School(row[1]),
		})
	}

	return aliases, nil
}

// isRateHeader matches the column labels. School names routinely contain
// "school", so only the rate column decides.
func isRateHeader(row []string) bool {
	if len(row) < 3 {
		return false
	}
	label := strings.ToLower(strings.TrimSpace(row[2]))
	if !strings.Contains(label, "rate") {
		return false
	}
	_, err := ParseRate(row[2])
	return err != nil
}

func isAliasHeader(row []string) bool {
	return len(row) >= 2 &&
		strings.EqualFold(strings.TrimSpace(row[0]), "alias") &&
		strings.EqualFold(strings.TrimSpace(row[1]), "school")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
