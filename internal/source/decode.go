// Package source fetches raw lesson exports as grids of cells from local
// files, S3 objects and Google Sheets.
package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/xuri/excelize/v2"
)

// Format is the encoding of a lesson export.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf infers the export format from a file name or object key.
func FormatOf(name string) (Format, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// splitSheet separates an optional "#Sheet" suffix from a workbook
// reference. Other references are returned whole, since "#" is legal in
// file names.
func splitSheet(ref string) (string, string) {
	i := strings.LastIndex(ref, "#")
	if i < 0 {
		return ref, ""
	}
	if format, ok := FormatOf(ref[:i]); ok && format == FormatXLSX {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

// Decode reads a whole export into a grid. sheet selects a workbook tab
// and is ignored for CSV; an empty sheet means the first tab.
func Decode(r io.Reader, format Format, sheet string) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return decodeXLSX(r, sheet)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: format %q", common.ErrUnsupportedSource, format)
	}
}

func decodeXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, common.ErrEmptySheet
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func decodeCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}
