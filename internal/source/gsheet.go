package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
)

const gsheetScheme = "gsheet://"

// SheetReader reads a range out of a Google spreadsheet.
type SheetReader interface {
	Fetch(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
}

// GoogleSheet fetches exports addressed as gsheet://<spreadsheetID>[/<A1 range>].
type GoogleSheet struct {
	reader SheetReader
}

// NewGoogleSheet wraps a sheets reader.
func NewGoogleSheet(reader SheetReader) *GoogleSheet {
	return &GoogleSheet{reader: reader}
}

// Supports reports whether ref is a gsheet:// reference.
func (g *GoogleSheet) Supports(ref string) bool {
	return strings.HasPrefix(ref, gsheetScheme)
}

// Fetch reads the range, or the first tab when no range is given.
func (g *GoogleSheet) Fetch(ctx context.Context, ref string) ([][]string, error) {
	id, rng, _ := strings.Cut(strings.TrimPrefix(ref, gsheetScheme), "/")
	if id == "" {
		return nil, fmt.Errorf("%w: %q has no spreadsheet id", common.ErrUnsupportedSource, ref)
	}
	return g.reader.Fetch(ctx, id, rng)
}
