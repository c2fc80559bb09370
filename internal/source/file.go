package source

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// File reads exports from the local filesystem. A reference may name a
// workbook tab with a "#Sheet" suffix.
type File struct{}

// Supports reports whether ref is a local .xlsx or .csv path.
func (File) Supports(ref string) bool {
	if strings.Contains(ref, "://") {
		return false
	}
	name, _ := splitSheet(ref)
	_, ok := FormatOf(name)
	return ok
}

// Fetch opens and decodes the file.
func (File) Fetch(ctx context.Context, ref string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, sheet := splitSheet(ref)
	format, _ := FormatOf(name)

	f, err := os.Open(name) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f, format, sheet)
}
