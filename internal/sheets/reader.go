package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/musiqhub/internal/common"
)

// Reader pulls lesson exports out of a Google spreadsheet.
type Reader struct {
	api    API
	logger *slog.Logger
	config Config
}

// NewReader creates a reader authenticated with config.
func NewReader(ctx context.Context, config Config, logger *slog.Logger) (*Reader, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	api, err := NewAPI(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewReaderWithAPI(api, config, logger), nil
}

// NewReaderWithAPI creates a reader over an existing API client.
func NewReaderWithAPI(api API, config Config, logger *slog.Logger) *Reader {
	return &Reader{api: api, config: config, logger: common.LoggerOrDefault(logger)}
}

// Fetch returns the formatted cell values in rng as a grid of strings.
// An empty range means the first tab.
func (r *Reader) Fetch(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: spreadsheet id", common.ErrMissingConfig)
	}

	opts := retryOptions(r.config)

	if rng == "" {
		err := common.WithRetry(ctx, "open spreadsheet "+spreadsheetID, func() error {
			s, err := r.api.Get(ctx, spreadsheetID)
			if err != nil {
				return err
			}
			if len(s.Sheets) == 0 || s.Sheets[0].Properties == nil {
				return &common.RetryableError{Err: fmt.Errorf("spreadsheet %s has no tabs", spreadsheetID)}
			}
			rng = quote(s.Sheets[0].Properties.Title)
			return nil
		}, opts)
		if err != nil {
			return nil, err
		}
	}

	var values [][]any
	err := common.WithRetry(ctx, "read "+rng, func() error {
		var err error
		values, err = r.api.GetValues(ctx, spreadsheetID, rng)
		return err
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", rng, spreadsheetID, err)
	}

	grid := make([][]string, len(values))
	for i, row := range values {
		grid[i] = make([]string, len(row))
		for j, cell := range row {
			grid[i][j] = fmt.Sprint(cell)
		}
	}

	r.logger.Debug("Fetched sheet", "spreadsheet_id", spreadsheetID, "range", rng, "rows", len(grid))
	return grid, nil
}
