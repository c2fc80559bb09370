package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/service"
)

var _ service.GridSource = (*Registry)(nil)

// Registry dispatches a reference to the first source that supports it.
type Registry struct {
	logger  *slog.Logger
	sources []service.GridSource
}

// NewRegistry creates a registry trying sources in order.
func NewRegistry(logger *slog.Logger, sources ...service.GridSource) *Registry {
	return &Registry{logger: common.LoggerOrDefault(logger), sources: sources}
}

// Register appends a source.
func (r *Registry) Register(s service.GridSource) {
	r.sources = append(r.sources, s)
}

// Supports reports whether any registered source can read ref.
func (r *Registry) Supports(ref string) bool {
	return r.find(ref) != nil
}

// Fetch reads ref with the matching source.
func (r *Registry) Fetch(ctx context.Context, ref string) ([][]string, error) {
	s := r.find(ref)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedSource, ref)
	}

	grid, err := s.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Fetched source", "ref", ref, "rows", len(grid))
	return grid, nil
}

func (r *Registry) find(ref string) service.GridSource {
	for _, s := range r.sources {
		if s.Supports(ref) {
			return s
		}
	}
	return nil
}
