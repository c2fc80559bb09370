package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the browser full-screen until the operator quits or ctx ends.
func Run(ctx context.Context, tables []report.Table, run *model.ReportRun) error {
	p := tea.NewProgram(New(tables, run), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("report browser: %w", err)
	}
	return nil
}
