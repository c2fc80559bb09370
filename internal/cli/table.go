package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/rates"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderTable draws a report table with right-aligned numeric columns and
// a bold Total row.
func RenderTable(t report.Table) string {
	last := len(t.Rows) - 1

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(BorderColor)).
		Headers(t.Columns...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = TableHeaderStyle
			case row == last:
				style = TableTotalStyle
			default:
				style = TableCellStyle
			}
			if col < len(t.Kinds) && t.Kinds[col].Numeric() {
				style = style.Align(lipgloss.Right)
			}
			return style
		})

	return TitleStyle.Render(ChartIcon+" "+t.Title) + "\n" + tbl.Render()
}

// RenderReport draws every table separated by blank lines.
func RenderReport(tables []report.Table) string {
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, RenderTable(t))
	}
	return strings.Join(parts, "\n\n")
}

// RenderSummary draws the run's headline figures in a box, with a warning
// line for schools whose room hire fell back to zero.
func RenderSummary(run *model.ReportRun) string {
	rows := report.SummaryRows(run)

	width := 0
	for _, row := range rows {
		width = max(width, len(row[0]))
	}

	lines := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		if len(row) < 2 {
			lines = append(lines, row[0])
			continue
		}
		label := SubtleStyle.Render(fmt.Sprintf("%-*s", width, row[0]))
		lines = append(lines, label+"  "+row[1])
	}

	if run != nil && len(run.ZeroRateSchools) > 0 {
		lines = append(lines, "", FormatWarning(fmt.Sprintf(
			"%d school(s) had no room rate; their room hire is zero", len(run.ZeroRateSchools))))
	}

	return RenderBox(report.SummaryTitle, strings.Join(lines, "\n"))
}

// RenderResolution describes how a rate lookup was satisfied.
func RenderResolution(school, tutor string, res rates.Resolution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("School:"), school)
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Tutor: "), tutor)
	fmt.Fprintf(&b, "%s $%s per week\n", BoldStyle.Render("Rate:  "), res.Rate.StringFixed(2))

	source := string(res.Source)
	if res.Source == model.RateSourceFuzzy {
		source = fmt.Sprintf("%s (%.0f%% similar)", source, res.Score*100)
	}
	if res.MatchedSchool != "" {
		source += " via " + res.MatchedSchool
	}
	if res.Source.IsFallback() {
		return b.String() + FormatWarning("No rate found; room hire will be zero")
	}
	fmt.Fprintf(&b, "%s %s", BoldStyle.Render("Source:"), source)
	return b.String()
}
