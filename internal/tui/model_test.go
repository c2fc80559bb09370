package tui

import (
	"testing"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTables() []report.Table {
	return []report.Table{
		{
			Title:   report.TitleStudentsBySchool,
			Columns: []string{"School", "Students"},
			Kinds:   []report.Kind{report.KindText, report.KindCount},
			Rows:    [][]string{{"Sunnyhills School", "3"}, {"Total", "3"}},
		},
		{
			Title:   report.TitleProfitBySchool,
			Columns: []string{"School", "Lessons", "Total Profit"},
			Kinds:   []report.Kind{report.KindText, report.KindCount, report.KindMoney},
			Rows:    [][]string{{"St Mark's", "2", "27.83"}, {"Total", "2", "27.83"}},
		},
	}
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok)
	return got
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_StartsOnSummary(t *testing.T) {
	m := New(testTables(), &model.ReportRun{ID: "run-42"})

	assert.Equal(t, report.SummaryTitle, m.Active())
	view := m.View()
	assert.Contains(t, view, "run-42")
	assert.Contains(t, view, report.TitleProfitBySchool)
}

func TestModel_TabNavigation(t *testing.T) {
	m := New(testTables(), nil)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, report.TitleStudentsBySchool, m.Active())
	assert.Contains(t, m.View(), "Sunnyhills School")

	m = press(t, m, runes("l"))
	assert.Equal(t, report.TitleProfitBySchool, m.Active())
	assert.Contains(t, m.View(), "27.83")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, report.SummaryTitle, m.Active(), "tabs wrap around")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, report.TitleProfitBySchool, m.Active())

	m = press(t, m, runes("2"))
	assert.Equal(t, report.TitleStudentsBySchool, m.Active())

	m = press(t, m, runes("9"))
	assert.Equal(t, report.TitleStudentsBySchool, m.Active(), "out of range jumps are ignored")
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := New(testTables(), nil)

	m = press(t, m, runes("?"))
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowResize(t *testing.T) {
	m := New(testTables(), nil)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	m = next.(Model)
	assert.Equal(t, 60, m.width)
	assert.LessOrEqual(t, m.table.Height(), 12-chrome)
	assert.Contains(t, m.View(), "Sunnyhills School")
}
