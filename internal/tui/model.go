// Package tui is an interactive terminal browser for a finished report.
package tui

import (
	"strings"

	"github.com/Veraticus/musiqhub/internal/cli"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 24
	// chrome is the number of lines used by the tab bar and help line.
	chrome = 5
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(cli.PrimaryColor).
			Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(cli.SubtleColor).
				Padding(0, 1)
)

// Model browses the run summary and each report table, one tab at a time.
type Model struct {
	help    help.Model
	keys    KeyMap
	summary string
	tables  []report.Table
	tabs    []string
	table   table.Model
	active  int
	width   int
	height  int
}

// New creates a browser over tables. The first tab is the run summary.
func New(tables []report.Table, run *model.ReportRun) Model {
	tabs := make([]string, 0, len(tables)+1)
	tabs = append(tabs, report.SummaryTitle)
	for _, t := range tables {
		tabs = append(tabs, t.Title)
	}

	m := Model{
		help:    help.New(),
		keys:    DefaultKeyMap(),
		summary: cli.RenderSummary(run),
		tables:  tables,
		tabs:    tabs,
		width:   defaultWidth,
		height:  defaultHeight,
		table:   table.New(table.WithFocused(true)),
	}
	m.load()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.load()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.NextTab):
			m.active = (m.active + 1) % len(m.tabs)
			m.load()
			return m, nil
		case key.Matches(msg, m.keys.PrevTab):
			m.active = (m.active + len(m.tabs) - 1) % len(m.tabs)
			m.load()
			return m, nil
		case key.Matches(msg, m.keys.JumpTab):
			if n := int(msg.String()[0] - '1'); n < len(m.tabs) {
				m.active = n
				m.load()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	rendered := make([]string, len(m.tabs))
	for i, title := range m.tabs {
		if i == m.active {
			rendered[i] = activeTabStyle.Render(title)
		} else {
			rendered[i] = inactiveTabStyle.Render(title)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n\n")

	if m.active == 0 {
		b.WriteString(m.summary)
	} else {
		b.WriteString(m.table.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Active returns the title of the tab on screen.
func (m Model) Active() string {
	return m.tabs[m.active]
}

// load points the table widget at the active report table.
func (m *Model) load() {
	if m.active == 0 {
		return
	}
	t := m.tables[m.active-1]

	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = lipgloss.Width(c)
	}
	rows := make([]table.Row, len(t.Rows))
	for r, row := range t.Rows {
		rows[r] = table.Row(row)
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	columns := make([]table.Column, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = table.Column{Title: c, Width: widths[i] + 2}
	}

	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(rows)
	m.table.SetHeight(max(m.height-chrome, 3))
	m.table.SetWidth(m.width)
	m.table.GotoTop()
}
