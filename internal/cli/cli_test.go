package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/rates"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestFormatTitle(t *testing.T) {
	title := FormatTitle("Lesson Report")
	assert.Contains(t, title, MusicIcon+" Lesson Report")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(report.Table{
		Title:   report.TitleProfitBySchool,
		Columns: []string{"School", "Lessons", "Total Profit"},
		Kinds:   []report.Kind{report.KindText, report.KindCount, report.KindMoney},
		Rows: [][]string{
			{"St Mark's", "2", "27.83"},
			{"Total", "2", "27.83"},
		},
	})

	assert.Contains(t, out, report.TitleProfitBySchool)
	assert.Contains(t, out, "Total Profit")
	assert.Contains(t, out, "St Mark's")
	assert.Equal(t, 2, strings.Count(out, "27.83"))
}

func TestRenderReport(t *testing.T) {
	tables := []report.Table{
		{Title: "A", Columns: []string{"x"}, Rows: [][]string{{"Total"}}},
		{Title: "B", Columns: []string{"y"}, Rows: [][]string{{"Total"}}},
	}
	out := RenderReport(tables)
	assert.Less(t, strings.Index(out, "A"), strings.Index(out, "B"))
}

func TestRenderSummary(t *testing.T) {
	run := &model.ReportRun{
		ID:              "run-1",
		CreatedAt:       time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC),
		ZeroRateSchools: []string{"Nowhere Academy"},
		TotalProfit:     decimal.RequireFromString("27.83"),
	}

	out := RenderSummary(run)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "27.83")
	assert.Contains(t, out, "Nowhere Academy")
	assert.Contains(t, out, "1 school(s) had no room rate")

	assert.Contains(t, RenderSummary(nil), "No run information")
}

func TestRenderResolution(t *testing.T) {
	out := RenderResolution("St Marks", "Jordan Morrison", rates.Resolution{
		Source:        model.RateSourceFuzzy,
		MatchedSchool: "st marks catholic school",
		Rate:          decimal.RequireFromString("20"),
		Score:         0.82,
	})
	assert.Contains(t, out, "$20.00 per week")
	assert.Contains(t, out, "fuzzy (82% similar) via st marks catholic school")

	out = RenderResolution("Nowhere", "", rates.Resolution{Source: model.RateSourceFallback})
	assert.Contains(t, out, "No rate found")
}

func TestInterruptHandler(t *testing.T) {
	output := &syncBuffer{}
	h := NewInterruptHandler(output)
	h.SetHint("Re-run the report when ready.")

	ctx := h.HandleInterrupts(context.Background())
	assert.False(t, h.WasInterrupted())

	h.Interrupt()
	h.Interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}

	assert.True(t, h.WasInterrupted())
	assert.Equal(t, 1, strings.Count(output.String(), "Report run interrupted"))
	assert.Contains(t, output.String(), "Re-run the report when ready.")
}

func TestLineReader_Confirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "  YES \n", want: true},
		{name: "no", input: "n\n"},
		{name: "empty", input: "\n"},
		{name: "eof", input: ""},
		{name: "no newline", input: "yes", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := NewLineReader(strings.NewReader(tt.input)).Confirm(context.Background(), &out, "Replace rates?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Replace rates? [y/N]")
		})
	}
}

func TestLineReader_Cancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pr.Close() }()
	defer func() { _ = pw.Close() }()

	r := NewLineReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)

	done, stop := context.WithCancel(context.Background())
	stop()
	_, err = r.ReadLine(done)
	assert.ErrorIs(t, err, ErrInputCancelled)
}
