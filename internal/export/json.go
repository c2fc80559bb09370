package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/shopspring/decimal"
)

// Document is the JSON shape of a report.
type Document struct {
	Run    *RunJSON       `json:"run,omitempty"`
	Tables []report.Table `json:"tables"`
}

// RunJSON is the JSON shape of a run summary. Money is encoded as
// fixed two-place strings.
type RunJSON struct {
	CreatedAt       time.Time `json:"created_at"`
	ID              string    `json:"id"`
	TotalBilled     string    `json:"total_billed"`
	TotalGST        string    `json:"total_gst"`
	TotalRoomHire   string    `json:"total_room_hire"`
	TotalSupportFee string    `json:"total_support_fee"`
	TotalProfit     string    `json:"total_profit"`
	Sources         []string  `json:"sources"`
	ZeroRateSchools []string  `json:"zero_rate_schools"`
	Lessons         int       `json:"lessons"`
	GSTApplied      bool      `json:"gst_applied"`
}

// JSON writes the report as an indented JSON document.
type JSON struct {
	out io.Writer
}

// NewJSON creates a JSON writer.
func NewJSON(out io.Writer) *JSON {
	return &JSON{out: out}
}

// Write encodes the tables and run summary.
func (j *JSON) Write(ctx context.Context, tables []report.Table, run *model.ReportRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := Document{Tables: tables}
	if doc.Tables == nil {
		doc.Tables = []report.Table{}
	}
	if run != nil {
		doc.Run = &RunJSON{
			ID:              run.ID,
			CreatedAt:       run.CreatedAt,
			Sources:         nonNil(run.Sources),
			ZeroRateSchools: nonNil(run.ZeroRateSchools),
			Lessons:         run.Lessons,
			GSTApplied:      run.GSTApplied,
			TotalBilled:     fixed(run.TotalBilled),
			TotalGST:        fixed(run.TotalGST),
			TotalRoomHire:   fixed(run.TotalRoomHire),
			TotalSupportFee: fixed(run.TotalSupportFee),
			TotalProfit:     fixed(run.TotalProfit),
		}
	}

	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
