package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/musiqhub/internal/model"
)

// SummaryTitle names the run summary in every output.
const SummaryTitle = "Run Summary"

// SummaryRows lays out the headline figures of a run as label/value pairs.
func SummaryRows(run *model.ReportRun) [][]string {
	if run == nil {
		return [][]string{{"No run information"}}
	}
	zero := "none"
	if len(run.ZeroRateSchools) > 0 {
		zero = strings.Join(run.ZeroRateSchools, ", ")
	}
	gst := "no"
	if run.GSTApplied {
		gst = "yes"
	}
	return [][]string{
		{"Run", run.ID},
		{"Created", run.CreatedAt.Format(time.RFC3339)},
		{"Sources", strings.Join(run.Sources, ", ")},
		{"GST applied", gst},
		{"Lessons", strconv.Itoa(run.Lessons)},
		{"Total Billed", money(run.TotalBilled)},
		{"Total GST", money(run.TotalGST)},
		{"Total Room Hire", money(run.TotalRoomHire)},
		{"Total Support Fee", money(run.TotalSupportFee)},
		{"Total Profit", money(run.TotalProfit)},
		{"Schools without a room rate", zero},
	}
}
