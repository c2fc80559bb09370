package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SchoolSummary is one row of the students-by-school view.
type SchoolSummary struct {
	School             string
	RateSource         RateSource
	TotalRoomRate      decimal.Decimal
	RoomHirePerStudent decimal.Decimal
	TotalRoomHire      decimal.Decimal
	Students           int
}

// TierSummary is one row of the fees-by-tier view.
type TierSummary struct {
	TierFee         decimal.Decimal
	TotalSupportFee decimal.Decimal
	Tier            int
	Count           int
}

// ProfitSummary is one row of the profit-by-school view.
type ProfitSummary struct {
	School        string
	TotalBilled   decimal.Decimal
	TotalGST      decimal.Decimal
	TotalRoomHire decimal.Decimal
	TotalProfit   decimal.Decimal
	Lessons       int
}

// TutorSummary is one row of the profit-by-tutor view.
type TutorSummary struct {
	Tutor           string
	TotalBilled     decimal.Decimal
	TotalSupportFee decimal.Decimal
	TotalProfit     decimal.Decimal
	Lessons         int
}

// ReportRun records the headline figures of one pipeline run.
type ReportRun struct {
	CreatedAt       time.Time
	ID              string
	Sources         []string
	ZeroRateSchools []string
	TotalBilled     decimal.Decimal
	TotalGST        decimal.Decimal
	TotalRoomHire   decimal.Decimal
	TotalProfit     decimal.Decimal
	TotalSupportFee decimal.Decimal
	Lessons         int
	GSTApplied      bool
}
