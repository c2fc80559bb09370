// Package model holds the value types that flow through the reporting pipeline.
package model

import "github.com/shopspring/decimal"

// LessonEvent is one cleaned row of a tutor's lesson export: a single
// student's attendance (or billing) for one event.
type LessonEvent struct {
	EventDate     string
	Duration      string
	School        string // room or school description as written in the sheet
	Teacher       string
	Student       string
	Family        string
	Status        string
	PayrollAmount decimal.Decimal
	PreTaxBilled  decimal.Decimal
	Billed        decimal.Decimal
	SourceRow     int // 1-based row in the raw grid, title row included
}

// DerivedLessonRow is a LessonEvent with its tax, room hire, tier and profit figures.
type DerivedLessonRow struct {
	LessonEvent
	Tutor         string // Teacher, or the room's tutor when the row leaves it blank
	RateSource    RateSource
	GST           decimal.Decimal
	RoomHireShare decimal.Decimal
	NetLessonFee  decimal.Decimal
	TierFee       decimal.Decimal
	Profit        decimal.Decimal
	Tier          int
}

// RoomHire is the weekly room rate of one school room and how it is shared
// across the distinct students taught there.
type RoomHire struct {
	School        string // display name as first written in the sheet
	SchoolKey     string
	Tutor         string
	MatchedSchool string
	RateSource    RateSource
	Rate          decimal.Decimal
	PerStudent    decimal.Decimal
	Students      int
}
