// Package report groups derived lesson rows into the summary views used for
// reporting. Every view ends with a Total row computed from its group rows.
package report

import (
	"sort"

	"github.com/Veraticus/musiqhub/internal/finance"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/normalize"
	"github.com/shopspring/decimal"
)

// TotalLabel names the Total row of every view.
const TotalLabel = "Total"

// Report holds every summary view of one run.
type Report struct {
	Schools      []model.SchoolSummary
	Tiers        []model.TierSummary
	Profits      []model.ProfitSummary
	Tutors       []model.TutorSummary
	SchoolsTotal model.SchoolSummary
	TiersTotal   model.TierSummary
	ProfitsTotal model.ProfitSummary
	TutorsTotal  model.TutorSummary
}

// Build aggregates a derivation into every summary view.
func Build(result finance.Result) *Report {
	r := &Report{
		Schools: StudentsBySchool(result.Rooms),
		Tiers:   FeesByTier(result.Rows),
		Profits: ProfitBySchool(result.Rows),
		Tutors:  ProfitByTutor(result.Rows),
	}
	r.SchoolsTotal = SchoolsTotal(r.Schools)
	r.TiersTotal = TiersTotal(r.Tiers)
	r.ProfitsTotal = ProfitsTotal(r.Profits)
	r.TutorsTotal = TutorsTotal(r.Tutors)
	return r
}

// StudentsBySchool returns one row per school, sorted by normalized name.
// Rooms at the same school from different sheets are merged.
func StudentsBySchool(rooms []model.RoomHire) []model.SchoolSummary {
	merged := make(map[string]*model.SchoolSummary)
	var keys []string

	for _, room := range rooms {
		roomHire := room.PerStudent.Mul(decimal.NewFromInt(int64(room.Students)))

		s, ok := merged[room.SchoolKey]
		if !ok {
			keys = append(keys, room.SchoolKey)
			merged[room.SchoolKey] = &model.SchoolSummary{
				School:             room.School,
				RateSource:         room.RateSource,
				TotalRoomRate:      room.Rate,
				RoomHirePerStudent: room.PerStudent,
				TotalRoomHire:      roomHire,
				Students:           room.Students,
			}
			continue
		}

		s.Students += room.Students
		s.TotalRoomRate = s.TotalRoomRate.Add(room.Rate)
		s.TotalRoomHire = s.TotalRoomHire.Add(roomHire)
		if s.Students > 0 {
			s.RoomHirePerStudent = s.TotalRoomHire.Div(decimal.NewFromInt(int64(s.Students))).Round(2)
		}
		if room.RateSource.IsFallback() {
			s.RateSource = room.RateSource
		}
	}

	sort.Strings(keys)
	out := make([]model.SchoolSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, *merged[k])
	}
	return out
}

// SchoolsTotal sums every numeric column of the students-by-school rows.
func SchoolsTotal(rows []model.SchoolSummary) model.SchoolSummary {
	total := model.SchoolSummary{School: TotalLabel}
	for _, s := range rows {
		total.Students += s.Students
		total.TotalRoomRate = total.TotalRoomRate.Add(s.TotalRoomRate)
		total.RoomHirePerStudent = total.RoomHirePerStudent.Add(s.RoomHirePerStudent)
		total.TotalRoomHire = total.TotalRoomHire.Add(s.TotalRoomHire)
	}
	return total
}

// FeesByTier returns exactly one row per tier, empty tiers included.
func FeesByTier(rows []model.DerivedLessonRow) []model.TierSummary {
	out := make([]model.TierSummary, finance.Tiers)
	for i := range out {
		out[i].Tier = i + 1
		out[i].TierFee = finance.TierFee(i + 1)
	}

	for _, row := range rows {
		if row.Tier < 1 || row.Tier > finance.Tiers {
			continue
		}
		out[row.Tier-1].Count++
	}

	for i := range out {
		out[i].TotalSupportFee = out[i].TierFee.Mul(decimal.NewFromInt(int64(out[i].Count)))
	}
	return out
}

// TiersTotal sums every numeric column of the fees-by-tier rows.
func TiersTotal(rows []model.TierSummary) model.TierSummary {
	var total model.TierSummary
	for _, t := range rows {
		total.Count += t.Count
		total.TierFee = total.TierFee.Add(t.TierFee)
		total.TotalSupportFee = total.TotalSupportFee.Add(t.TotalSupportFee)
	}
	return total
}

// ProfitBySchool returns one row per school, sorted by normalized name.
// Money columns are floored to cents.
func ProfitBySchool(rows []model.DerivedLessonRow) []model.ProfitSummary {
	groups := make(map[string]*model.ProfitSummary)
	var keys []string

	for _, row := range rows {
		key := normalize.School(row.School)
		p, ok := groups[key]
		if !ok {
			keys = append(keys, key)
			p = &model.ProfitSummary{School: row.School}
			groups[key] = p
		}
		p.Lessons++
		p.TotalBilled = p.TotalBilled.Add(row.Billed)
		p.TotalGST = p.TotalGST.Add(row.GST)
		p.TotalRoomHire = p.TotalRoomHire.Add(row.RoomHireShare)
		p.TotalProfit = p.TotalProfit.Add(row.Profit)
	}

	sort.Strings(keys)
	out := make([]model.ProfitSummary, 0, len(keys))
	for _, k := range keys {
		p := groups[k]
		p.TotalBilled = floor(p.TotalBilled)
		p.TotalGST = floor(p.TotalGST)
		p.TotalRoomHire = floor(p.TotalRoomHire)
		p.TotalProfit = floor(p.TotalProfit)
		out = append(out, *p)
	}
	return out
}

// ProfitsTotal sums the floored profit-by-school rows.
func ProfitsTotal(rows []model.ProfitSummary) model.ProfitSummary {
	total := model.ProfitSummary{School: TotalLabel}
	for _, p := range rows {
		total.Lessons += p.Lessons
		total.TotalBilled = total.TotalBilled.Add(p.TotalBilled)
		total.TotalGST = total.TotalGST.Add(p.TotalGST)
		total.TotalRoomHire = total.TotalRoomHire.Add(p.TotalRoomHire)
		total.TotalProfit = total.TotalProfit.Add(p.TotalProfit)
	}
	total.TotalBilled = floor(total.TotalBilled)
	total.TotalGST = floor(total.TotalGST)
	total.TotalRoomHire = floor(total.TotalRoomHire)
	total.TotalProfit = floor(total.TotalProfit)
	return total
}

// ProfitByTutor returns one row per tutor, sorted by tutor key.
func ProfitByTutor(rows []model.DerivedLessonRow) []model.TutorSummary {
	groups := make(map[string]*model.TutorSummary)
	var keys []string

	for _, row := range rows {
		key := normalize.Tutor(row.Tutor)
		t, ok := groups[key]
		if !ok {
			keys = append(keys, key)
			t = &model.TutorSummary{Tutor: row.Tutor}
			groups[key] = t
		}
		t.Lessons++
		t.TotalBilled = t.TotalBilled.Add(row.Billed)
		t.TotalSupportFee = t.TotalSupportFee.Add(row.TierFee)
		t.TotalProfit = t.TotalProfit.Add(row.Profit)
	}

	sort.Strings(keys)
	out := make([]model.TutorSummary, 0, len(keys))
	for _, k := range keys {
		t := groups[k]
		t.TotalBilled = floor(t.TotalBilled)
		t.TotalSupportFee = floor(t.TotalSupportFee)
		t.TotalProfit = floor(t.TotalProfit)
		out = append(out, *t)
	}
	return out
}

// TutorsTotal sums the floored profit-by-tutor rows.
func TutorsTotal(rows []model.TutorSummary) model.TutorSummary {
	total := model.TutorSummary{Tutor: TotalLabel}
	for _, t := range rows {
		total.Lessons += t.Lessons
		total.TotalBilled = total.TotalBilled.Add(t.TotalBilled)
		total.TotalSupportFee = total.TotalSupportFee.Add(t.TotalSupportFee)
		total.TotalProfit = total.TotalProfit.Add(t.TotalProfit)
	}
	total.TotalBilled = floor(total.TotalBilled)
	total.TotalSupportFee = floor(total.TotalSupportFee)
	total.TotalProfit = floor(total.TotalProfit)
	return total
}

// ZeroRateSchools lists schools whose room hire fell back to zero.
func (r *Report) ZeroRateSchools() []string {
	var out []string
	for _, s := range r.Schools {
		if s.RateSource.IsFallback() {
			out = append(out, s.School)
		}
	}
	return out
}

func floor(v decimal.Decimal) decimal.Decimal {
	return v.RoundFloor(2)
}
