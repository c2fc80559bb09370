package report

import (
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
)

// View titles.
const (
	TitleStudentsBySchool = "Students by School"
	TitleFeesByTier       = "Fees by Tier"
	TitleProfitBySchool   = "Profit by School"
	TitleProfitByTutor    = "Profit by Tutor"
)

// Column layouts of each view. Downstream consumers rely on these names
// and their order.
var (
	StudentsBySchoolColumns = []string{"School", "Students", "Total Room Rate", "Room Hire Per Student", "Total Room Hire", "Rate Source"}
	FeesByTierColumns       = []string{"Tier", "Count", "Tier Fee", "Total Support Fee"}
	ProfitBySchoolColumns   = []string{"School", "Lessons", "Total Billed", "Total GST", "Total Room Hire", "Total Profit"}
	ProfitByTutorColumns    = []string{"Tutor", "Lessons", "Total Billed", "Total Support Fee", "Total Profit"}
)

// Kind describes how a column's cells should be formatted.
type Kind int

// Column kinds.
const (
	KindText Kind = iota
	KindCount
	KindMoney
)

// Numeric reports whether cells of this kind hold numbers.
func (k Kind) Numeric() bool {
	return k == KindCount || k == KindMoney
}

// Table is a renderer-neutral view: a title, column names and string cells.
// The last row is always the Total row.
type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Kinds   []Kind     `json:"-"`
	Rows    [][]string `json:"rows"`
}

// Total returns the Total row.
func (t Table) Total() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[len(t.Rows)-1]
}

// Body returns the group rows without the Total row.
func (t Table) Body() [][]string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[:len(t.Rows)-1]
}

// Tables renders every view in display order.
func (r *Report) Tables() []Table {
	return []Table{
		r.StudentsBySchoolTable(),
		r.FeesByTierTable(),
		r.ProfitBySchoolTable(),
		r.ProfitByTutorTable(),
	}
}

// StudentsBySchoolTable renders the students-by-school view.
func (r *Report) StudentsBySchoolTable() Table {
	t := Table{
		Title:   TitleStudentsBySchool,
		Columns: StudentsBySchoolColumns,
		Kinds:   []Kind{KindText, KindCount, KindMoney, KindMoney, KindMoney, KindText},
	}
	for _, s := range append(slices.Clone(r.Schools), r.SchoolsTotal) {
		t.Rows = append(t.Rows, []string{
			s.School,
			strconv.Itoa(s.Students),
			money(s.TotalRoomRate),
			money(s.RoomHirePerStudent),
			money(s.TotalRoomHire),
			string(s.RateSource),
		})
	}
	return t
}

// FeesByTierTable renders the fees-by-tier view.
func (r *Report) FeesByTierTable() Table {
	t := Table{
		Title:   TitleFeesByTier,
		Columns: FeesByTierColumns,
		Kinds:   []Kind{KindText, KindCount, KindMoney, KindMoney},
	}
	for _, tier := range r.Tiers {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(tier.Tier),
			strconv.Itoa(tier.Count),
			money(tier.TierFee),
			money(tier.TotalSupportFee),
		})
	}
	t.Rows = append(t.Rows, []string{
		TotalLabel,
		strconv.Itoa(r.TiersTotal.Count),
		money(r.TiersTotal.TierFee),
		money(r.TiersTotal.TotalSupportFee),
	})
	return t
}

// ProfitBySchoolTable renders the profit-by-school view.
func (r *Report) ProfitBySchoolTable() Table {
	t := Table{
		Title:   TitleProfitBySchool,
		Columns: ProfitBySchoolColumns,
		Kinds:   []Kind{KindText, KindCount, KindMoney, KindMoney, KindMoney, KindMoney},
	}
	for _, p := range append(slices.Clone(r.Profits), r.ProfitsTotal) {
		t.Rows = append(t.Rows, []string{
			p.School,
			strconv.Itoa(p.Lessons),
			money(p.TotalBilled),
			money(p.TotalGST),
			money(p.TotalRoomHire),
			money(p.TotalProfit),
		})
	}
	return t
}

// ProfitByTutorTable renders the profit-by-tutor view.
func (r *Report) ProfitByTutorTable() Table {
	t := Table{
		Title:   TitleProfitByTutor,
		Columns: ProfitByTutorColumns,
		Kinds:   []Kind{KindText, KindCount, KindMoney, KindMoney, KindMoney},
	}
	for _, p := range append(slices.Clone(r.Tutors), r.TutorsTotal) {
		t.Rows = append(t.Rows, []string{
			p.Tutor,
			strconv.Itoa(p.Lessons),
			money(p.TotalBilled),
			money(p.TotalSupportFee),
			money(p.TotalProfit),
		})
	}
	return t
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}
