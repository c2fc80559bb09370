package finance

import (
	"log/slog"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/normalize"
	"github.com/Veraticus/musiqhub/internal/rates"
	"github.com/shopspring/decimal"
)

var (
	gstNumerator   = decimal.NewFromInt(3)
	gstDenominator = decimal.NewFromInt(23)
)

// RateResolver resolves the weekly room rate for a school and tutor.
type RateResolver interface {
	Resolve(school, tutor string) rates.Resolution
}

// Options configures derivation.
type Options struct {
	Logger   *slog.Logger
	ApplyGST bool
}

// Result holds the derived rows and the rooms their room hire came from.
type Result struct {
	Rows  []model.DerivedLessonRow
	Rooms []model.RoomHire
}

// GST returns the tax portion of a GST-inclusive amount, rounded to cents.
func GST(billed decimal.Decimal) decimal.Decimal {
	if billed.IsZero() {
		return decimal.Zero
	}
	return billed.Div(gstDenominator).Mul(gstNumerator).Round(2)
}

// Derive computes GST, room-hire share, tier, tier fee and profit for every
// event. Rooms are grouped by normalized school name; a room's rate is split
// evenly across the distinct students who had a lesson there and charged
// to each of its rows.
func Derive(events []model.LessonEvent, resolver RateResolver, opts Options) Result {
	logger := common.LoggerOrDefault(opts.Logger)

	rooms := groupRooms(events)
	byKey := make(map[string]*model.RoomHire, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		res := resolver.Resolve(room.School, room.Tutor)
		room.Rate = res.Rate
		room.RateSource = res.Source
		room.MatchedSchool = res.MatchedSchool
		if room.Students > 0 {
			room.PerStudent = res.Rate.Div(decimal.NewFromInt(int64(room.Students))).Round(2)
		}
		byKey[room.SchoolKey] = room

		if res.Source.IsFallback() {
			logger.Warn("Room hire zeroed for unmatched school",
				"school", room.School,
				"tutor", room.Tutor,
				"students", room.Students)
		}
	}

	rows := make([]model.DerivedLessonRow, 0, len(events))
	for _, ev := range events {
		room := byKey[normalize.School(ev.School)]
		rows = append(rows, deriveRow(ev, room, opts.ApplyGST))
	}

	logger.Debug("Derived lesson rows",
		"rows", len(rows),
		"rooms", len(rooms),
		"gst", opts.ApplyGST)

	return Result{Rows: rows, Rooms: rooms}
}

func deriveRow(ev model.LessonEvent, room *model.RoomHire, applyGST bool) model.DerivedLessonRow {
	row := model.DerivedLessonRow{
		LessonEvent:   ev,
		Tutor:         ev.Teacher,
		GST:           decimal.Zero,
		RoomHireShare: decimal.Zero,
		NetLessonFee:  decimal.Zero,
	}
	if row.Tutor == "" {
		row.Tutor = room.Tutor
	}
	row.RateSource = room.RateSource
	row.RoomHireShare = room.PerStudent

	billed := ev.Billed.Round(2)
	if applyGST {
		row.GST = GST(billed)
	}

	row.Profit = billed.Sub(row.GST).Sub(row.RoomHireShare).Round(2)
	if !billed.IsZero() {
		row.NetLessonFee = row.Profit
	}

	row.Tier = TierOf(row.NetLessonFee)
	row.TierFee = TierFee(row.Tier)

	return row
}

// groupRooms collects one room per normalized school key in first-seen
// order, with its first non-blank teacher and distinct student count.
func groupRooms(events []model.LessonEvent) []model.RoomHire {
	var rooms []model.RoomHire
	index := make(map[string]int)
	students := make(map[string]map[string]struct{})

	for _, ev := range events {
		key := normalize.School(ev.School)
		i, ok := index[key]
		if !ok {
			i = len(rooms)
			index[key] = i
			rooms = append(rooms, model.RoomHire{School: ev.School, SchoolKey: key})
			students[key] = make(map[string]struct{})
		}
		if rooms[i].Tutor == "" && ev.Teacher != "" {
			rooms[i].Tutor = ev.Teacher
		}
		students[key][ev.Student] = struct{}{}
	}

	for i := range rooms {
		rooms[i].Students = len(students[rooms[i].SchoolKey])
	}

	return rooms
}
