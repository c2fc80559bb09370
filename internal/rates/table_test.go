package rates

import (
	"strings"
	"testing"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/normalize"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(tutor, school, rate string) model.RoomRateRecord {
	return model.RoomRateRecord{
		TutorName:  tutor,
		SchoolName: school,
		TutorKey:   normalize.Tutor(tutor),
		SchoolKey:  normalize.School(school),
		Rate:       decimal.RequireFromString(rate),
	}
}

func TestBuild_SchoolDefaults(t *testing.T) {
	records := []model.RoomRateRecord{
		rec("Barry Lee", "Sunnyhills School", "40.00"),
		rec("Jordan Morrison", "Sunnyhills School", "40.00"),
		rec("Shaun O'Kane", "Sunnyhills School", "20.00"),
		rec("Barry Lee", "Macleans Primary School", "12.50"),
		rec("Ben Lee", "Macleans Primary School", "12.50"),
		rec("Shaun O'Kane", "Macleans Primary School", "0.00"),
		rec("Paul Barry", "Paul's Home Studio", "0.00"),
	}

	tests := []struct {
		policy ZeroPolicy
		want   map[string]string
		name   string
	}{
		{
			name:   "legacy zero collapses school default",
			policy: ZeroPolicyLegacy,
			want: map[string]string{
				"sunnyhills school":       "20.00",
				"macleans primary school": "0.00",
				"pauls home studio":       "0.00",
			},
		},
		{
			name:   "lowest non-zero keeps paying rate",
			policy: ZeroPolicyLowestNonZero,
			want: map[string]string{
				"sunnyhills school":       "20.00",
				"macleans primary school": "12.50",
				"pauls home studio":       "0.00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Build(records, nil, BuildOptions{ZeroPolicy: tt.policy})
			require.NoError(t, err)

			for school, want := range tt.want {
				got, ok := table.Default(school)
				require.True(t, ok, school)
				assert.Equal(t, want, got.StringFixed(2), school)
			}
			assert.Equal(t, tt.policy, table.ZeroPolicy())
		})
	}
}

func TestBuild_TutorOverridesKeepTheirOwnRate(t *testing.T) {
	table, err := Build([]model.RoomRateRecord{
		rec("Barry Lee", "Macleans Primary School", "12.50"),
		rec("Shaun O'Kane", "Macleans Primary School", "0.00"),
	}, nil, BuildOptions{})
	require.NoError(t, err)

	rate, ok := table.Override("macleans primary school", "barrylee")
	require.True(t, ok)
	assert.Equal(t, "12.50", rate.StringFixed(2))

	def, ok := table.Default("macleans primary school")
	require.True(t, ok)
	assert.True(t, def.IsZero())
	assert.Equal(t, []string{"macleans primary school"}, table.TutorSchools("shauno'kane"))
}

func TestBuild_ExplicitSchoolWideEntryWins(t *testing.T) {
	table, err := Build([]model.RoomRateRecord{
		rec("Barry Lee", "Sunnyhills School", "40.00"),
		rec("Shaun O'Kane", "Sunnyhills School", "0.00"),
		rec("", "Sunnyhills School", "35.00"),
	}, nil, BuildOptions{})
	require.NoError(t, err)

	def, ok := table.Default("sunnyhills school")
	require.True(t, ok)
	assert.Equal(t, "35.00", def.StringFixed(2))
}

func TestBuild_Aliases(t *testing.T) {
	records := []model.RoomRateRecord{
		rec("Jordan Morrison", "St Mark's Catholic School", "20.00"),
	}
	records[0].Abbreviation = "SMCS"

	table, err := Build(records, []model.AliasEntry{
		{AliasKey: "st marks", SchoolKey: "st marks catholic school"},
		{AliasKey: "same", SchoolKey: "same"},
	}, BuildOptions{})
	require.NoError(t, err)

	target, ok := table.Alias("st marks")
	require.True(t, ok)
	assert.Equal(t, "st marks catholic school", target)

	target, ok = table.Alias("smcs")
	require.True(t, ok)
	assert.Equal(t, "st marks catholic school", target)

	_, ok = table.Alias("same")
	assert.False(t, ok, "self aliases are dropped")

	assert.Len(t, table.Aliases(), 2)
}

func TestBuild_RejectsAliasChains(t *testing.T) {
	_, err := Build(
		[]model.RoomRateRecord{rec("Ben Lee", "Point View School", "34.50")},
		[]model.AliasEntry{
			{AliasKey: "pv", SchoolKey: "point view"},
			{AliasKey: "point view", SchoolKey: "point view school"},
		},
		BuildOptions{},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAliasCycle)
}

func TestBuild_RejectsNegativeRate(t *testing.T) {
	bad := rec("Ben Lee", "Point View School", "1.00")
	bad.Rate = decimal.RequireFromString("-1.00")

	_, err := Build([]model.RoomRateRecord{bad}, nil, BuildOptions{})
	assert.ErrorIs(t, err, common.ErrInvalidRate)
}

func TestBuiltinTable(t *testing.T) {
	records, err := BuiltinRecords()
	require.NoError(t, err)
	aliases, err := BuiltinAliases()
	require.NoError(t, err)

	table, err := Build(records, aliases, BuildOptions{})
	require.NoError(t, err)

	tests := []struct {
		school string
		want   string
	}{
		{school: "bobbys private studio hurford road", want: "225.00"},
		{school: "st marks catholic school", want: "20.00"},
		{school: "bucklands beach school", want: "60.00"},
		// One tutor pays nothing here, so the legacy default collapses.
		{school: "macleans primary school", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.school, func(t *testing.T) {
			got, ok := table.Default(tt.school)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}

	for _, alias := range table.Aliases() {
		_, ok := table.Default(alias.SchoolKey)
		assert.True(t, ok, "alias %q points at unknown school %q", alias.AliasKey, alias.SchoolKey)
	}
}

func TestParseZeroPolicy(t *testing.T) {
	p, err := ParseZeroPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ZeroPolicyLegacy, p)

	p, err = ParseZeroPolicy("lowest-nonzero")
	require.NoError(t, err)
	assert.Equal(t, ZeroPolicyLowestNonZero, p)

	_, err = ParseZeroPolicy("highest")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"franchisee name, school name,room rate per week,school abbreviation",
		"Jordan Morrison,St Mark's Catholic School,$20.00,SMCS",
		"",
		`Paul Barry,"Edendale School, Auckland","$1,070.00"`,
	}, "\n")

	records, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "jordanmorrison", records[0].TutorKey)
	assert.Equal(t, "st marks catholic school", records[0].SchoolKey)
	assert.Equal(t, "SMCS", records[0].Abbreviation)
	assert.Equal(t, "20.00", records[0].Rate.StringFixed(2))

	assert.Equal(t, "edendale school auckland", records[1].SchoolKey)
	assert.Equal(t, "1070.00", records[1].Rate.StringFixed(2))
}

func TestParseCSV_HeaderlessKeepsFirstRecord(t *testing.T) {
	input := "Ben Lee,Point View School,$20.00\nAmy Fox,Cockle Bay School,$30.00\n"

	records, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "point view school", records[0].SchoolKey)
	assert.Equal(t, "20.00", records[0].Rate.StringFixed(2))

	table, err := Build(records, nil, BuildOptions{})
	require.NoError(t, err)
	res := NewResolver(table, ResolverOptions{}).Resolve("Point View School", "Ben Lee")
	assert.Equal(t, "20.00", res.Rate.StringFixed(2))
	assert.NotEqual(t, model.RateSourceFallback, res.Source)
}

func TestParseAliasCSV_Header(t *testing.T) {
	aliases, err := ParseAliasCSV(strings.NewReader("alias,school\nst mark,st marks\n"))
	require.NoError(t, err)
	require.Len(t, aliases, 1)

	aliases, err = ParseAliasCSV(strings.NewReader("alias,alias school\nst mark,st marks\n"))
	require.NoError(t, err)
	assert.Len(t, aliases, 2, "a first row that is not the label pair is data")
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		input   string
	}{
		{name: "too few columns", input: "Ben Lee,Point View School", wantErr: common.ErrSchemaMismatch},
		{name: "bad rate", input: "Ben Lee,Point View School,lots", wantErr: common.ErrInvalidRate},
		{name: "negative rate", input: "Ben Lee,Point View School,-$5.00", wantErr: common.ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
