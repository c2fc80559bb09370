package model

import "github.com/shopspring/decimal"

// RateSource indicates which lookup produced a room rate.
type RateSource string

const (
	// RateSourceTutor is a tutor-specific rate for the school as named.
	RateSourceTutor RateSource = "tutor"
	// RateSourceAliasTutor is a tutor-specific rate found after alias resolution.
	RateSourceAliasTutor RateSource = "alias-tutor"
	// RateSourceSchool is the school-wide default rate.
	RateSourceSchool RateSource = "school"
	// RateSourceAliasSchool is the school-wide default found after alias resolution.
	RateSourceAliasSchool RateSource = "alias-school"
	// RateSourceFuzzy is a rate taken from the closest similar school name.
	RateSourceFuzzy RateSource = "fuzzy"
	// RateSourceFallback means nothing matched and the rate defaulted to zero.
	RateSourceFallback RateSource = "fallback"
)

// IsFallback reports whether the rate was zeroed because no entry matched.
func (s RateSource) IsFallback() bool {
	return s == RateSourceFallback
}

// RoomRateRecord is one line of the room-rate table.
// An empty TutorKey marks a school-wide entry.
type RoomRateRecord struct {
	Rate         decimal.Decimal
	TutorName    string
	SchoolName   string
	Abbreviation string
	TutorKey     string
	SchoolKey    string
}

// AliasEntry maps an alternate normalized school name to its canonical key.
type AliasEntry struct {
	AliasKey  string
	SchoolKey string
}
