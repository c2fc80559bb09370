package rates

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/Veraticus/musiqhub/internal/model"
)

//go:embed data/room_rates.csv
var builtinRates []byte

//go:embed data/aliases.csv
var builtinAliases []byte

// BuiltinRecords returns the franchise's published room-rate table.
func BuiltinRecords() ([]model.RoomRateRecord, error) {
	records, err := ParseCSV(bytes.NewReader(builtinRates))
	if err != nil {
		return nil, fmt.Errorf("builtin rate table: %w", err)
	}
	return records, nil
}

// BuiltinAliases returns the abbreviations used in tutors' lesson sheets.
func BuiltinAliases() ([]model.AliasEntry, error) {
	aliases, err := ParseAliasCSV(bytes.NewReader(builtinAliases))
	if err != nil {
		return nil, fmt.Errorf("builtin alias table: %w", err)
	}
	return aliases, nil
}
