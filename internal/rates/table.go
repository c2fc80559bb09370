// Package rates builds the room-hire rate tables and resolves a weekly
// rate for a (school, tutor) pair.
package rates

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/normalize"
	"github.com/shopspring/decimal"
)

// ZeroPolicy controls how a school-wide default is derived when tutors
// pay different rates for the same school.
type ZeroPolicy string

const (
	// ZeroPolicyLegacy zeroes the school default when any tutor has a $0.00
	// entry for that school, otherwise it takes the lowest non-zero rate.
	ZeroPolicyLegacy ZeroPolicy = "legacy"
	// ZeroPolicyLowestNonZero always takes the lowest non-zero rate.
	ZeroPolicyLowestNonZero ZeroPolicy = "lowest-nonzero"
)

// ParseZeroPolicy validates a configured policy name.
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch ZeroPolicy(s) {
	case ZeroPolicyLegacy, "":
		return ZeroPolicyLegacy, nil
	case ZeroPolicyLowestNonZero:
		return ZeroPolicyLowestNonZero, nil
	default:
		return "", fmt.Errorf("%w: zero policy %q", common.ErrInvalidConfig, s)
	}
}

type pairKey struct {
	school string
	tutor  string
}

// Table is the immutable set of room-rate lookups used for one run.
// Build it once and share it; nothing mutates it afterwards.
type Table struct {
	overrides    map[pairKey]decimal.Decimal
	defaults     map[string]decimal.Decimal
	aliases      map[string]string
	tutorSchools map[string][]string
	defaultKeys  []string
	records      []model.RoomRateRecord
	policy       ZeroPolicy
}

// BuildOptions configures table construction.
type BuildOptions struct {
	Logger     *slog.Logger
	ZeroPolicy ZeroPolicy
}

// Build assembles the tutor-override map, the school-default map and the
// alias map. Abbreviations on records become aliases. Alias chains are rejected.
func Build(records []model.RoomRateRecord, aliases []model.AliasEntry, opts BuildOptions) (*Table, error) {
	logger := common.LoggerOrDefault(opts.Logger)
	policy := opts.ZeroPolicy
	if policy == "" {
		policy = ZeroPolicyLegacy
	}

	t := &Table{
		overrides:    make(map[pairKey]decimal.Decimal),
		defaults:     make(map[string]decimal.Decimal),
		aliases:      make(map[string]string),
		tutorSchools: make(map[string][]string),
		records:      append([]model.RoomRateRecord(nil), records...),
		policy:       policy,
	}

	lowest := make(map[string]decimal.Decimal)
	hasZero := make(map[string]bool)
	explicit := make(map[string]decimal.Decimal)
	var abbreviations []model.AliasEntry

	for _, rec := range records {
		if rec.Rate.IsNegative() {
			return nil, fmt.Errorf("%w: %s at %s is negative", common.ErrInvalidRate, rec.TutorName, rec.SchoolName)
		}
		if rec.Abbreviation != "" {
			abbreviations = append(abbreviations, model.AliasEntry{
				AliasKey:  normalize.School(rec.Abbreviation),
				SchoolKey: rec.SchoolKey,
			})
		}

		if rec.TutorKey == "" {
			explicit[rec.SchoolKey] = rec.Rate
			continue
		}

		key := pairKey{school: rec.SchoolKey, tutor: rec.TutorKey}
		if _, seen := t.overrides[key]; !seen {
			t.tutorSchools[rec.TutorKey] = append(t.tutorSchools[rec.TutorKey], rec.SchoolKey)
		}
		t.overrides[key] = rec.Rate

		if rec.Rate.IsZero() {
			hasZero[rec.SchoolKey] = true
		}
		current, ok := lowest[rec.SchoolKey]
		if !ok || (!rec.Rate.IsZero() && (current.IsZero() || rec.Rate.LessThan(current))) {
			lowest[rec.SchoolKey] = rec.Rate
		}
	}

	for school, rate := range lowest {
		if policy == ZeroPolicyLegacy && hasZero[school] {
			t.defaults[school] = decimal.Zero
			continue
		}
		t.defaults[school] = rate
	}
	for school, rate := range explicit {
		t.defaults[school] = rate
	}

	for school := range t.defaults {
		t.defaultKeys = append(t.defaultKeys, school)
	}
	sort.Strings(t.defaultKeys)
	for tutor := range t.tutorSchools {
		sort.Strings(t.tutorSchools[tutor])
	}

	all := append(append([]model.AliasEntry(nil), aliases...), abbreviations...)
	if err := t.addAliases(all, logger); err != nil {
		return nil, err
	}

	logger.Debug("Built room rate table",
		"records", len(records),
		"schools", len(t.defaults),
		"aliases", len(t.aliases),
		"zero_policy", string(policy))

	return t, nil
}

func (t *Table) addAliases(entries []model.AliasEntry, logger *slog.Logger) error {
	for _, entry := range entries {
		if entry.AliasKey == "" || entry.SchoolKey == "" || entry.AliasKey == entry.SchoolKey {
			continue
		}
		if prev, ok := t.aliases[entry.AliasKey]; ok && prev != entry.SchoolKey {
			logger.Warn("Alias redefined, keeping the later target",
				"alias", entry.AliasKey, "previous", prev, "target", entry.SchoolKey)
		}
		t.aliases[entry.AliasKey] = entry.SchoolKey
	}

	// Resolution is single-hop; a target that is itself an alias would need a second hop.
	for alias, target := range t.aliases {
		if next, ok := t.aliases[target]; ok {
			return fmt.Errorf("%w: %q -> %q -> %q", common.ErrAliasCycle, alias, target, next)
		}
		if !t.knownSchool(target) {
			logger.Warn("Alias target has no rate entry", "alias", alias, "target", target)
		}
	}

	return nil
}

func (t *Table) knownSchool(key string) bool {
	if _, ok := t.defaults[key]; ok {
		return true
	}
	return false
}

// Override returns the tutor-specific rate for a school.
func (t *Table) Override(schoolKey, tutorKey string) (decimal.Decimal, bool) {
	rate, ok := t.overrides[pairKey{school: schoolKey, tutor: tutorKey}]
	return rate, ok
}

// Default returns the school-wide default rate.
func (t *Table) Default(schoolKey string) (decimal.Decimal, bool) {
	rate, ok := t.defaults[schoolKey]
	return rate, ok
}

// Alias returns the canonical school key for an alias.
func (t *Table) Alias(key string) (string, bool) {
	target, ok := t.aliases[key]
	return target, ok
}

// DefaultKeys returns the school keys with a default rate, sorted.
func (t *Table) DefaultKeys() []string {
	return append([]string(nil), t.defaultKeys...)
}

// TutorSchools returns the school keys a tutor has specific rates for, sorted.
func (t *Table) TutorSchools(tutorKey string) []string {
	return append([]string(nil), t.tutorSchools[tutorKey]...)
}

// Records returns the records the table was built from, in input order.
func (t *Table) Records() []model.RoomRateRecord {
	return append([]model.RoomRateRecord(nil), t.records...)
}

// Aliases returns every alias mapping sorted by alias key.
func (t *Table) Aliases() []model.AliasEntry {
	out := make([]model.AliasEntry, 0, len(t.aliases))
	for alias, target := range t.aliases {
		out = append(out, model.AliasEntry{AliasKey: alias, SchoolKey: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AliasKey < out[j].AliasKey })
	return out
}

// ZeroPolicy reports the policy the defaults were derived with.
func (t *Table) ZeroPolicy() ZeroPolicy {
	return t.policy
}
