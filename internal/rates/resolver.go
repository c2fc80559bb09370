package rates

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/normalize"
	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy school match.
const DefaultFuzzyThreshold = 0.7

// FuzzyScope selects which keys fuzzy matching searches.
type FuzzyScope string

const (
	// FuzzySchools searches school-default keys only.
	FuzzySchools FuzzyScope = "schools"
	// FuzzyAll searches the tutor's own rate entries first, then school defaults.
	FuzzyAll FuzzyScope = "all"
)

// ParseFuzzyScope validates a configured scope name.
func ParseFuzzyScope(s string) (FuzzyScope, error) {
	switch FuzzyScope(s) {
	case FuzzySchools, "":
		return FuzzySchools, nil
	case FuzzyAll:
		return FuzzyAll, nil
	default:
		return "", fmt.Errorf("%w: fuzzy scope %q", common.ErrInvalidConfig, s)
	}
}

// ResolverOptions configures the lookup chain.
type ResolverOptions struct {
	Logger         *slog.Logger
	FuzzyScope     FuzzyScope
	FuzzyThreshold float64
	Fuzzy          bool
}

// Resolution is the outcome of a rate lookup.
type Resolution struct {
	Source        model.RateSource
	MatchedSchool string // school key the rate was found under; empty on fallback
	Rate          decimal.Decimal
	Score         float64 // similarity for fuzzy matches, 1 otherwise
}

// query carries the normalized inputs through the chain. school is
// replaced by its alias target once the alias step has run.
type query struct {
	school  string
	tutor   string
	aliased bool
}

type step struct {
	run  func(q *query) (Resolution, bool)
	name string
}

// Resolver looks up weekly room rates through an ordered chain:
// tutor override, alias then tutor override, school default, fuzzy match,
// and finally a zero fallback. The first step that matches wins.
type Resolver struct {
	table  *Table
	logger *slog.Logger
	steps  []step
	opts   ResolverOptions
}

// NewResolver creates a resolver over an immutable table.
func NewResolver(table *Table, opts ResolverOptions) *Resolver {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.FuzzyScope == "" {
		opts.FuzzyScope = FuzzySchools
	}

	r := &Resolver{
		table:  table,
		logger: common.LoggerOrDefault(opts.Logger),
		opts:   opts,
	}

	r.steps = []step{
		{name: "tutor", run: r.tutorOverride},
		{name: "alias", run: r.aliasOverride},
		{name: "school", run: r.schoolDefault},
	}
	if opts.Fuzzy {
		r.steps = append(r.steps, step{name: "fuzzy", run: r.fuzzy})
	}

	return r
}

// Table returns the table the resolver reads from.
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve returns the weekly room rate for a school as taught by a tutor.
// It never fails: unmatched schools resolve to zero with RateSourceFallback.
func (r *Resolver) Resolve(school, tutor string) Resolution {
	q := &query{
		school: normalize.School(school),
		tutor:  normalize.Tutor(tutor),
	}

	if q.school != "" {
		for _, s := range r.steps {
			if res, ok := s.run(q); ok {
				r.logger.Debug("Resolved room rate",
					"school", school,
					"tutor", tutor,
					"step", s.name,
					"matched", res.MatchedSchool,
					"rate", res.Rate.StringFixed(2))
				return res
			}
		}
	}

	r.logger.Warn("No room rate found, using zero",
		"school", school,
		"school_key", q.school,
		"tutor", tutor)

	return Resolution{Rate: decimal.Zero, Source: model.RateSourceFallback}
}

func (r *Resolver) tutorOverride(q *query) (Resolution, bool) {
	if q.tutor == "" {
		return Resolution{}, false
	}
	rate, ok := r.table.Override(q.school, q.tutor)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Rate: rate, Source: model.RateSourceTutor, MatchedSchool: q.school, Score: 1}, true
}

func (r *Resolver) aliasOverride(q *query) (Resolution, bool) {
	target, ok := r.table.Alias(q.school)
	if !ok {
		return Resolution{}, false
	}
	q.school = target
	q.aliased = true

	if q.tutor == "" {
		return Resolution{}, false
	}
	rate, ok := r.table.Override(q.school, q.tutor)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Rate: rate, Source: model.RateSourceAliasTutor, MatchedSchool: q.school, Score: 1}, true
}

func (r *Resolver) schoolDefault(q *query) (Resolution, bool) {
	rate, ok := r.table.Default(q.school)
	if !ok {
		return Resolution{}, false
	}
	source := model.RateSourceSchool
	if q.aliased {
		source = model.RateSourceAliasSchool
	}
	return Resolution{Rate: rate, Source: source, MatchedSchool: q.school, Score: 1}, true
}

func (r *Resolver) fuzzy(q *query) (Resolution, bool) {
	if r.opts.FuzzyScope == FuzzyAll && q.tutor != "" {
		if key, score, ok := closest(q.school, r.table.TutorSchools(q.tutor), r.opts.FuzzyThreshold); ok {
			rate, _ := r.table.Override(key, q.tutor)
			return Resolution{Rate: rate, Source: model.RateSourceFuzzy, MatchedSchool: key, Score: score}, true
		}
	}

	key, score, ok := closest(q.school, r.table.DefaultKeys(), r.opts.FuzzyThreshold)
	if !ok {
		return Resolution{}, false
	}
	rate, _ := r.table.Default(key)
	return Resolution{Rate: rate, Source: model.RateSourceFuzzy, MatchedSchool: key, Score: score}, true
}

// Similarity is 1 - editDistance/longerLength, measured in runes.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// closest returns the best candidate at or above threshold. Candidates
// must be sorted; ties go to the earliest.
func closest(key string, candidates []string, threshold float64) (string, float64, bool) {
	best, bestScore := "", 0.0
	for _, c := range candidates {
		score := Similarity(key, c)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == "" || bestScore < threshold {
		return "", 0, false
	}
	return best, bestScore, true
}
