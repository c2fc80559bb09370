package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/rates"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Rate table sources.
const (
	RatesBuiltin = "builtin"
	RatesFile    = "file"
	RatesStore   = "db"
)

// Settings holds the validated runtime configuration of a report run.
type Settings struct {
	LogLevel       string  `validate:"oneof=debug info warn error"`
	LogFormat      string  `validate:"oneof=console json"`
	DatabasePath   string  `validate:"required"`
	RatesSource    string  `validate:"oneof=builtin file db"`
	RatesFile      string  `validate:"required_if=RatesSource file"`
	AliasesFile    string
	ZeroPolicy     string  `validate:"oneof=legacy lowest-nonzero"`
	FuzzyScope     string  `validate:"oneof=schools all"`
	FuzzyThreshold float64 `validate:"gt=0,lte=1"`
	Fuzzy          bool
	ApplyGST       bool
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", "~/.local/share/musiqhub/musiqhub.db")
	v.SetDefault("rates.source", RatesBuiltin)
	v.SetDefault("rates.zero_policy", string(rates.ZeroPolicyLegacy))
	v.SetDefault("rates.fuzzy", true)
	v.SetDefault("rates.fuzzy_scope", string(rates.FuzzySchools))
	v.SetDefault("rates.fuzzy_threshold", rates.DefaultFuzzyThreshold)
	v.SetDefault("report.gst", true)
}

// LoadSettings reads settings from the global viper instance.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(viper.GetViper())
}

// LoadSettingsFrom reads and validates settings from v.
func LoadSettingsFrom(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	s := &Settings{
		LogLevel:       strings.ToLower(v.GetString("logging.level")),
		LogFormat:      strings.ToLower(v.GetString("logging.format")),
		DatabasePath:   ExpandPath(v.GetString("database.path")),
		RatesSource:    strings.ToLower(v.GetString("rates.source")),
		RatesFile:      ExpandPath(v.GetString("rates.file")),
		AliasesFile:    ExpandPath(v.GetString("rates.aliases_file")),
		ZeroPolicy:     strings.ToLower(v.GetString("rates.zero_policy")),
		Fuzzy:          v.GetBool("rates.fuzzy"),
		FuzzyScope:     strings.ToLower(v.GetString("rates.fuzzy_scope")),
		FuzzyThreshold: v.GetFloat64("rates.fuzzy_threshold"),
		ApplyGST:       v.GetBool("report.gst"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every field against its constraints.
func (s *Settings) Validate() error {
	err := validator.New().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %q", fe.Field(), fe.Value(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
}

// BuildOptions returns the rate table options these settings select.
func (s *Settings) BuildOptions() rates.BuildOptions {
	return rates.BuildOptions{ZeroPolicy: rates.ZeroPolicy(s.ZeroPolicy)}
}

// ResolverOptions returns the lookup options these settings select.
func (s *Settings) ResolverOptions() rates.ResolverOptions {
	return rates.ResolverOptions{
		Fuzzy:          s.Fuzzy,
		FuzzyScope:     rates.FuzzyScope(s.FuzzyScope),
		FuzzyThreshold: s.FuzzyThreshold,
	}
}
