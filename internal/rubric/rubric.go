package rubric

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"MaturityScanner/internal/domain"
)

const (
	// DefaultMinQuotes is the evidence gate: a stage above 0 needs at least
	// this many distinct quotes unless a theme overrides it.
	DefaultMinQuotes = 2

	// Freshness decay defaults in months; both are configuration, not
	// constants baked into the scorer.
	DefaultFreshMonths = 24
	DefaultStaleMonths = 48

	maxStage = 4
)

// Definition is the versioned rubric consumed by the scorer: theme → ordered
// stage thresholds → pattern sets, plus evidence-gate and freshness settings.
type Definition struct {
	Version   string    `yaml:"version"`
	MinQuotes int       `yaml:"minQuotes"`
	Freshness Freshness `yaml:"freshness"`
	Themes    []Theme   `yaml:"themes"`
}

// Freshness bounds the graduated evidence-age decay.
type Freshness struct {
	FreshMonths int `yaml:"freshMonths"`
	StaleMonths int `yaml:"staleMonths"`
}

// Theme holds one scored ESG theme with its retrieval query and stage ladder.
type Theme struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Query     string  `yaml:"query"`
	MinQuotes int     `yaml:"minQuotes"`
	Stages    []Stage `yaml:"stages"`
}

// Stage is one rung of the maturity ladder with its keyword patterns.
type Stage struct {
	Stage    int      `yaml:"stage"`
	Patterns []string `yaml:"patterns"`
}

// Load reads and schema-validates a rubric file. Any failure is a
// ConfigError: the scorer cannot run without a valid rubric.
func Load(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, &domain.ConfigError{Reason: fmt.Sprintf("cannot read rubric %s", path), Err: err}
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return Definition{}, &domain.ConfigError{Reason: fmt.Sprintf("cannot parse rubric %s", path), Err: err}
	}

	def.applyDefaults()
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func (d *Definition) applyDefaults() {
	if d.MinQuotes == 0 {
		d.MinQuotes = DefaultMinQuotes
	}
	if d.Freshness.FreshMonths == 0 {
		d.Freshness.FreshMonths = DefaultFreshMonths
	}
	if d.Freshness.StaleMonths == 0 {
		d.Freshness.StaleMonths = DefaultStaleMonths
	}
}

// Validate enforces the rubric schema.
func (d Definition) Validate() error {
	if d.Version == "" {
		return &domain.ConfigError{Reason: "rubric version is required"}
	}
	if d.MinQuotes < 1 {
		return &domain.ConfigError{Reason: fmt.Sprintf("minQuotes %d must be at least 1", d.MinQuotes)}
	}
	if d.Freshness.StaleMonths <= d.Freshness.FreshMonths {
		return &domain.ConfigError{Reason: fmt.Sprintf("staleMonths %d must exceed freshMonths %d", d.Freshness.StaleMonths, d.Freshness.FreshMonths)}
	}
	if len(d.Themes) == 0 {
		return &domain.ConfigError{Reason: "rubric defines no themes"}
	}

	seen := map[string]bool{}
	for _, theme := range d.Themes {
		if theme.ID == "" {
			return &domain.ConfigError{Reason: "theme with empty id"}
		}
		if seen[theme.ID] {
			return &domain.ConfigError{Reason: fmt.Sprintf("duplicate theme %s", theme.ID)}
		}
		seen[theme.ID] = true

		if theme.Query == "" {
			return &domain.ConfigError{Reason: fmt.Sprintf("theme %s has no retrieval query", theme.ID)}
		}
		if len(theme.Stages) == 0 {
			return &domain.ConfigError{Reason: fmt.Sprintf("theme %s defines no stages", theme.ID)}
		}

		prev := 0
		for _, stage := range theme.Stages {
			if stage.Stage < 1 || stage.Stage > maxStage {
				return &domain.ConfigError{Reason: fmt.Sprintf("theme %s: stage %d outside [1,%d]", theme.ID, stage.Stage, maxStage)}
			}
			if stage.Stage <= prev {
				return &domain.ConfigError{Reason: fmt.Sprintf("theme %s: stages must be strictly ascending", theme.ID)}
			}
			prev = stage.Stage
			if len(stage.Patterns) == 0 {
				return &domain.ConfigError{Reason: fmt.Sprintf("theme %s: stage %d has no patterns", theme.ID, stage.Stage)}
			}
		}
	}
	return nil
}

// Theme returns a theme by id.
func (d Definition) Theme(id string) (Theme, bool) {
	for _, theme := range d.Themes {
		if theme.ID == id {
			return theme, true
		}
	}
	return Theme{}, false
}

// EffectiveMinQuotes resolves the per-theme override against the rubric default.
func (d Definition) EffectiveMinQuotes(theme Theme) int {
	if theme.MinQuotes > 0 {
		return theme.MinQuotes
	}
	return d.MinQuotes
}
