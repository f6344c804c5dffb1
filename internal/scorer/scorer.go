package scorer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/rubric"
)

// Scorer classifies a theme into a maturity stage from extracted evidence.
// It never emits a stage above 0 backed by fewer than the configured minimum
// of distinct evidence items, regardless of pattern match strength.
type Scorer struct {
	def    rubric.Definition
	det    determinism.Context
	logger *slog.Logger
}

// New wires the validated rubric definition and determinism substrate.
func New(def rubric.Definition, det determinism.Context, logger *slog.Logger) *Scorer {
	return &Scorer{def: def, det: det, logger: logger}
}

// Score picks the highest stage whose patterns the evidence satisfies, then
// applies the evidence-count gate. Zero evidence is not an error: it is the
// normal path to stage 0.
func (s *Scorer) Score(themeID string, evidence []domain.EvidenceQuote, org string, year int, snapshotID string) (domain.StageScore, error) {
	theme, ok := s.def.Theme(themeID)
	if !ok {
		return domain.StageScore{}, &domain.ConfigError{Reason: fmt.Sprintf("theme %s is not in the rubric", themeID)}
	}

	distinct := distinctEvidence(evidence)

	stage, supporting, coverage := s.classify(theme, distinct)
	score := domain.StageScore{
		Theme:      themeID,
		Stage:      stage,
		SnapshotID: snapshotID,
	}

	if stage == 0 {
		score.Audit = "no stage patterns matched"
		return score, nil
	}

	minQuotes := s.def.EffectiveMinQuotes(theme)
	if len(supporting) < minQuotes {
		s.debug("stage demoted by evidence gate",
			"org", org, "year", year, "theme", themeID,
			"matched_stage", stage, "distinct_quotes", len(supporting), "min_quotes", minQuotes)
		return domain.StageScore{
			Theme:      themeID,
			Stage:      0,
			Confidence: 0,
			SnapshotID: snapshotID,
			Audit:      fmt.Sprintf("demoted from stage %d: %d distinct quotes below min_quotes %d", stage, len(supporting), minQuotes),
		}, nil
	}

	ids := make([]string, len(supporting))
	for i, q := range supporting {
		ids[i] = q.ID
	}
	sort.Strings(ids)

	score.EvidenceIDs = ids
	score.Confidence = s.confidence(coverage, supporting)
	return score, nil
}

// classify walks stages from most to least demanding and returns the first
// satisfied one with its supporting quotes and pattern coverage.
func (s *Scorer) classify(theme rubric.Theme, evidence []domain.EvidenceQuote) (int, []domain.EvidenceQuote, float64) {
	for i := len(theme.Stages) - 1; i >= 0; i-- {
		stage := theme.Stages[i]

		var supporting []domain.EvidenceQuote
		matchedPatterns := map[string]bool{}
		for _, quote := range evidence {
			for _, pattern := range stage.Patterns {
				if containsFold(quote.Quote, pattern) {
					supporting = append(supporting, quote)
					matchedPatterns[pattern] = true
					break
				}
			}
		}

		if len(supporting) > 0 {
			coverage := float64(len(matchedPatterns)) / float64(len(stage.Patterns))
			return stage.Stage, supporting, coverage
		}
	}
	return 0, nil, 0
}

// confidence combines pattern-match specificity with graduated evidence
// freshness decay, bounded to [0,1].
func (s *Scorer) confidence(coverage float64, supporting []domain.EvidenceQuote) float64 {
	specificity := 0.5 + 0.5*coverage

	total := 0.0
	for _, quote := range supporting {
		total += s.freshness(quote.AsOf)
	}
	freshness := total / float64(len(supporting))

	c := specificity * freshness
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// freshness is 1 inside the fresh window, 0 beyond the stale horizon, and
// decays linearly in between. Evidence with no timestamp is not penalized.
func (s *Scorer) freshness(asOf time.Time) float64 {
	if asOf.IsZero() {
		return 1
	}

	age := monthsBetween(asOf, s.det.Now())
	fresh := float64(s.def.Freshness.FreshMonths)
	stale := float64(s.def.Freshness.StaleMonths)

	switch {
	case age <= fresh:
		return 1
	case age >= stale:
		return 0
	default:
		return (stale - age) / (stale - fresh)
	}
}

func monthsBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from).Hours() / (24 * 30.44)
}

// distinctEvidence de-duplicates quotes by id, keeping first occurrence.
func distinctEvidence(evidence []domain.EvidenceQuote) []domain.EvidenceQuote {
	seen := map[string]bool{}
	out := make([]domain.EvidenceQuote, 0, len(evidence))
	for _, q := range evidence {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Scorer) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
