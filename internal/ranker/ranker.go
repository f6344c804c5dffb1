package ranker

import (
	"fmt"
	"math"
	"sort"

	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
)

// tieEpsilon scales the hash-derived perturbation. Small enough that it can
// only separate exact ties, never reorder genuinely different scores.
const tieEpsilon = 1e-9

// SemanticScorer computes a [0,1] relevance proxy for a query/text pair.
// Keeping this abstract lets a real embedding or cross-encoder model replace
// the token-overlap placeholder without touching fusion or tie-break logic.
type SemanticScorer interface {
	Score(query, text string) float64
}

// Ranker fuses lexical and semantic relevance into a deterministic top-K
// ordering.
type Ranker struct {
	det      determinism.Context
	semantic SemanticScorer
}

// New builds a ranker; a nil scorer falls back to token-overlap similarity.
func New(det determinism.Context, semantic SemanticScorer) *Ranker {
	if semantic == nil {
		semantic = TokenOverlap{}
	}
	return &Ranker{det: det, semantic: semantic}
}

// Rank scores every candidate against the query, fuses lexical and semantic
// scores under alpha, and returns the first k entries of the total order
// (fused desc, lexical desc, semantic desc, document id asc).
func (r *Ranker) Rank(query string, candidates []domain.RankCandidate, alpha float64, k int) ([]domain.RankedResult, error) {
	if len(candidates) == 0 {
		return nil, &domain.InvalidInputError{Reason: "no candidates"}
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("alpha %v outside [0,1]", alpha)}
	}
	for _, c := range candidates {
		if math.IsNaN(c.Lexical) || math.IsInf(c.Lexical, 0) {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("nan/inf score for document %s", c.DocumentID)}
		}
	}
	if k < 0 {
		return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("k %d is negative", k)}
	}
	if k == 0 {
		return []domain.RankedResult{}, nil
	}

	lexical := normalize(candidates)

	results := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		sem := clamp01(r.semantic.Score(query, c.Text))
		sem = perturb(sem, r.det.Seed(), query, i)
		fused := alpha*lexical[i] + (1-alpha)*sem
		if math.IsNaN(fused) || math.IsInf(fused, 0) {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("nan/inf score for document %s", c.DocumentID)}
		}
		results[i] = domain.RankedResult{
			DocumentID: c.DocumentID,
			Lexical:    lexical[i],
			Semantic:   sem,
			Fused:      fused,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Fused != b.Fused {
			return a.Fused > b.Fused
		}
		if a.Lexical != b.Lexical {
			return a.Lexical > b.Lexical
		}
		if a.Semantic != b.Semantic {
			return a.Semantic > b.Semantic
		}
		return a.DocumentID < b.DocumentID
	})

	if k < len(results) {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i
	}
	return results, nil
}

// perturb folds a seed-derived micro-offset into the semantic score. The
// rescale keeps the result inside [0,1] and monotonic in the raw score, so
// the offset can only separate exact ties.
func perturb(sem float64, seed uint64, query string, index int) float64 {
	h := determinism.StableHashString(fmt.Sprintf("%d", seed), query, fmt.Sprintf("%d", index))
	frac := float64(h%1_000_003) / 1_000_003.0
	return sem*(1-tieEpsilon) + frac*tieEpsilon
}

// normalize returns lexical scores mapped into [0,1]. Scores already inside
// the interval pass through untouched; out-of-range inputs are min-max
// scaled, with a degenerate constant input mapping to 1.
func normalize(candidates []domain.RankCandidate) []float64 {
	min, max := math.Inf(1), math.Inf(-1)
	inRange := true
	for _, c := range candidates {
		if c.Lexical < 0 || c.Lexical > 1 {
			inRange = false
		}
		min = math.Min(min, c.Lexical)
		max = math.Max(max, c.Lexical)
	}

	out := make([]float64, len(candidates))
	for i, c := range candidates {
		switch {
		case inRange:
			out[i] = c.Lexical
		case max == min:
			out[i] = 1
		default:
			out[i] = (c.Lexical - min) / (max - min)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
