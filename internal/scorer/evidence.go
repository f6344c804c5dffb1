package scorer

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
)

// maxQuoteLen bounds verbatim excerpts so a citation stays a quote, not a
// document copy.
const maxQuoteLen = 240

// ExtractEvidence scans ranked candidate text for rubric pattern hits and
// cuts bounded verbatim quotes around each first hit. Quote ids are derived
// from document id and offset, so the same input always yields the same
// evidence set.
func (s *Scorer) ExtractEvidence(themeID string, candidates []domain.RankCandidate) []domain.EvidenceQuote {
	theme, ok := s.def.Theme(themeID)
	if !ok {
		return nil
	}

	patterns := make([]string, 0, 8)
	for _, stage := range theme.Stages {
		patterns = append(patterns, stage.Patterns...)
	}

	var quotes []domain.EvidenceQuote
	seen := map[string]bool{}
	for _, cand := range candidates {
		lower := strings.ToLower(cand.Text)
		for _, pattern := range patterns {
			at := strings.Index(lower, strings.ToLower(pattern))
			if at < 0 {
				continue
			}

			excerpt := cutQuote(cand.Text, at, len(pattern))
			id := fmt.Sprintf("%s:%d", cand.DocumentID, cand.Offset+at)
			if seen[id] {
				continue
			}
			seen[id] = true

			quotes = append(quotes, domain.EvidenceQuote{
				ID:          id,
				DocumentID:  cand.DocumentID,
				Quote:       excerpt,
				Page:        cand.Page,
				Offset:      cand.Offset + at,
				Theme:       themeID,
				ContentHash: determinism.StableHashHex([]byte(excerpt)),
				AsOf:        publishedAt(cand),
			})
		}
	}
	return quotes
}

// cutQuote returns a window of at most maxQuoteLen bytes centered on the
// match, trimmed at the original text bounds. Window edges snap to rune
// boundaries so the excerpt stays valid UTF-8.
func cutQuote(text string, at, matchLen int) string {
	pad := (maxQuoteLen - matchLen) / 2
	if pad < 0 {
		pad = 0
	}

	start := at - pad
	if start < 0 {
		start = 0
	}
	end := at + matchLen + pad
	if end > len(text) {
		end = len(text)
	}

	for start < end && !utf8.RuneStart(text[start]) {
		start++
	}
	for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return strings.TrimSpace(text[start:end])
}

// publishedAt reads the ingestion-provided publication date; absent or
// malformed metadata means the quote carries no age and is not penalized.
func publishedAt(cand domain.RankCandidate) time.Time {
	raw, ok := cand.Metadata["published_at"]
	if !ok {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
