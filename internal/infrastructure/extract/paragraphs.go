package extract

import (
	"context"
	"strings"

	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
)

// minParagraphLen drops boilerplate fragments (page numbers, headings) that
// carry no scoreable text.
const minParagraphLen = 20

// ParagraphExtractor is the offline reference extractor: it splits a resolved
// document on blank lines and emits one rank candidate per paragraph. Offsets
// are byte positions in the original content, so quote provenance survives
// the split.
type ParagraphExtractor struct{}

var _ ports.Extractor = (*ParagraphExtractor)(nil)

// NewParagraphExtractor constructs the extractor; it holds no state.
func NewParagraphExtractor() *ParagraphExtractor {
	return &ParagraphExtractor{}
}

// Extract splits doc content into paragraph candidates. The output depends
// only on the document bytes; the context is accepted for interface symmetry
// and checked once up front.
func (e *ParagraphExtractor) Extract(ctx context.Context, doc domain.ResolvedDocument) ([]domain.RankCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := string(doc.Content)
	var (
		candidates []domain.RankCandidate
		offset     int
		page       = 1
	)

	for _, block := range strings.Split(content, "\n\n") {
		page += strings.Count(block, "\f")
		trimmed := strings.Trim(block, " \t\r\n\f")
		blockOffset := offset
		if trimmed != "" {
			blockOffset += strings.Index(block, trimmed)
		}
		offset += len(block) + 2

		if len(trimmed) < minParagraphLen {
			continue
		}

		candidate := domain.RankCandidate{
			DocumentID: doc.DocumentID,
			Text:       trimmed,
			Page:       page,
			Offset:     blockOffset,
		}
		if !doc.PublishedAt.IsZero() {
			candidate.Metadata = map[string]string{"published_at": doc.PublishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")}
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}
