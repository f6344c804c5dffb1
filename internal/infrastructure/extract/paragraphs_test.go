package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"MaturityScanner/internal/domain"
)

func TestParagraphExtractorSplitsOnBlankLines(t *testing.T) {
	t.Parallel()

	content := "We disclose scope 1 and 2 emissions annually.\n\nshort\n\nOur reduction targets are validated by a third party."
	doc := domain.ResolvedDocument{
		DocumentID: "doc-1",
		Content:    []byte(content),
	}

	e := NewParagraphExtractor()
	candidates, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	for i, c := range candidates {
		if c.DocumentID != "doc-1" {
			t.Fatalf("candidate %d: unexpected document id %s", i, c.DocumentID)
		}
		start := c.Offset
		end := start + len(c.Text)
		if end > len(content) || content[start:end] != c.Text {
			t.Fatalf("candidate %d: offset %d does not address its text", i, c.Offset)
		}
	}
	if !strings.Contains(candidates[1].Text, "reduction targets") {
		t.Fatalf("unexpected second paragraph: %q", candidates[1].Text)
	}
}

func TestParagraphExtractorTracksPages(t *testing.T) {
	t.Parallel()

	content := "First page paragraph with enough length here.\n\n\f\n\nSecond page paragraph with enough length here."
	doc := domain.ResolvedDocument{DocumentID: "doc-2", Content: []byte(content)}

	candidates, err := NewParagraphExtractor().Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Page != 1 || candidates[1].Page != 2 {
		t.Fatalf("unexpected pages: %d, %d", candidates[0].Page, candidates[1].Page)
	}
}

func TestParagraphExtractorCarriesPublishedAt(t *testing.T) {
	t.Parallel()

	doc := domain.ResolvedDocument{
		DocumentID:  "doc-3",
		Content:     []byte("A single paragraph long enough to survive filtering."),
		PublishedAt: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	}

	candidates, err := NewParagraphExtractor().Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if got := candidates[0].Metadata["published_at"]; got != "2024-03-05T00:00:00Z" {
		t.Fatalf("unexpected published_at: %q", got)
	}
}

func TestParagraphExtractorDeterministic(t *testing.T) {
	t.Parallel()

	doc := domain.ResolvedDocument{
		DocumentID: "doc-4",
		Content:    []byte("Paragraph one is long enough to count.\n\nParagraph two is also long enough to count."),
	}

	e := NewParagraphExtractor()
	first, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Extract(context.Background(), doc)
		if err != nil {
			t.Fatalf("repeat %d: %v", i, err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("repeat %d diverged:\n%s", i, diff)
		}
	}
}

func TestParagraphExtractorCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParagraphExtractor().Extract(ctx, domain.ResolvedDocument{DocumentID: "doc-5"})
	if err == nil {
		t.Fatal("expected context error")
	}
}
