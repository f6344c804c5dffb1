package domain

import (
	"fmt"
	"time"
)

// AccessMethod tells the resolver how a candidate's content is reachable.
type AccessMethod string

const (
	AccessAPI      AccessMethod = "api"
	AccessDownload AccessMethod = "download"
	AccessScrape   AccessMethod = "scrape"
)

// ContentType labels the payload format a provider promises to deliver.
type ContentType string

const (
	ContentJSON ContentType = "json"
	ContentPDF  ContentType = "pdf"
	ContentHTML ContentType = "html"
	ContentText ContentType = "text"
)

const (
	// MinTier and MaxTier bound provider trust tiers (1 = highest trust).
	MinTier = 1
	MaxTier = 3

	// MaxPriority bounds the within-tier priority score (lower = preferred).
	MaxPriority = 100
)

// SourceCandidate is one provider's pointer to a possible report. It is a
// value object: created by a provider search call and never mutated.
type SourceCandidate struct {
	Provider string       `json:"provider"`
	Tier     int          `json:"tier"`
	Priority int          `json:"priority"`
	Access   AccessMethod `json:"access"`
	Content  ContentType  `json:"content_type"`
	URL      string       `json:"url,omitempty"`
}

// NewSourceCandidate enforces tier and priority bounds at construction.
func NewSourceCandidate(provider string, tier, priority int, access AccessMethod, content ContentType, url string) (SourceCandidate, error) {
	if tier < MinTier || tier > MaxTier {
		return SourceCandidate{}, &InvalidInputError{Reason: fmt.Sprintf("tier %d outside [%d,%d]", tier, MinTier, MaxTier)}
	}
	if priority < 0 || priority > MaxPriority {
		return SourceCandidate{}, &InvalidInputError{Reason: fmt.Sprintf("priority %d outside [0,%d]", priority, MaxPriority)}
	}
	return SourceCandidate{
		Provider: provider,
		Tier:     tier,
		Priority: priority,
		Access:   access,
		Content:  content,
		URL:      url,
	}, nil
}

// ResolvedDocument is downloaded report content owned by a single pipeline run.
type ResolvedDocument struct {
	Candidate   SourceCandidate
	DocumentID  string
	Content     []byte
	ContentHash string
	ByteLength  int
	PublishedAt time.Time
}

// AttemptFailure records one failed download during candidate resolution.
type AttemptFailure struct {
	Provider string
	URL      string
	Err      string
}

// Resolution is the outcome of resolve-best: the winning document plus the
// failures encountered on the way to it.
type Resolution struct {
	Document ResolvedDocument
	Attempts int
	Failures []AttemptFailure
}

// RankCandidate is one unit of rankable text with its precomputed lexical
// signal. Immutable once created.
type RankCandidate struct {
	DocumentID string
	Text       string
	Lexical    float64
	Page       int
	Offset     int
	Metadata   map[string]string
}

// RankedResult is one fused-score entry of the ranker output; the ordering of
// the slice is the deliverable.
type RankedResult struct {
	DocumentID string  `json:"document_id"`
	Lexical    float64 `json:"lexical_score"`
	Semantic   float64 `json:"semantic_score"`
	Fused      float64 `json:"fused_score"`
	Rank       int     `json:"rank"`
}

// EvidenceQuote is a cited excerpt backing a score. Immutable; referenced,
// never owned, by StageScore.
type EvidenceQuote struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Quote       string    `json:"quote"`
	Page        int       `json:"page"`
	Offset      int       `json:"offset"`
	Theme       string    `json:"theme"`
	ContentHash string    `json:"content_hash"`
	AsOf        time.Time `json:"as_of"`
}

// StageScore is the theme-level maturity verdict. Stage 0 is the safe
// default; a stage above 0 always carries at least the configured minimum of
// distinct evidence items (the scorer demotes instead of violating this).
type StageScore struct {
	Theme       string   `json:"theme"`
	Stage       int      `json:"stage"`
	Confidence  float64  `json:"confidence"`
	EvidenceIDs []string `json:"evidence_ids"`
	SnapshotID  string   `json:"snapshot_id"`
	Audit       string   `json:"audit,omitempty"`
}

// Verdict is the outcome of a parity check.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// ParityReport binds cited evidence back to the ranked retrieval output.
// Read-only once written.
type ParityReport struct {
	Query       string   `json:"query"`
	EvidenceIDs []string `json:"evidence_ids"`
	TopKIDs     []string `json:"top_k_ids"`
	Verdict     Verdict  `json:"verdict"`
	MissingIDs  []string `json:"missing_ids"`
}
