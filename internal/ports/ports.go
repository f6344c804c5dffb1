package ports

import (
	"context"

	"MaturityScanner/internal/domain"
)

// Provider searches a single upstream data source (regulatory filings,
// sustainability registries, web-hosted reports) for candidate documents and
// downloads their content. Implementations form a closed set registered at
// startup.
type Provider interface {
	Name() string
	Tier() int
	Search(ctx context.Context, org string, year int) ([]domain.SourceCandidate, error)
	Download(ctx context.Context, candidate domain.SourceCandidate) (domain.ResolvedDocument, error)
}

// Extractor turns a resolved document into rankable text spans. The core does
// not prescribe how text is obtained, only that each span carries a stable
// document id and offset/page so quote provenance stays reconstructible.
type Extractor interface {
	Extract(ctx context.Context, doc domain.ResolvedDocument) ([]domain.RankCandidate, error)
}

// ChunkRepository serves already-ingested rankable chunks for an org/year/theme.
type ChunkRepository interface {
	LoadChunks(ctx context.Context, org string, year int, theme string) ([]domain.RankCandidate, error)
}

// ArtifactRepository persists scoring artifacts for deduplication and audit.
type ArtifactRepository interface {
	AlreadyScored(ctx context.Context, org string, year int, themes []string) (map[string]bool, error)
	SaveStageScore(ctx context.Context, org string, year int, score domain.StageScore) error
	SaveParityReport(ctx context.Context, org string, year int, report domain.ParityReport) error
}

// Alerter pushes correctness alarms (parity violations) to an external channel.
type Alerter interface {
	AlertParity(ctx context.Context, org string, year int, report domain.ParityReport) error
}
