package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/parity"
	"MaturityScanner/internal/ports"
	"MaturityScanner/internal/ranker"
	"MaturityScanner/internal/resolver"
	"MaturityScanner/internal/rubric"
	"MaturityScanner/internal/scorer"
)

// Unit is one independent piece of work: a single (org, year, theme) scoring
// pass. Units share nothing mutable; each owns its candidate list, ranking,
// and score.
type Unit struct {
	Org   string
	Year  int
	Theme string
	Query string
}

// Result carries everything one completed unit produced.
type Result struct {
	Unit    Unit
	Score   domain.StageScore
	Parity  domain.ParityReport
	Ranked  []domain.RankedResult
	Attempt domain.Resolution
}

// PipelineDeps wires all driven adapters into the scoring pipeline.
type PipelineDeps struct {
	Resolver  *resolver.Resolver
	Extractor ports.Extractor
	Chunks    ports.ChunkRepository
	Ranker    *ranker.Ranker
	Scorer    *scorer.Scorer
	Artifacts ports.ArtifactRepository
	Alerter   ports.Alerter
	Det       determinism.Context
	Rubric    rubric.Definition
	Alpha     float64
	TopK      int
	Logger    *slog.Logger
}

// Pipeline implements the Resolve → Rank → Score → Validate workflow for one
// unit at a time.
type Pipeline struct {
	resolver  *resolver.Resolver
	extractor ports.Extractor
	chunks    ports.ChunkRepository
	ranker    *ranker.Ranker
	scorer    *scorer.Scorer
	artifacts ports.ArtifactRepository
	alerter   ports.Alerter
	det       determinism.Context
	rubric    rubric.Definition
	alpha     float64
	topK      int
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		resolver:  deps.Resolver,
		extractor: deps.Extractor,
		chunks:    deps.Chunks,
		ranker:    deps.Ranker,
		scorer:    deps.Scorer,
		artifacts: deps.Artifacts,
		alerter:   deps.Alerter,
		det:       deps.Det,
		rubric:    deps.Rubric,
		alpha:     deps.Alpha,
		topK:      deps.TopK,
		logger:    deps.Logger,
	}
}

// RunUnit executes the four stages strictly in sequence. Cancellation is
// honored at stage boundaries only, so a unit either produces a complete
// result or no result, never a truncated one.
func (p *Pipeline) RunUnit(ctx context.Context, unit Unit) (Result, error) {
	snapshotID := p.det.SnapshotID(
		unit.Org,
		strconv.Itoa(unit.Year),
		unit.Theme,
		unit.Query,
		strconv.FormatFloat(p.alpha, 'g', -1, 64),
		strconv.Itoa(p.topK),
	)

	resolution, err := p.resolve(ctx, unit)
	if err != nil {
		return Result{}, err
	}

	candidates, err := p.collectCandidates(ctx, unit, resolution.Document)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ranked, err := p.ranker.Rank(unit.Query, candidates, p.alpha, p.topK)
	if err != nil {
		return Result{}, fmt.Errorf("rank %s/%s: %w", unit.Org, unit.Theme, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	topCandidates, topIDs := topKSubset(candidates, ranked)
	evidence := p.scorer.ExtractEvidence(unit.Theme, topCandidates)
	score, err := p.scorer.Score(unit.Theme, evidence, unit.Org, unit.Year, snapshotID)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	report := parity.Check(unit.Query, evidenceDocuments(evidence, score.EvidenceIDs), topIDs)
	if err := p.persist(ctx, unit, score, report); err != nil {
		return Result{}, err
	}

	if violation := parity.Violation(report); violation != nil {
		// A correctness alarm, not a data quality issue: the score cites
		// evidence the ranking stage never surfaced.
		p.error("parity violation", "org", unit.Org, "theme", unit.Theme, "missing", report.MissingIDs)
		if p.alerter != nil {
			if alertErr := p.alerter.AlertParity(ctx, unit.Org, unit.Year, report); alertErr != nil {
				p.warn("parity alert delivery failed", "error", alertErr)
			}
		}
		return Result{}, violation
	}

	p.debug("unit complete", "org", unit.Org, "theme", unit.Theme, "stage", score.Stage, "confidence", score.Confidence)
	return Result{Unit: unit, Score: score, Parity: report, Ranked: ranked, Attempt: resolution}, nil
}

func (p *Pipeline) resolve(ctx context.Context, unit Unit) (domain.Resolution, error) {
	if p.resolver == nil {
		return domain.Resolution{}, nil
	}
	return p.resolver.ResolveBest(ctx, unit.Org, unit.Year)
}

// collectCandidates merges freshly extracted spans with the already-ingested
// chunk pool for the unit's theme.
func (p *Pipeline) collectCandidates(ctx context.Context, unit Unit, doc domain.ResolvedDocument) ([]domain.RankCandidate, error) {
	var candidates []domain.RankCandidate

	if p.extractor != nil && doc.DocumentID != "" {
		extracted, err := p.extractor.Extract(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", doc.DocumentID, err)
		}
		candidates = append(candidates, extracted...)
	}

	if p.chunks != nil {
		pool, err := p.chunks.LoadChunks(ctx, unit.Org, unit.Year, unit.Theme)
		if err != nil {
			return nil, fmt.Errorf("load chunk pool: %w", err)
		}
		candidates = append(candidates, pool...)
	}

	return candidates, nil
}

func (p *Pipeline) persist(ctx context.Context, unit Unit, score domain.StageScore, report domain.ParityReport) error {
	if p.artifacts == nil {
		return nil
	}
	if err := p.artifacts.SaveStageScore(ctx, unit.Org, unit.Year, score); err != nil {
		return fmt.Errorf("persist stage score %s/%s: %w", unit.Org, unit.Theme, err)
	}
	if err := p.artifacts.SaveParityReport(ctx, unit.Org, unit.Year, report); err != nil {
		return fmt.Errorf("persist parity report %s/%s: %w", unit.Org, unit.Theme, err)
	}
	return nil
}

// topKSubset collects the distinct document ids surviving the top-K cut and
// every source chunk belonging to one of them, in input order so evidence
// extraction stays deterministic.
func topKSubset(candidates []domain.RankCandidate, ranked []domain.RankedResult) ([]domain.RankCandidate, []string) {
	ids := make([]string, 0, len(ranked))
	inTop := map[string]bool{}
	for _, r := range ranked {
		if inTop[r.DocumentID] {
			continue
		}
		inTop[r.DocumentID] = true
		ids = append(ids, r.DocumentID)
	}

	top := make([]domain.RankCandidate, 0, len(candidates))
	for _, c := range candidates {
		if inTop[c.DocumentID] {
			top = append(top, c)
		}
	}
	return top, ids
}

// evidenceDocuments collects the distinct document ids behind the quotes the
// score actually cites.
func evidenceDocuments(evidence []domain.EvidenceQuote, citedIDs []string) []string {
	cited := make(map[string]bool, len(citedIDs))
	for _, id := range citedIDs {
		cited[id] = true
	}

	var docs []string
	seen := map[string]bool{}
	for _, q := range evidence {
		if !cited[q.ID] || seen[q.DocumentID] {
			continue
		}
		seen[q.DocumentID] = true
		docs = append(docs, q.DocumentID)
	}
	return docs
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
