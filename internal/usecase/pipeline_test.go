package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
	"MaturityScanner/internal/provider"
	"MaturityScanner/internal/ranker"
	"MaturityScanner/internal/resolver"
	"MaturityScanner/internal/rubric"
	"MaturityScanner/internal/scorer"
)

var pipelineNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeChunks struct {
	byTheme map[string][]domain.RankCandidate
	err     error
}

func (f *fakeChunks) LoadChunks(_ context.Context, _ string, _ int, theme string) ([]domain.RankCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byTheme[theme], nil
}

type memArtifacts struct {
	mu      sync.Mutex
	scored  map[string]bool
	scores  []domain.StageScore
	reports []domain.ParityReport
}

func (m *memArtifacts) AlreadyScored(_ context.Context, _ string, _ int, themes []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, theme := range themes {
		if m.scored[theme] {
			out[theme] = true
		}
	}
	return out, nil
}

func (m *memArtifacts) SaveStageScore(_ context.Context, _ string, _ int, score domain.StageScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
	return nil
}

func (m *memArtifacts) SaveParityReport(_ context.Context, _ string, _ int, report domain.ParityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

type memAlerter struct {
	mu      sync.Mutex
	reports []domain.ParityReport
}

func (m *memAlerter) AlertParity(_ context.Context, _ string, _ int, report domain.ParityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

var _ ports.ChunkRepository = (*fakeChunks)(nil)
var _ ports.ArtifactRepository = (*memArtifacts)(nil)
var _ ports.Alerter = (*memAlerter)(nil)

func pipelineRubric() rubric.Definition {
	return rubric.Definition{
		Version:   "test",
		MinQuotes: 2,
		Freshness: rubric.Freshness{FreshMonths: 24, StaleMonths: 48},
		Themes: []rubric.Theme{
			{
				ID:    "climate",
				Query: "emissions reduction target",
				Stages: []rubric.Stage{
					{Stage: 1, Patterns: []string{"emissions"}},
					{Stage: 2, Patterns: []string{"emissions target"}},
				},
			},
			{
				ID:    "water",
				Query: "water stewardship",
				Stages: []rubric.Stage{
					{Stage: 1, Patterns: []string{"water"}},
				},
			},
		},
	}
}

func climateChunks() []domain.RankCandidate {
	return []domain.RankCandidate{
		{DocumentID: "d1", Text: "We set an emissions target for 2030.", Lexical: 0.9, Offset: 0},
		{DocumentID: "d2", Text: "Our emissions target is validated externally.", Lexical: 0.8, Offset: 0},
		{DocumentID: "d3", Text: "Board compensation details.", Lexical: 0.1, Offset: 0},
	}
}

func testPipeline(t *testing.T, chunks ports.ChunkRepository, artifacts ports.ArtifactRepository, alerter ports.Alerter, topK int) *Pipeline {
	t.Helper()
	seed := uint64(21)
	det, err := determinism.New(determinism.Settings{Enabled: true, FixedTime: pipelineNow, Seed: &seed})
	if err != nil {
		t.Fatalf("determinism.New: %v", err)
	}

	def := pipelineRubric()
	return NewPipeline(PipelineDeps{
		Chunks:    chunks,
		Ranker:    ranker.New(det, nil),
		Scorer:    scorer.New(def, det, nil),
		Artifacts: artifacts,
		Alerter:   alerter,
		Det:       det,
		Rubric:    def,
		Alpha:     0.6,
		TopK:      topK,
	})
}

func TestRunUnitEndToEnd(t *testing.T) {
	t.Parallel()

	artifacts := &memArtifacts{scored: map[string]bool{}}
	p := testPipeline(t, &fakeChunks{byTheme: map[string][]domain.RankCandidate{"climate": climateChunks()}}, artifacts, nil, 10)

	unit := Unit{Org: "acme", Year: 2023, Theme: "climate", Query: "emissions reduction target"}
	res, err := p.RunUnit(context.Background(), unit)
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}

	if res.Score.Stage != 2 {
		t.Fatalf("expected stage 2, got %d (audit %q)", res.Score.Stage, res.Score.Audit)
	}
	if res.Parity.Verdict != domain.VerdictPass {
		t.Fatalf("expected parity pass, got %+v", res.Parity)
	}
	if res.Score.SnapshotID == "" {
		t.Fatal("missing snapshot id")
	}
	if len(artifacts.scores) != 1 || len(artifacts.reports) != 1 {
		t.Fatalf("artifacts not persisted: %d scores, %d reports", len(artifacts.scores), len(artifacts.reports))
	}
}

func TestRunUnitDeterministic(t *testing.T) {
	t.Parallel()

	unit := Unit{Org: "acme", Year: 2023, Theme: "climate", Query: "emissions reduction target"}

	build := func() *Pipeline {
		return testPipeline(t, &fakeChunks{byTheme: map[string][]domain.RankCandidate{"climate": climateChunks()}}, nil, nil, 10)
	}

	first, err := build().RunUnit(context.Background(), unit)
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := build().RunUnit(context.Background(), unit)
		if err != nil {
			t.Fatalf("RunUnit repeat: %v", err)
		}
		if diff := cmp.Diff(first.Score, again.Score); diff != "" {
			t.Fatalf("stage score changed on repeat %d:\n%s", i, diff)
		}
		if diff := cmp.Diff(first.Ranked, again.Ranked); diff != "" {
			t.Fatalf("ranking changed on repeat %d:\n%s", i, diff)
		}
		if first.Score.SnapshotID != again.Score.SnapshotID {
			t.Fatal("snapshot id changed between identical runs")
		}
	}
}

func TestRunUnitEmptyPoolFailsClosed(t *testing.T) {
	t.Parallel()

	p := testPipeline(t, &fakeChunks{byTheme: map[string][]domain.RankCandidate{}}, nil, nil, 10)
	_, err := p.RunUnit(context.Background(), Unit{Org: "acme", Year: 2023, Theme: "climate", Query: "q"})

	var invalid *domain.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInput for empty candidate pool, got %v", err)
	}
}

func TestRunUnitCancelledContext(t *testing.T) {
	t.Parallel()

	p := testPipeline(t, &fakeChunks{byTheme: map[string][]domain.RankCandidate{"climate": climateChunks()}}, nil, nil, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunUnit(ctx, Unit{Org: "acme", Year: 2023, Theme: "climate", Query: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunBatchPartialSuccessAndCanonicalOrder(t *testing.T) {
	t.Parallel()

	chunks := &fakeChunks{byTheme: map[string][]domain.RankCandidate{
		"climate": climateChunks(),
		// water has no chunks: that unit fails with InvalidInput.
	}}
	p := testPipeline(t, chunks, nil, nil, 10)

	units := p.UnitsFromRubric("acme", 2023)
	if len(units) != 2 {
		t.Fatalf("expected 2 units from rubric, got %d", len(units))
	}

	batch := p.RunBatch(context.Background(), units, 4)
	if len(batch.Results) != 1 {
		t.Fatalf("expected 1 successful unit, got %d", len(batch.Results))
	}
	if batch.Results[0].Unit.Theme != "climate" {
		t.Fatalf("unexpected successful theme %s", batch.Results[0].Unit.Theme)
	}
	if len(batch.Failures) != 1 || batch.Failures[0].Unit.Theme != "water" {
		t.Fatalf("expected water to fail, got %+v", batch.Failures)
	}

	// Completion order must not leak into output order.
	again := p.RunBatch(context.Background(), units, 1)
	if again.Results[0].Unit.Theme != batch.Results[0].Unit.Theme {
		t.Fatal("batch output order depends on parallelism")
	}
}

func TestRunBatchSkipsAlreadyScored(t *testing.T) {
	t.Parallel()

	artifacts := &memArtifacts{scored: map[string]bool{"climate": true}}
	chunks := &fakeChunks{byTheme: map[string][]domain.RankCandidate{
		"water": {{DocumentID: "w1", Text: "water stewardship policy and water reuse", Lexical: 0.7}},
	}}
	p := testPipeline(t, chunks, artifacts, nil, 10)

	batch := p.RunBatch(context.Background(), p.UnitsFromRubric("acme", 2023), 2)
	if len(batch.Skipped) != 1 || batch.Skipped[0].Theme != "climate" {
		t.Fatalf("expected climate skipped, got %+v", batch.Skipped)
	}
	for _, r := range batch.Results {
		if r.Unit.Theme == "climate" {
			t.Fatal("skipped theme was scored anyway")
		}
	}
}

// orgArtifacts keys scored themes by organization, unlike memArtifacts which
// ignores the org entirely.
type orgArtifacts struct {
	memArtifacts
	scoredByOrg map[string]map[string]bool
}

func (o *orgArtifacts) AlreadyScored(_ context.Context, org string, _ int, themes []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, theme := range themes {
		if o.scoredByOrg[org][theme] {
			out[theme] = true
		}
	}
	return out, nil
}

func TestRunBatchDedupsMixedOrgsIndependently(t *testing.T) {
	t.Parallel()

	artifacts := &orgArtifacts{scoredByOrg: map[string]map[string]bool{
		"acme": {"climate": true},
	}}
	chunks := &fakeChunks{byTheme: map[string][]domain.RankCandidate{
		"climate": climateChunks(),
	}}
	p := testPipeline(t, chunks, artifacts, nil, 10)

	units := []Unit{
		{Org: "acme", Year: 2023, Theme: "climate", Query: "emissions reduction target"},
		{Org: "globex", Year: 2023, Theme: "climate", Query: "emissions reduction target"},
	}

	batch := p.RunBatch(context.Background(), units, 2)
	if len(batch.Skipped) != 1 || batch.Skipped[0].Org != "acme" {
		t.Fatalf("expected only acme/climate skipped, got %+v", batch.Skipped)
	}
	if len(batch.Results) != 1 || batch.Results[0].Unit.Org != "globex" {
		t.Fatalf("expected globex/climate scored, got %+v", batch.Results)
	}
}

func TestRunUnitWithResolverAndExtractor(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	reg.Register(&stubProvider{
		name: "filings",
		tier: 1,
		doc: domain.ResolvedDocument{
			DocumentID:  "filing-1",
			Content:     []byte("We set an emissions target for 2030.\n\nOur emissions target is validated externally."),
			PublishedAt: pipelineNow.AddDate(0, -3, 0),
		},
	})

	seed := uint64(21)
	det, _ := determinism.New(determinism.Settings{Enabled: true, FixedTime: pipelineNow, Seed: &seed})
	def := pipelineRubric()

	p := NewPipeline(PipelineDeps{
		Resolver:  resolver.New(reg, time.Second, nil),
		Extractor: &stubExtractor{},
		Ranker:    ranker.New(det, nil),
		Scorer:    scorer.New(def, det, nil),
		Det:       det,
		Rubric:    def,
		Alpha:     0.6,
		TopK:      10,
	})

	res, err := p.RunUnit(context.Background(), Unit{Org: "acme", Year: 2023, Theme: "climate", Query: "emissions reduction target"})
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}
	if res.Attempt.Attempts != 1 {
		t.Fatalf("expected 1 resolution attempt, got %d", res.Attempt.Attempts)
	}
	if res.Score.Stage == 0 {
		t.Fatalf("expected evidence-backed stage, got 0 (audit %q)", res.Score.Audit)
	}
}

type stubProvider struct {
	name string
	tier int
	doc  domain.ResolvedDocument
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Tier() int    { return s.tier }

func (s *stubProvider) Search(_ context.Context, _ string, _ int) ([]domain.SourceCandidate, error) {
	c, err := domain.NewSourceCandidate(s.name, s.tier, 10, domain.AccessAPI, domain.ContentText, "u1")
	if err != nil {
		return nil, err
	}
	return []domain.SourceCandidate{c}, nil
}

func (s *stubProvider) Download(_ context.Context, candidate domain.SourceCandidate) (domain.ResolvedDocument, error) {
	doc := s.doc
	doc.Candidate = candidate
	return doc, nil
}

type stubExtractor struct{}

func (s *stubExtractor) Extract(_ context.Context, doc domain.ResolvedDocument) ([]domain.RankCandidate, error) {
	var out []domain.RankCandidate
	offset := 0
	for _, para := range strings.Split(string(doc.Content), "\n\n") {
		out = append(out, domain.RankCandidate{
			DocumentID: doc.DocumentID,
			Text:       para,
			Lexical:    0.8,
			Offset:     offset,
		})
		offset += len(para) + 2
	}
	return out, nil
}
