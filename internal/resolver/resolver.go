package resolver

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/provider"
)

const defaultProviderTimeout = 20 * time.Second

// Resolver walks configured providers across ordered quality tiers and picks
// the best downloadable document with fallback on failure.
type Resolver struct {
	registry *provider.Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// New wires the provider registry. Timeout bounds each provider call so one
// unresponsive provider cannot stall the whole tier scan.
func New(registry *provider.Registry, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Resolver{registry: registry, timeout: timeout, logger: logger}
}

// Search invokes every registered provider in stable tier order. A provider
// returning an error (or timing out) is logged and skipped, so one broken
// provider cannot block the whole search. An empty result is valid: it means
// no candidates were found, not that the search failed.
func (r *Resolver) Search(ctx context.Context, org string, year int) ([]domain.SourceCandidate, error) {
	if r.registry == nil {
		return nil, &domain.ConfigError{Reason: "provider registry is not configured"}
	}

	var aggregated []domain.SourceCandidate
	for _, p := range r.registry.Ordered() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		candidates, err := p.Search(callCtx, org, year)
		cancel()
		if err != nil {
			r.warn("provider search failed", "provider", p.Name(), "tier", p.Tier(), "error", err)
			continue
		}

		r.debug("provider search done", "provider", p.Name(), "candidates", len(candidates))
		aggregated = append(aggregated, candidates...)
	}

	return aggregated, nil
}

// Prioritize returns the candidates stably sorted by (tier asc, priority asc).
// The input slice is never mutated; sorting an already-sorted list returns
// the same order.
func (r *Resolver) Prioritize(candidates []domain.SourceCandidate) []domain.SourceCandidate {
	out := make([]domain.SourceCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Priority < out[j].Priority
	})
	return out
}

// ResolveBest searches, prioritizes, and downloads candidates in order until
// one succeeds. Every failed attempt is recorded but does not abort the loop.
// With no candidates, or with every download failing, it returns a
// ResolutionFailedError; callers never receive a partial document.
func (r *Resolver) ResolveBest(ctx context.Context, org string, year int) (domain.Resolution, error) {
	candidates, err := r.Search(ctx, org, year)
	if err != nil {
		return domain.Resolution{}, err
	}
	if len(candidates) == 0 {
		return domain.Resolution{}, &domain.ResolutionFailedError{Org: org, Year: year, Attempts: 0, LastErr: domain.ErrNoCandidates}
	}

	prioritized := r.Prioritize(candidates)

	var failures []domain.AttemptFailure
	var lastErr error
	for i, candidate := range prioritized {
		if err := ctx.Err(); err != nil {
			return domain.Resolution{}, err
		}

		doc, err := r.download(ctx, candidate)
		if err != nil {
			lastErr = err
			failures = append(failures, domain.AttemptFailure{
				Provider: candidate.Provider,
				URL:      candidate.URL,
				Err:      err.Error(),
			})
			r.warn("download failed", "provider", candidate.Provider, "attempt", i+1, "error", err)
			continue
		}

		r.debug("resolved document", "provider", candidate.Provider, "attempt", i+1, "bytes", doc.ByteLength)
		return domain.Resolution{Document: doc, Attempts: i + 1, Failures: failures}, nil
	}

	return domain.Resolution{}, &domain.ResolutionFailedError{
		Org:      org,
		Year:     year,
		Attempts: len(prioritized),
		LastErr:  lastErr,
	}
}

func (r *Resolver) download(ctx context.Context, candidate domain.SourceCandidate) (domain.ResolvedDocument, error) {
	p, err := r.registry.Resolve(candidate.Provider)
	if err != nil {
		return domain.ResolvedDocument{}, &domain.ProviderError{Provider: candidate.Provider, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return p.Download(callCtx, candidate)
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Resolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
