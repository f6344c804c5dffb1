package usecase

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// UnitFailure is the structured error record a failed unit leaves behind in
// an otherwise successful batch.
type UnitFailure struct {
	Unit Unit
	Err  error
}

// BatchResult aggregates per-unit outcomes. Results and Failures are both
// re-sorted by theme id so the output is deterministic regardless of worker
// completion order.
type BatchResult struct {
	Results  []Result
	Failures []UnitFailure
	Skipped  []Unit
}

// RunBatch executes independent units as parallel workers. Provider-level
// problems surface as per-unit failures; the batch itself only stops on
// context cancellation.
func (p *Pipeline) RunBatch(ctx context.Context, units []Unit, parallelism int) BatchResult {
	if parallelism <= 0 {
		parallelism = 1
	}

	units, skipped := p.filterScored(ctx, units)

	results := make([]*Result, len(units))
	failures := make([]*UnitFailure, len(units))

	g := &errgroup.Group{}
	g.SetLimit(parallelism)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			res, err := p.RunUnit(ctx, unit)
			if err != nil {
				failures[i] = &UnitFailure{Unit: unit, Err: err}
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	var batch BatchResult
	batch.Skipped = skipped
	for i := range units {
		if results[i] != nil {
			batch.Results = append(batch.Results, *results[i])
		}
		if failures[i] != nil {
			batch.Failures = append(batch.Failures, *failures[i])
		}
	}

	sort.SliceStable(batch.Results, func(i, j int) bool {
		return unitKeyLess(batch.Results[i].Unit, batch.Results[j].Unit)
	})
	sort.SliceStable(batch.Failures, func(i, j int) bool {
		return unitKeyLess(batch.Failures[i].Unit, batch.Failures[j].Unit)
	})
	return batch
}

// UnitsFromRubric builds the batch for one organization/year from the rubric
// themes, in rubric order.
func (p *Pipeline) UnitsFromRubric(org string, year int) []Unit {
	units := make([]Unit, 0, len(p.rubric.Themes))
	for _, theme := range p.rubric.Themes {
		units = append(units, Unit{Org: org, Year: year, Theme: theme.ID, Query: theme.Query})
	}
	return units
}

// filterScored drops units whose theme already has a persisted score for the
// same org/year. Units are grouped by (org, year) before the lookup, so a
// mixed batch dedups each organization against its own scores. A failed
// lookup fails open: that group is scored in full.
func (p *Pipeline) filterScored(ctx context.Context, units []Unit) (remaining []Unit, skipped []Unit) {
	if p.artifacts == nil || len(units) == 0 {
		return units, nil
	}

	type orgYear struct {
		org  string
		year int
	}

	themesByGroup := map[orgYear][]string{}
	for _, u := range units {
		key := orgYear{org: u.Org, year: u.Year}
		themesByGroup[key] = append(themesByGroup[key], u.Theme)
	}

	doneByGroup := map[orgYear]map[string]bool{}
	for key, themes := range themesByGroup {
		done, err := p.artifacts.AlreadyScored(ctx, key.org, key.year, themes)
		if err != nil {
			p.warn("dedup lookup failed, scoring everything", "org", key.org, "year", key.year, "error", err)
			continue
		}
		doneByGroup[key] = done
	}

	for _, u := range units {
		if doneByGroup[orgYear{org: u.Org, year: u.Year}][u.Theme] {
			skipped = append(skipped, u)
			continue
		}
		remaining = append(remaining, u)
	}
	return remaining, skipped
}

func unitKeyLess(a, b Unit) bool {
	if a.Org != b.Org {
		return a.Org < b.Org
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Theme < b.Theme
}
