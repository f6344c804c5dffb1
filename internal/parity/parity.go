package parity

import (
	"sort"

	"MaturityScanner/internal/domain"
)

// Check verifies that every cited evidence document is contained in the
// ranked top-K set for the same query. It is a pure set-subset check: pass
// iff evidenceIDs ⊆ topKIDs; on failure the report enumerates exactly the
// missing ids so the defect is diagnosable without re-running.
func Check(query string, evidenceIDs, topKIDs []string) domain.ParityReport {
	topK := make(map[string]struct{}, len(topKIDs))
	for _, id := range topKIDs {
		topK[id] = struct{}{}
	}

	var missing []string
	seen := map[string]struct{}{}
	for _, id := range evidenceIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := topK[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)

	verdict := domain.VerdictPass
	if len(missing) > 0 {
		verdict = domain.VerdictFail
	}

	return domain.ParityReport{
		Query:       query,
		EvidenceIDs: sortedCopy(evidenceIDs),
		TopKIDs:     sortedCopy(topKIDs),
		Verdict:     verdict,
		MissingIDs:  missing,
	}
}

// Violation converts a failed report into its correctness alarm; it returns
// nil for a passing report.
func Violation(report domain.ParityReport) error {
	if report.Verdict == domain.VerdictPass {
		return nil
	}
	return &domain.ParityError{Query: report.Query, Missing: report.MissingIDs}
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
