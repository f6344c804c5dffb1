package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCandidates is returned when resolution starts with an empty
	// candidate list, before any download is attempted.
	ErrNoCandidates = errors.New("domain: no source candidates")
)

// ProviderError marks a recoverable failure of a single provider. The
// resolver logs and skips it; it never propagates past the search stage.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ResolutionFailedError is fatal for one unit of work: no usable document was
// found after exhausting every candidate in priority order.
type ResolutionFailedError struct {
	Org      string
	Year     int
	Attempts int
	LastErr  error
}

func (e *ResolutionFailedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("resolution failed for %s/%d: no candidates", e.Org, e.Year)
	}
	return fmt.Sprintf("resolution failed for %s/%d after %d attempts: %v", e.Org, e.Year, e.Attempts, e.LastErr)
}

func (e *ResolutionFailedError) Unwrap() error { return e.LastErr }

// InvalidInputError marks caller-supplied data violating a precondition:
// an empty candidate list, an out-of-range weight, a non-finite score.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// ConfigError is fatal for the whole run: the process cannot start without a
// valid rubric and determinism configuration.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ParityError reports evidence cited by scoring that the ranking stage never
// surfaced. It indicates a pipeline logic defect, not bad external data, and
// is surfaced as a correctness alarm.
type ParityError struct {
	Query   string
	Missing []string
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("parity violation for query %q: evidence not in top-k: %s", e.Query, strings.Join(e.Missing, ", "))
}
