package healthcheck

import "context"

// MultiChecker runs several checkers in order and concatenates their results.
type MultiChecker struct {
	checkers []Checker
}

// NewMultiChecker creates a checker over the non-nil checkers given.
func NewMultiChecker(checkers ...Checker) *MultiChecker {
	kept := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &MultiChecker{checkers: kept}
}

// ListChecks evaluates every checker.
func (m *MultiChecker) ListChecks(ctx context.Context) []CheckResult {
	if m == nil {
		return []CheckResult{}
	}
	result := make([]CheckResult, 0, len(m.checkers))
	for _, c := range m.checkers {
		result = append(result, c.ListChecks(ctx)...)
	}
	return result
}
