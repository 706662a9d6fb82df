package checker

import (
	"fmt"
	"slices"

	"lincheck/internal/history"
)

// MaxLinearizablePrefix returns the largest response time t such that the
// sub-history observable at t is linearizable. Response times are binary
// searched; a fully linearizable history yields its horizon. It fails with
// ErrInfeasible when not even the earliest prefix passes.
func MaxLinearizablePrefix(kind Kind, h *history.History) (int64, error) {
	p, err := kind.Pipeline()
	if err != nil {
		return 0, err
	}

	if h.Len() == 0 {
		return 0, nil
	}

	if Check(kind, h) == nil {
		return h.Horizon(), nil
	}

	times := make([]int64, 0, h.Len())
	for _, o := range h.Ops {
		times = append(times, o.End)
	}

	slices.Sort(times)
	times = slices.Compact(times)

	best := -1
	lo, hi := 0, len(times)-1

	for lo <= hi {
		mid := lo + (hi-lo)/2
		if Check(kind, p.Truncate(h, times[mid])) == nil {
			best, lo = mid, mid+1
		} else {
			hi = mid - 1
		}
	}

	if best < 0 {
		return 0, fmt.Errorf("%w: no linearizable prefix", ErrInfeasible)
	}

	return times[best], nil
}
