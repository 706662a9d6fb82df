package verifier

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"lincheck/internal/checker"
	"lincheck/internal/history"
	"lincheck/internal/trace"
)

// ErrKindMismatch is returned when merged traces name different containers.
var ErrKindMismatch = errors.New("traces name different container kinds")

// MergeHistories combines several trace files recorded against the same
// container into one trace written to outPath. Operation IDs are reassigned.
func MergeHistories(historyPaths []string, outPath string) (checker.Kind, error) {
	if len(historyPaths) == 0 {
		return 0, errors.New("no traces to merge")
	}

	var (
		kind    checker.Kind
		hasKind bool
		allOps  []history.Operation
	)

	for _, path := range historyPaths {
		t, err := trace.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("error loading %s: %w", path, err)
		}

		if t.HasKind {
			if hasKind && t.Kind != kind {
				return 0, fmt.Errorf("%w: %s and %s", ErrKindMismatch, kind, t.Kind)
			}

			kind, hasKind = t.Kind, true
		}

		for _, o := range t.History.Ops {
			o.ID = 0
			allOps = append(allOps, o)
		}
	}

	if !hasKind {
		return 0, ErrNoKind
	}

	// Sort operations by call time to maintain chronological order
	slices.SortStableFunc(allOps, func(a, b history.Operation) int {
		return cmp.Compare(a.Start, b.Start)
	})

	if err := trace.WriteFile(outPath, kind, history.New(allOps...)); err != nil {
		return 0, fmt.Errorf("error writing merged history: %w", err)
	}

	return kind, nil
}
