package checker

import (
	"fmt"

	"lincheck/internal/history"
)

var setPipeline = history.NewPipeline(history.Roles{
	Adders:   history.NewMethodSet(history.Insert),
	Removers: history.NewMethodSet(history.Remove),
})

// checkSet relabels failed inserts as successful contains (the value was
// already there) and failed removes as failed contains (it was not), then
// compares each value's operations against the window in which the value
// is certainly present.
func checkSet(h *history.History) error {
	for i := range h.Ops {
		o := &h.Ops[i]

		switch {
		case o.Method == history.Insert && !o.Success:
			o.Method, o.Success = history.Contains, true
		case o.Method == history.Remove && !o.Success:
			o.Method = history.Contains
		}
	}

	if err := setPipeline.Extend(h); err != nil {
		return err
	}

	type window struct {
		minEnd, maxStart int64
	}

	windows := make(map[int]window)

	for _, o := range h.Ops {
		if !o.Success {
			continue
		}

		w, ok := windows[o.Value]
		if !ok {
			w = window{minEnd: o.End, maxStart: o.Start}
		}

		w.minEnd = min(w.minEnd, o.End)
		w.maxStart = max(w.maxStart, o.Start)
		windows[o.Value] = w
	}

	for _, o := range h.Ops {
		w := windows[o.Value]

		switch {
		case o.Success && o.Method == history.Insert && o.Start > w.minEnd:
			return fmt.Errorf("%w: %s starts after %d was already observed", ErrInfeasible, o, o.Value)
		case o.Success && o.Method == history.Remove && o.End < w.maxStart:
			return fmt.Errorf("%w: %s ends before %d was last observed", ErrInfeasible, o, o.Value)
		case !o.Success && w.minEnd < o.Start && o.End < w.maxStart:
			return fmt.Errorf("%w: %s missed %d while it was present", ErrInfeasible, o, o.Value)
		}
	}

	return nil
}
