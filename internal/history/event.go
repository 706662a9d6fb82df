package history

import (
	"cmp"
	"slices"
)

// Event is one endpoint of an operation, used for chronological sweeps.
type Event struct {
	Time       int64
	Invocation bool
	Op         Operation
}

// CompareEvents orders events by time. At equal time a response precedes an
// invocation, so an operation that has already taken effect is told apart
// from one that is merely running. Remaining ties fall back to operation ID.
func CompareEvents(a, b Event) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}

	if a.Invocation != b.Invocation {
		if a.Invocation {
			return 1
		}

		return -1
	}

	return cmp.Compare(a.Op.ID, b.Op.ID)
}

// Events returns the invocation and response events of ops in sweep order.
func Events(ops []Operation) []Event {
	events := make([]Event, 0, 2*len(ops))
	for _, o := range ops {
		events = append(events,
			Event{Time: o.Start, Invocation: true, Op: o},
			Event{Time: o.End, Invocation: false, Op: o},
		)
	}

	slices.SortFunc(events, CompareEvents)

	return events
}
