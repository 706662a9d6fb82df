package checker

import (
	"fmt"

	"lincheck/internal/history"
)

var queuePipeline = history.NewPipeline(history.Roles{
	Adders:   history.NewMethodSet(history.Enqueue),
	Removers: history.NewMethodSet(history.Dequeue),
})

// queueScan walks the non-enqueue events backwards. A value becomes pending
// once all but one of its operations are accounted for on one stream and
// confirmed once the other stream agrees.
type queueScan struct {
	enq    []history.Event
	cursor int

	pending   map[int]bool
	confirmed map[int]bool
	responded map[int]int
	opsOf     map[int]int

	last    int
	hasLast bool
}

func (q *queueScan) toggle(v int) {
	if q.pending[v] {
		delete(q.pending, v)
		q.confirmed[v] = true
	} else {
		q.pending[v] = true
	}
}

// lastOf reports whether the next operation of v seen backwards is its
// final unresolved one.
func (q *queueScan) lastOf(v int) bool {
	return q.responded[v]+1 == q.opsOf[v]
}

// scanEnqueues moves the backward enqueue cursor up to the next invocation
// of an unconfirmed value.
func (q *queueScan) scanEnqueues() {
	for ; q.cursor >= 0; q.cursor-- {
		e := q.enq[q.cursor]
		if q.confirmed[e.Op.Value] {
			continue
		}

		if e.Invocation {
			return
		}

		q.toggle(e.Op.Value)
	}
}

func checkQueue(h *history.History) error {
	if err := queuePipeline.Preprocess(h); err != nil {
		return err
	}

	var enqOps, otherOps []history.Operation

	q := &queueScan{
		pending:   make(map[int]bool),
		confirmed: make(map[int]bool),
		responded: make(map[int]int),
		opsOf:     make(map[int]int),
	}

	for _, o := range h.Ops {
		q.opsOf[o.Value]++

		if o.Method == history.Enqueue {
			enqOps = append(enqOps, o)
		} else {
			otherOps = append(otherOps, o)
		}
	}

	q.enq = history.Events(enqOps)
	q.cursor = len(q.enq) - 1
	others := history.Events(otherOps)

	for i := len(others) - 1; i >= 0; i-- {
		e := others[i]
		v := e.Op.Value

		if q.confirmed[v] {
			continue
		}

		if !e.Invocation {
			q.responded[v]++
			if q.lastOf(v) {
				q.toggle(v)
			}

			continue
		}

		if q.hasLast && q.last != v {
			q.scanEnqueues()

			if !q.confirmed[q.last] && !q.confirmed[v] {
				return fmt.Errorf("%w: values %d and %d contend for the queue head",
					ErrInfeasible, q.last, v)
			}

			switch {
			case !q.confirmed[v]:
				if q.lastOf(v) {
					return fmt.Errorf("%w: value %d cannot be ordered", ErrInfeasible, v)
				}

				q.last = v
			case q.confirmed[q.last]:
				q.hasLast = false
			}

			continue
		}

		q.last, q.hasLast = v, true

		if q.lastOf(v) {
			q.scanEnqueues()

			if !q.confirmed[v] {
				return fmt.Errorf("%w: value %d dequeued out of order", ErrInfeasible, v)
			}

			q.hasLast = false
		}
	}

	return nil
}
