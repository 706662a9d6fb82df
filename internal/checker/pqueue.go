package checker

import (
	"container/heap"
	"fmt"

	"lincheck/internal/history"
)

var pqueuePipeline = history.NewPipeline(history.Roles{
	Adders:   history.NewMethodSet(history.Insert),
	Removers: history.NewMethodSet(history.Poll),
})

// maxHeap is a max-heap of values for container/heap.
type maxHeap []int

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// lazyMax is a max-heap over a membership map. Entries whose value left
// the map are discarded when they surface.
type lazyMax struct {
	heap    maxHeap
	members map[int]bool
}

func newLazyMax() *lazyMax {
	return &lazyMax{members: make(map[int]bool)}
}

func (l *lazyMax) add(v int) {
	if !l.members[v] {
		l.members[v] = true
		heap.Push(&l.heap, v)
	}
}

func (l *lazyMax) remove(v int) {
	delete(l.members, v)
}

func (l *lazyMax) max() (int, bool) {
	for l.heap.Len() > 0 {
		if top := l.heap[0]; l.members[top] {
			return top, true
		}

		heap.Pop(&l.heap)
	}

	return 0, false
}

func (l *lazyMax) clear() {
	l.heap = l.heap[:0]
	clear(l.members)
}

// checkPriorityQueue sweeps the normalized history. While some value is
// certainly present, the largest such value must be served first, so no
// poll or peek of an equal or larger value may still be running.
func checkPriorityQueue(h *history.History) error {
	if err := pqueuePipeline.Preprocess(h); err != nil {
		return err
	}

	var (
		critical = newLazyMax()
		running  = newLazyMax()
		pending  = make(map[int]map[history.ID]bool)
		ended    = make(map[int]bool)
	)

	for _, e := range history.Events(h.Ops) {
		o := e.Op

		if e.Invocation {
			if o.Method != history.Insert {
				if pending[o.Value] == nil {
					pending[o.Value] = make(map[history.ID]bool)
				}

				pending[o.Value][o.ID] = true
				running.add(o.Value)
			}

			if o.Method == history.Poll {
				critical.remove(o.Value)
				ended[o.Value] = true
			}
		} else {
			if pending[o.Value][o.ID] {
				return fmt.Errorf("%w: %s responded behind a higher priority value",
					ErrInfeasible, o)
			}

			if o.Method == history.Insert && !ended[o.Value] {
				critical.add(o.Value)
			}
		}

		top, ok := critical.max()
		if !ok {
			running.clear()
			clear(pending)

			continue
		}

		for {
			v, ok := running.max()
			if !ok || v < top {
				break
			}

			running.remove(v)
			delete(pending, v)
		}
	}

	return nil
}
