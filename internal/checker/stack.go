package checker

import (
	"fmt"
	"slices"

	"lincheck/internal/history"
	"lincheck/internal/intervaltree"
	"lincheck/internal/segtree"
)

var stackPipeline = history.NewPipeline(history.Roles{
	Adders:   history.NewMethodSet(history.Push),
	Removers: history.NewMethodSet(history.Pop),
})

// critical is the window [start, end) in which a value is certainly on the
// stack: from its push response to its pop invocation.
type critical struct {
	start, end int
}

func checkStack(h *history.History) error {
	if err := stackPipeline.Preprocess(h); err != nil {
		return err
	}

	crit := flushStack(h)
	if h.Len() == 0 {
		return nil
	}

	return newStackPeeler(h, crit).run()
}

// flushStack re-stamps every event onto 0, 1, 2, ... and computes the
// critical windows. Values whose push responds after their pop is invoked
// are dropped: all of their operations share a common instant and can be
// linearized back to back.
func flushStack(h *history.History) map[int]critical {
	events := history.Events(h.Ops)

	concurrent := make(map[int]bool)
	for _, e := range events {
		switch {
		case e.Invocation && e.Op.Method == history.Pop:
			delete(concurrent, e.Op.Value)
		case !e.Invocation && e.Op.Method == history.Push:
			concurrent[e.Op.Value] = true
		}
	}

	var (
		crit   = make(map[int]critical)
		starts = make(map[history.ID]int)
		out    = make([]history.Operation, 0, len(h.Ops))
		now    int
	)

	for _, e := range events {
		o := e.Op
		if concurrent[o.Value] {
			continue
		}

		c := crit[o.Value]

		if e.Invocation {
			starts[o.ID] = now
			if o.Method == history.Pop {
				c.end = now
			}
		} else {
			o.Start, o.End = int64(starts[o.ID]), int64(now)
			if o.Method == history.Push {
				c.start = now
			}

			out = append(out, o)
		}

		crit[o.Value] = c
		now++
	}

	h.Ops = out

	return crit
}

// stackPeeler repeatedly retires values whose operations can be placed at
// time positions covered by at most one critical window.
type stackPeeler struct {
	crit   map[int]critical
	values []int
	index  map[int]int

	// layers counts the critical windows covering each position. owners sums
	// the dense index of the covering values, so where layers is 1 it names
	// the single owner.
	layers *segtree.Tree
	owners *segtree.Tree

	all     *intervaltree.Tree
	byValue map[int]*intervaltree.Tree
	startOf map[int]int

	points   map[int][]int
	cleared  []int
	consumed int
}

func newStackPeeler(h *history.History, crit map[int]critical) *stackPeeler {
	n := h.Len()
	size := 2*n - 1

	p := &stackPeeler{
		crit:     crit,
		index:    make(map[int]int, len(crit)),
		layers:   segtree.New(size),
		owners:   segtree.New(size),
		all:      intervaltree.New(),
		byValue:  make(map[int]*intervaltree.Tree, len(crit)),
		startOf:  make(map[int]int, n),
		points:   make(map[int][]int),
		consumed: 2 * n,
	}

	for v := range crit {
		p.values = append(p.values, v)
	}

	slices.Sort(p.values)

	for i, v := range p.values {
		p.index[v] = i + 1
		c := crit[v]
		p.layers.UpdateRange(c.start, c.end-1, 1)
		p.owners.UpdateRange(c.start, c.end-1, i+1)
	}

	for _, o := range h.Ops {
		iv := intervaltree.Interval{Start: int(o.Start), End: int(o.End)}
		p.startOf[iv.Start] = o.Value
		p.all.Insert(iv)

		tr, ok := p.byValue[o.Value]
		if !ok {
			tr = intervaltree.New()
			p.byValue[o.Value] = tr
		}

		tr.Insert(iv)
	}

	return p
}

// removeOverlap drops every interval of tr that covers [point, point+1].
func (p *stackPeeler) removeOverlap(tr *intervaltree.Tree, point int) {
	for _, iv := range tr.Query(point) {
		if iv.End == point {
			continue
		}

		v := p.startOf[iv.Start]
		own := p.byValue[v]

		p.all.Remove(iv)
		own.Remove(iv)

		if own.Empty() {
			p.cleared = append(p.cleared, v)
		}
	}
}

func (p *stackPeeler) consume(pos int) {
	p.layers.UpdateRange(pos, pos, p.consumed)
}

func (p *stackPeeler) run() error {
	for !p.all.Empty() {
		count, pos := p.layers.Min()
		for count == 0 {
			p.removeOverlap(p.all, pos)
			p.consume(pos)
			count, pos = p.layers.Min()
		}

		for count == 1 {
			v := p.values[p.owners.Value(pos)-1]
			p.removeOverlap(p.byValue[v], pos)
			p.consume(pos)
			p.points[v] = append(p.points[v], pos)
			count, pos = p.layers.Min()
		}

		if len(p.cleared) == 0 {
			return fmt.Errorf("%w: no stack value can be retired with %d operations left",
				ErrInfeasible, p.all.Len())
		}

		batch := p.cleared
		p.cleared = nil
		slices.Sort(batch)

		for _, v := range batch {
			c := p.crit[v]
			p.layers.UpdateRange(c.start, c.end-1, -1)
			p.owners.UpdateRange(c.start, c.end-1, -p.index[v])

			for _, t := range p.points[v] {
				p.removeOverlap(p.all, t)
			}
		}
	}

	return nil
}
