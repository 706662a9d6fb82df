// Package histgen produces synthetic container histories. Every generated
// operation is placed around a strictly increasing linearization point, so
// the result is linearizable unless a violation is requested.
package histgen

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"lincheck/internal/checker"
	"lincheck/internal/history"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultMaxRadius = 1000
	DefaultMaxDelta  = 10
	DefaultMaxSize   = 100
)

// Config controls a generated history.
type Config struct {
	Kind checker.Kind
	Ops  int
	Seed uint64

	// MaxRadius bounds how far an interval reaches around its point. A
	// negative radius yields a sequential history.
	MaxRadius int64
	// MaxDelta bounds the gap between consecutive points.
	MaxDelta int64
	// MaxSize caps the number of elements held at once.
	MaxSize int

	// NonLinearizable prepends a fixed violation for the kind.
	NonLinearizable bool
}

func (c Config) withDefaults() Config {
	switch {
	case c.MaxRadius == 0:
		c.MaxRadius = DefaultMaxRadius
	case c.MaxRadius < 0:
		c.MaxRadius = 0
	}

	if c.MaxDelta <= 0 {
		c.MaxDelta = DefaultMaxDelta
	}

	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}

	return c
}

type generator struct {
	cfg  Config
	rng  *rand.Rand
	hist *history.History

	now   int64
	value int
}

// Generate builds a history for cfg.Kind with cfg.Ops operations.
func Generate(cfg Config) (*history.History, error) {
	cfg = cfg.withDefaults()
	if cfg.Ops < 0 {
		return nil, fmt.Errorf("negative operation count %d", cfg.Ops)
	}

	g := &generator{
		cfg:  cfg,
		rng:  rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		hist: &history.History{},
	}

	n := cfg.Ops
	if cfg.NonLinearizable {
		n = max(n-g.violation(), 0)
	}

	switch cfg.Kind {
	case checker.Stack:
		g.stack(n)
	case checker.Queue:
		g.queue(n)
	case checker.PriorityQueue:
		g.priorityQueue(n)
	case checker.Deque:
		g.deque(n)
	case checker.Set:
		g.set(n)
	default:
		return nil, fmt.Errorf("%w: %d", checker.ErrUnknownKind, uint8(cfg.Kind))
	}

	return g.hist, nil
}

// interval advances the linearization point and returns an interval that
// contains it.
func (g *generator) interval() (start, end int64) {
	g.now += 1 + g.rng.Int64N(g.cfg.MaxDelta)

	r := g.cfg.MaxRadius + 1
	start = g.now - g.rng.Int64N(r)
	end = max(start+1, g.now+g.rng.Int64N(r))

	return start, end
}

func (g *generator) add(m history.Method, v int) {
	start, end := g.interval()
	g.hist.Add(m, v, start, end)
}

func (g *generator) addResult(m history.Method, v int, ok bool) {
	start, end := g.interval()
	g.hist.AddResult(m, v, ok, start, end)
}

func (g *generator) nextValue() int {
	g.value++

	return g.value
}

// violation writes a fixed non-linearizable prefix on two fresh values and
// returns the number of operations used.
func (g *generator) violation() int {
	a, b := g.nextValue(), g.nextValue()
	h := g.hist

	switch g.cfg.Kind {
	case checker.Stack:
		h.Add(history.Push, a, 0, 1)
		h.Add(history.Push, b, 1, 2)
		h.Add(history.Pop, a, 2, 3)
		h.Add(history.Pop, b, 3, 4)
	case checker.Queue:
		h.Add(history.Enqueue, a, 0, 1)
		h.Add(history.Enqueue, b, 1, 2)
		h.Add(history.Dequeue, b, 2, 3)
		h.Add(history.Dequeue, a, 3, 4)
	case checker.PriorityQueue:
		h.Add(history.Insert, a, 0, 1)
		h.Add(history.Insert, b, 1, 2)
		h.Add(history.Poll, a, 2, 3)
		h.Add(history.Poll, b, 3, 4)
	case checker.Deque:
		h.Add(history.PushFront, a, 0, 1)
		h.Add(history.PushFront, b, 1, 2)
		h.Add(history.PopFront, a, 2, 3)
		h.Add(history.PopFront, b, 3, 4)
	case checker.Set:
		h.Add(history.Insert, a, 0, 1)
		h.Add(history.Remove, a, 2, 3)
		h.Add(history.Contains, a, 4, 5)
		g.now = 5

		return 3
	}

	g.now = 4

	return 4
}

// pick returns 0 (add), 1 (observe) or 2 (remove), never adding to a full
// container and always adding to an empty one.
func (g *generator) pick(size int) int {
	switch {
	case size == 0:
		return 0
	case size >= g.cfg.MaxSize:
		return 1 + g.rng.IntN(2)
	default:
		return g.rng.IntN(3)
	}
}

func (g *generator) stack(n int) {
	var stack []int

	for range n {
		switch g.pick(len(stack)) {
		case 0:
			v := g.nextValue()
			stack = append(stack, v)
			g.add(history.Push, v)
		case 1:
			g.add(history.Peek, stack[len(stack)-1])
		case 2:
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			g.add(history.Pop, v)
		}
	}
}

func (g *generator) queue(n int) {
	var queue []int

	for range n {
		switch g.pick(len(queue)) {
		case 0:
			v := g.nextValue()
			queue = append(queue, v)
			g.add(history.Enqueue, v)
		case 1:
			g.add(history.Peek, queue[0])
		case 2:
			v := queue[0]
			queue = queue[1:]
			g.add(history.Dequeue, v)
		}
	}
}

func (g *generator) priorityQueue(n int) {
	base := g.value
	g.value += n

	values := make([]int, n)
	for i := range values {
		values[i] = base + i + 1
	}

	g.rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })

	var present []int

	for range n {
		op := g.pick(len(present))
		if op == 0 {
			v := values[0]
			values = values[1:]
			present = append(present, v)
			g.add(history.Insert, v)

			continue
		}

		i := slices.Index(present, slices.Max(present))
		v := present[i]

		if op == 1 {
			g.add(history.Peek, v)

			continue
		}

		present = slices.Delete(present, i, i+1)
		g.add(history.Poll, v)
	}
}

func (g *generator) deque(n int) {
	var deque []int

	for range n {
		front := g.rng.IntN(2) == 0

		switch g.pick(len(deque)) {
		case 0:
			v := g.nextValue()
			if front {
				deque = append([]int{v}, deque...)
				g.add(history.PushFront, v)
			} else {
				deque = append(deque, v)
				g.add(history.PushBack, v)
			}
		case 1:
			if front {
				g.add(history.PeekFront, deque[0])
			} else {
				g.add(history.PeekBack, deque[len(deque)-1])
			}
		case 2:
			if front {
				v := deque[0]
				deque = deque[1:]
				g.add(history.PopFront, v)
			} else {
				v := deque[len(deque)-1]
				deque = deque[:len(deque)-1]
				g.add(history.PopBack, v)
			}
		}
	}
}

// set never re-inserts a removed value, keeping the distinct-value
// restriction. Failed inserts and removes are emitted as well.
func (g *generator) set(n int) {
	var (
		present = make(map[int]bool)
		seen    []int
	)

	for range n {
		var v int
		if len(seen) == 0 || g.rng.IntN(3) == 0 {
			v = g.nextValue()
		} else {
			v = seen[g.rng.IntN(len(seen))]
		}

		switch g.rng.IntN(3) {
		case 0:
			switch {
			case !slices.Contains(seen, v):
				seen = append(seen, v)
				present[v] = true
				g.addResult(history.Insert, v, true)
			case present[v]:
				g.addResult(history.Insert, v, false)
			default:
				g.addResult(history.Contains, v, false)
			}
		case 1:
			ok := present[v]
			delete(present, v)
			g.addResult(history.Remove, v, ok)
		case 2:
			g.addResult(history.Contains, v, present[v])
		}
	}
}
