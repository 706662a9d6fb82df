package history

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors returned by the preprocessing pipeline. Each one means the
// history cannot be linearizable.
var (
	ErrDuplicateAdd        = errors.New("value added more than once")
	ErrDuplicateRemove     = errors.New("value removed more than once")
	ErrMissingAdd          = errors.New("value used without an add")
	ErrObservedAfterRemove = errors.New("value observed after its remove responded")
	ErrEmptyWhileCritical  = errors.New("empty observed while a value was present")
)

// Roles splits a container's methods into adders and removers. Every other
// method is an observer.
type Roles struct {
	Adders   MethodSet
	Removers MethodSet
}

// IsAdder reports whether m introduces a value.
func (r Roles) IsAdder(m Method) bool { return r.Adders.Has(m) }

// IsRemover reports whether m retires a value.
func (r Roles) IsRemover(m Method) bool { return r.Removers.Has(m) }

// PadFunc picks the method of the synthetic remover for a value that was
// added by adder and never removed.
type PadFunc func(adder Method) Method

// Pipeline normalizes histories for one container kind.
type Pipeline struct {
	roles Roles
	pad   PadFunc
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPad overrides the synthetic remover method. By default the first
// remover of the role set is used.
func WithPad(pad PadFunc) PipelineOption {
	return func(p *Pipeline) {
		p.pad = pad
	}
}

// NewPipeline returns a pipeline for the given roles.
func NewPipeline(roles Roles, opts ...PipelineOption) Pipeline {
	p := Pipeline{roles: roles}
	for _, opt := range opts {
		opt(&p)
	}

	if p.pad == nil {
		first := roles.Removers.First()
		p.pad = func(Method) Method { return first }
	}

	return p
}

// Roles returns the adder and remover sets of the pipeline.
func (p Pipeline) Roles() Roles {
	return p.roles
}

// Preprocess runs Extend, Tune and RemoveEmpty in order.
func (p Pipeline) Preprocess(h *History) error {
	if err := p.Extend(h); err != nil {
		return err
	}

	if err := p.Tune(h); err != nil {
		return err
	}

	return p.RemoveEmpty(h)
}

// Extend enforces the distinct-value restriction and gives every value that
// was never removed a synthetic remover after the last response. Failed and
// empty-observing operations are ignored.
func (p Pipeline) Extend(h *History) error {
	var (
		horizon  int64
		first    = true
		seen     = make(map[int]bool)
		adders   = make(map[int]Method)
		removers = make(map[int]bool)
		order    []int
	)

	for _, o := range h.Ops {
		if o.Empty() || !o.Success {
			continue
		}

		if !seen[o.Value] {
			seen[o.Value] = true
			order = append(order, o.Value)
		}

		_, isAdded := adders[o.Value]

		switch {
		case p.roles.IsAdder(o.Method):
			if isAdded {
				return fmt.Errorf("%w: %d", ErrDuplicateAdd, o.Value)
			}

			adders[o.Value] = o.Method
		case p.roles.IsRemover(o.Method):
			if removers[o.Value] {
				return fmt.Errorf("%w: %d", ErrDuplicateRemove, o.Value)
			}

			removers[o.Value] = true
		}

		if first || o.End > horizon {
			horizon, first = o.End, false
		}
	}

	slices.Sort(order)

	for _, v := range order {
		adder, ok := adders[v]
		if !ok {
			return fmt.Errorf("%w: %d", ErrMissingAdd, v)
		}

		if !removers[v] {
			h.Add(p.pad(adder), v, horizon+1, horizon+2)
		}
	}

	return nil
}

// Tune re-stamps the history with compact, strictly increasing instants.
// Observers and the remover of a value are pushed behind the value's adder
// invocation; everything still running on a value is closed when its
// remover responds.
func (p Pipeline) Tune(h *History) error {
	var (
		now      int64
		out      = make([]Operation, 0, len(h.Ops))
		emitted  = make(map[ID]bool, len(h.Ops))
		addOps   = make(map[int]Operation)
		rmOps    = make(map[int]Operation)
		watchers = make(opQueues)
	)

	tick := func() int64 {
		now++

		return now
	}

	emit := func(o Operation) {
		out = append(out, o)
		emitted[o.ID] = true
	}

	for _, e := range Events(h.Ops) {
		o, v := e.Op, e.Op.Value

		if e.Invocation {
			switch {
			case o.Empty():
				o.Start = tick()
				watchers.get(v).push(o)
			case p.roles.IsAdder(o.Method):
				o.Start = tick()
				if _, ok := addOps[v]; !ok {
					addOps[v] = o
				}

				watchers.get(v).each(func(w *Operation) { w.Start = tick() })

				if rm, ok := rmOps[v]; ok {
					rm.Start = tick()
					rmOps[v] = rm
				}
			case p.roles.IsRemover(o.Method):
				o.Start = tick()
				if _, ok := rmOps[v]; !ok {
					rmOps[v] = o
				}
			default:
				o.Start = tick()
				watchers.get(v).push(o)

				if rm, ok := rmOps[v]; ok {
					if emitted[rm.ID] {
						return fmt.Errorf("%w: %s", ErrObservedAfterRemove, o)
					}

					rm.Start = tick()
					rmOps[v] = rm
				}
			}

			continue
		}

		switch {
		case o.Empty():
			if w, ok := watchers.get(v).remove(o.ID); ok {
				w.End = tick()
				emit(w)
			}
		case p.roles.IsAdder(o.Method):
			add := addOps[v]
			add.End = tick()

			if !emitted[add.ID] {
				emit(add)
			}
		case p.roles.IsRemover(o.Method):
			add, ok := addOps[v]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingAdd, o)
			}

			if !emitted[add.ID] {
				add.End = tick()
				emit(add)
			}

			q := watchers.get(v)
			for w, ok := q.pop(); ok; w, ok = q.pop() {
				w.End = tick()
				emit(w)
			}

			rm := rmOps[v]
			rm.End = tick()
			emit(rm)
		default:
			add, ok := addOps[v]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingAdd, o)
			}

			if !emitted[add.ID] {
				add.End = tick()
				emit(add)
			}

			if w, ok := watchers.get(v).remove(o.ID); ok {
				w.End = tick()
				emit(w)
			}
		}
	}

	h.Ops = out

	return nil
}

// RemoveEmpty drops every empty-observing operation that overlaps an instant
// at which no value was certainly present, and rejects the history if one
// spans only instants at which some value was.
func (p Pipeline) RemoveEmpty(h *History) error {
	var (
		running  = make(map[ID]bool)
		critical = make(map[int]bool)
		ended    = make(map[int]bool)
		drop     = make(map[ID]bool)
	)

	for _, e := range Events(h.Ops) {
		o := e.Op

		switch {
		case !o.Empty() && e.Invocation:
			if p.roles.IsRemover(o.Method) {
				delete(critical, o.Value)
				ended[o.Value] = true
			}
		case !o.Empty():
			if p.roles.IsAdder(o.Method) && !ended[o.Value] {
				critical[o.Value] = true
			}
		case e.Invocation:
			running[o.ID] = true
		case running[o.ID]:
			return fmt.Errorf("%w: %s", ErrEmptyWhileCritical, o)
		default:
			drop[o.ID] = true
		}

		if len(critical) == 0 {
			clear(running)
		}
	}

	if len(drop) > 0 {
		h.Filter(func(o Operation) bool { return !drop[o.ID] })
	}

	return nil
}

// Truncate returns the sub-history observable at time t: every operation that
// responded by t, plus operations on already-seen values still running at t
// (closed at t+3). Seen values without a remover get a synthetic one at
// [t+1, t+2]. The receiver history is not modified.
func (p Pipeline) Truncate(h *History, t int64) *History {
	sub := &History{lastID: h.maxID()}

	var (
		seen    = make(map[int]bool)
		adders  = make(map[int]Method)
		removed = make(map[int]bool)
		order   []int
	)

	track := func(o Operation) {
		switch {
		case p.roles.IsAdder(o.Method):
			adders[o.Value] = o.Method
		case p.roles.IsRemover(o.Method):
			removed[o.Value] = true
		}
	}

	for _, o := range h.Ops {
		if o.End > t {
			continue
		}

		sub.Ops = append(sub.Ops, o)

		if !o.Empty() {
			if !seen[o.Value] {
				seen[o.Value] = true
				order = append(order, o.Value)
			}

			track(o)
		}
	}

	for _, o := range h.Ops {
		if o.Start < t && t < o.End && !o.Empty() && seen[o.Value] {
			o.End = t + 3
			sub.Ops = append(sub.Ops, o)
			track(o)
		}
	}

	slices.Sort(order)

	for _, v := range order {
		if removed[v] {
			continue
		}

		m := p.roles.Removers.First()
		if adder, ok := adders[v]; ok {
			m = p.pad(adder)
		}

		sub.Add(m, v, t+1, t+2)
	}

	return sub
}

func (h *History) maxID() ID {
	id := h.lastID
	for _, o := range h.Ops {
		id = max(id, o.ID)
	}

	return id
}
