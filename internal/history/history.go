// Package history holds the operation model shared by every container checker
// and the preprocessing pipeline that rewrites a raw history into the
// distinct-value normal form the checkers assume.
package history

import (
	"fmt"
	"slices"
)

// EmptyValue is the value of an operation that observed an empty container.
const EmptyValue = -1

// ID identifies an operation within its History.
type ID uint64

// Operation is one recorded call on the container.
type Operation struct {
	ID      ID
	Method  Method
	Value   int
	Start   int64
	End     int64
	Success bool
}

// Empty reports whether the operation observed an empty container.
func (o Operation) Empty() bool {
	return o.Value == EmptyValue
}

func (o Operation) String() string {
	return fmt.Sprintf("#%d %s(%d) [%d, %d]", o.ID, o.Method, o.Value, o.Start, o.End)
}

// History is a set of operations, unique by ID. It owns the allocator that
// hands out IDs, so operations added later (e.g. synthetic removers) never
// collide with recorded ones.
type History struct {
	Ops []Operation

	lastID ID
}

// New returns a history holding ops. Operations whose ID is zero get a fresh
// one.
func New(ops ...Operation) *History {
	h := &History{Ops: make([]Operation, 0, len(ops))}
	for _, o := range ops {
		h.lastID = max(h.lastID, o.ID)
	}

	for _, o := range ops {
		if o.ID == 0 {
			o.ID = h.NewID()
		}

		h.Ops = append(h.Ops, o)
	}

	return h
}

// NewID allocates an unused operation ID.
func (h *History) NewID() ID {
	if h.lastID == 0 {
		for _, o := range h.Ops {
			h.lastID = max(h.lastID, o.ID)
		}
	}

	h.lastID++

	return h.lastID
}

// Add appends a successful operation and returns it.
func (h *History) Add(m Method, value int, start, end int64) Operation {
	return h.AddResult(m, value, true, start, end)
}

// AddResult appends an operation with an explicit success flag.
func (h *History) AddResult(m Method, value int, success bool, start, end int64) Operation {
	o := Operation{
		ID:      h.NewID(),
		Method:  m,
		Value:   value,
		Start:   start,
		End:     end,
		Success: success,
	}
	h.Ops = append(h.Ops, o)

	return o
}

// Len returns the number of operations.
func (h *History) Len() int {
	return len(h.Ops)
}

// Clone returns an independent copy sharing no storage with h.
func (h *History) Clone() *History {
	return &History{Ops: slices.Clone(h.Ops), lastID: h.lastID}
}

// Filter keeps only the operations for which keep returns true.
func (h *History) Filter(keep func(Operation) bool) {
	h.Ops = slices.DeleteFunc(h.Ops, func(o Operation) bool { return !keep(o) })
}

// Horizon returns the latest response time in the history, or zero for an
// empty history.
func (h *History) Horizon() int64 {
	var t int64
	for i, o := range h.Ops {
		if i == 0 || o.End > t {
			t = o.End
		}
	}

	return t
}
