package checker

import (
	"fmt"
	"maps"
	"slices"

	"lincheck/internal/history"
)

var dequePipeline = history.NewPipeline(
	history.Roles{
		Adders:   history.NewMethodSet(history.PushFront, history.PushBack),
		Removers: history.NewMethodSet(history.PopFront, history.PopBack),
	},
	history.WithPad(func(adder history.Method) history.Method {
		if adder == history.PushBack {
			return history.PopBack
		}

		return history.PopFront
	}),
)

func isFront(m history.Method) bool {
	return m == history.PushFront || m == history.PeekFront || m == history.PopFront
}

func isPush(m history.Method) bool {
	return m == history.PushFront || m == history.PushBack
}

func isPop(m history.Method) bool {
	return m == history.PopFront || m == history.PopBack
}

func isPeek(m history.Method) bool {
	return m == history.PeekFront || m == history.PeekBack
}

// stackMethod projects a deque method onto the stack alphabet.
func stackMethod(m history.Method) history.Method {
	switch {
	case isPush(m):
		return history.Push
	case isPop(m):
		return history.Pop
	default:
		return history.Peek
	}
}

type valueSet map[int]struct{}

func (s valueSet) add(v int) { s[v] = struct{}{} }
func (s valueSet) del(v int) { delete(s, v) }

func (s valueSet) has(v int) bool {
	_, ok := s[v]

	return ok
}

func (s valueSet) sorted() []int {
	return slices.Sorted(maps.Keys(s))
}

func checkDeque(h *history.History) error {
	if err := dequePipeline.Preprocess(h); err != nil {
		return err
	}

	oneSided := oneSidedValues(h)
	if err := checkOneSided(h, oneSided); err != nil {
		return err
	}

	dropConcurrentOneSided(h, oneSided)

	if !newDequeSearch(h, oneSided).search(0, 0) {
		return fmt.Errorf("%w: no interleaving of front and back schedules", ErrInfeasible)
	}

	return nil
}

// oneSidedValues returns the values touched from exactly one end.
func oneSidedValues(h *history.History) valueSet {
	front, back := make(valueSet), make(valueSet)
	for _, o := range h.Ops {
		if isFront(o.Method) {
			front.add(o.Value)
		} else {
			back.add(o.Value)
		}
	}

	out := make(valueSet)
	for v := range front {
		if !back.has(v) {
			out.add(v)
		}
	}

	for v := range back {
		if !front.has(v) {
			out.add(v)
		}
	}

	return out
}

// checkOneSided runs the stack checker on the front and back projections of
// the one-sided values.
func checkOneSided(h *history.History, oneSided valueSet) error {
	var front, back []history.Operation

	for _, o := range h.Ops {
		if !oneSided.has(o.Value) {
			continue
		}

		p := o
		p.Method = stackMethod(o.Method)

		if isFront(o.Method) {
			front = append(front, p)
		} else {
			back = append(back, p)
		}
	}

	if err := checkStack(history.New(front...)); err != nil {
		return fmt.Errorf("front: %w", err)
	}

	if err := checkStack(history.New(back...)); err != nil {
		return fmt.Errorf("back: %w", err)
	}

	return nil
}

// dropConcurrentOneSided removes one-sided values whose operations all share
// a common instant.
func dropConcurrentOneSided(h *history.History, oneSided valueSet) {
	type span struct {
		minEnd, maxStart int64
	}

	spans := make(map[int]span)

	for _, o := range h.Ops {
		s, ok := spans[o.Value]
		if !ok {
			s = span{minEnd: o.End, maxStart: o.Start}
		}

		s.minEnd = min(s.minEnd, o.End)
		s.maxStart = max(s.maxStart, o.Start)
		spans[o.Value] = s
	}

	h.Filter(func(o history.Operation) bool {
		s := spans[o.Value]

		return !oneSided.has(o.Value) || s.minEnd < s.maxStart
	})
}

type memoState uint8

const (
	memoUnknown memoState = iota
	memoVisiting
	memoFeasible
	memoInfeasible
)

// memoGrid is an n x n table of search states; rows are allocated on first
// write.
type memoGrid struct {
	rows [][]memoState
}

func newMemoGrid(n int) *memoGrid {
	return &memoGrid{rows: make([][]memoState, n)}
}

func (g *memoGrid) get(i, j int) memoState {
	if g.rows[i] == nil {
		return memoUnknown
	}

	return g.rows[i][j]
}

func (g *memoGrid) set(i, j int, s memoState) {
	if g.rows[i] == nil {
		g.rows[i] = make([]memoState, len(g.rows))
	}

	g.rows[i][j] = s
}

// dequeSearch explores pairs of cursors (i, j) into the event stream: the
// front schedule has committed everything before i and the back schedule
// everything before j.
type dequeSearch struct {
	events   []history.Event
	values   []int
	oneSided valueSet

	size      map[int]int
	frontSize map[int]int
	pushFront valueSet
	popFront  valueSet

	memo *memoGrid
}

func newDequeSearch(h *history.History, oneSided valueSet) *dequeSearch {
	s := &dequeSearch{
		events:    history.Events(h.Ops),
		oneSided:  oneSided,
		size:      make(map[int]int),
		frontSize: make(map[int]int),
		pushFront: make(valueSet),
		popFront:  make(valueSet),
	}

	for _, o := range h.Ops {
		switch o.Method {
		case history.PushFront:
			s.pushFront.add(o.Value)
		case history.PopFront:
			s.popFront.add(o.Value)
		}

		if isFront(o.Method) {
			s.frontSize[o.Value]++
		}

		s.size[o.Value]++
	}

	s.values = slices.Sorted(maps.Keys(s.size))
	s.memo = newMemoGrid(len(s.events))

	return s
}

func (s *dequeSearch) search(i, j int) bool {
	if i >= len(s.events) || j >= len(s.events) {
		return true
	}

	switch s.memo.get(i, j) {
	case memoFeasible:
		return true
	case memoVisiting, memoInfeasible:
		return false
	}

	s.memo.set(i, j, memoVisiting)

	ok := s.explore(i, j)
	if ok {
		s.memo.set(i, j, memoFeasible)
	} else {
		s.memo.set(i, j, memoInfeasible)
	}

	return ok
}

// goodValues returns the two-sided values that still need scheduling at
// state (i, j).
func (s *dequeSearch) goodValues(i, j int) valueSet {
	ongoing := make(map[int]int)
	bad := make(valueSet)

	for k := range max(i, j) {
		e := s.events[k]
		o := e.Op

		delta := 1
		if !e.Invocation {
			delta = -1
		}

		if k < i && isFront(o.Method) {
			if o.Method == history.PeekFront ||
				(i <= j && o.Method == history.PushFront) ||
				(i >= j && o.Method == history.PopFront) {
				ongoing[o.Value] += delta
			}

			if !e.Invocation {
				bad.add(o.Value)
			}
		}

		if k < j && !isFront(o.Method) {
			if o.Method == history.PeekBack ||
				(i >= j && o.Method == history.PushBack) ||
				(i <= j && o.Method == history.PopBack) {
				ongoing[o.Value] += delta
			}

			if !e.Invocation {
				bad.add(o.Value)
			}
		}
	}

	good := make(valueSet)

	for _, v := range s.values {
		if bad.has(v) || s.oneSided.has(v) {
			continue
		}

		if s.size[v] == ongoing[v] {
			switch {
			case i == j:
				continue
			case i < j && s.pushFront.has(v) && !s.popFront.has(v):
				continue
			case i > j && !s.pushFront.has(v) && s.popFront.has(v):
				continue
			}
		}

		good.add(v)
	}

	return good
}

// sideState tracks the operations of good values running on one end of the
// deque and which of them may be scheduled.
type sideState struct {
	pushes valueSet
	peeks  map[int]map[history.ID]bool
	pops   valueSet

	peekable    valueSet
	popable     valueSet
	peekableNow valueSet
	popableNow  valueSet
}

func newSideState() *sideState {
	return &sideState{
		pushes:      make(valueSet),
		peeks:       make(map[int]map[history.ID]bool),
		pops:        make(valueSet),
		peekable:    make(valueSet),
		popable:     make(valueSet),
		peekableNow: make(valueSet),
		popableNow:  make(valueSet),
	}
}

func (s *sideState) insert(o history.Operation) {
	switch {
	case isPush(o.Method):
		s.pushes.add(o.Value)
	case isPop(o.Method):
		s.pops.add(o.Value)
		if s.popable.has(o.Value) {
			s.popableNow.add(o.Value)
		}
	default:
		if s.peeks[o.Value] == nil {
			s.peeks[o.Value] = make(map[history.ID]bool)
		}

		s.peeks[o.Value][o.ID] = true
		if s.peekable.has(o.Value) {
			s.peekableNow.add(o.Value)
		}
	}
}

func (s *sideState) contains(o history.Operation) bool {
	switch {
	case isPush(o.Method):
		return s.pushes.has(o.Value)
	case isPop(o.Method):
		return s.pops.has(o.Value)
	default:
		return s.peeks[o.Value][o.ID]
	}
}

func (s *sideState) markPeekable(v int) {
	s.peekable.add(v)
	if len(s.peeks[v]) > 0 {
		s.peekableNow.add(v)
	}
}

func (s *sideState) markPopable(v int) {
	s.popable.add(v)
	if s.pops.has(v) {
		s.popableNow.add(v)
	}
}

// dequeRound is the scheduling state of one sweep from a search state.
type dequeRound struct {
	search *dequeSearch
	good   valueSet

	front, back         *sideState
	critFront, critBack valueSet

	endedFront, endedBack map[int]int
	nexti, nextj          map[int]int

	invalid                   valueSet
	pendingFront, pendingBack valueSet
}

func (s *dequeSearch) explore(i, j int) bool {
	good := s.goodValues(i, j)
	if len(good) == 0 {
		return true
	}

	r := &dequeRound{
		search:       s,
		good:         good,
		front:        newSideState(),
		back:         newSideState(),
		critFront:    make(valueSet),
		critBack:     make(valueSet),
		endedFront:   make(map[int]int),
		endedBack:    make(map[int]int),
		nexti:        make(map[int]int),
		nextj:        make(map[int]int),
		invalid:      make(valueSet),
		pendingFront: maps.Clone(good),
		pendingBack:  maps.Clone(good),
	}

	for k, e := range s.events {
		r.observe(e)

		frontOpen := len(r.critFront) == 0 && k+1 >= i
		backOpen := len(r.critBack) == 0 && k+1 >= j

		if frontOpen {
			r.schedulePushes(r.front, r.endedFront, k)
		}

		if backOpen {
			r.schedulePushes(r.back, r.endedBack, k)
		}

		if frontOpen {
			r.schedulePeeks(r.front, r.endedFront, k)
		}

		if backOpen {
			r.schedulePeeks(r.back, r.endedBack, k)
		}

		if frontOpen && r.schedulePops(r.front, r.endedFront, k) {
			return true
		}

		if backOpen && r.schedulePops(r.back, r.endedBack, k) {
			return true
		}
	}

	return false
}

func (r *dequeRound) observe(e history.Event) {
	o := e.Op
	v := o.Value
	front := isFront(o.Method)

	if e.Invocation {
		switch {
		case r.search.oneSided.has(v) && isPop(o.Method):
			r.crit(front).del(v)
		case r.good.has(v):
			r.side(front).insert(o)
		}

		return
	}

	switch {
	case r.search.oneSided.has(v) && isPush(o.Method):
		r.crit(front).add(v)
	case r.good.has(v):
		if r.front.contains(o) || r.back.contains(o) {
			r.invalid.add(v)
			r.pendingFront.del(v)
			r.pendingBack.del(v)
		}

		pending := r.pendingBack
		if front {
			pending = r.pendingFront
		}

		for w := range pending {
			if w != v {
				r.invalid.add(w)
				pending.del(w)
			}
		}
	}
}

func (r *dequeRound) side(front bool) *sideState {
	if front {
		return r.front
	}

	return r.back
}

func (r *dequeRound) crit(front bool) valueSet {
	if front {
		return r.critFront
	}

	return r.critBack
}

// settle records that v finished a side at event k and opens its pop once
// everything else of v has been scheduled.
func (r *dequeRound) settle(v, k int) {
	s := r.search

	if _, ok := r.nexti[v]; !ok && r.endedFront[v] == s.frontSize[v] {
		r.pendingFront.del(v)
		r.nexti[v] = k + 1
	}

	if _, ok := r.nextj[v]; !ok && r.endedBack[v] == s.size[v]-s.frontSize[v] {
		r.pendingBack.del(v)
		r.nextj[v] = k + 1
	}

	if r.endedFront[v]+r.endedBack[v]+1 == s.size[v] {
		r.front.markPopable(v)
		r.back.markPopable(v)
	}
}

func (r *dequeRound) schedulePushes(side *sideState, ended map[int]int, k int) {
	for _, v := range side.pushes.sorted() {
		ended[v]++
		r.front.markPeekable(v)
		r.back.markPeekable(v)
		r.settle(v, k)
	}

	clear(side.pushes)
}

func (r *dequeRound) schedulePeeks(side *sideState, ended map[int]int, k int) {
	for _, v := range side.peekableNow.sorted() {
		ended[v] += len(side.peeks[v])
		delete(side.peeks, v)
		r.settle(v, k)
	}

	clear(side.peekableNow)
}

// schedulePops retires every poppable value on the side and reports whether
// the state after one of them is feasible.
func (r *dequeRound) schedulePops(side *sideState, ended map[int]int, k int) bool {
	for _, v := range side.popableNow.sorted() {
		ended[v]++
		side.pops.del(v)
		r.settle(v, k)

		if r.invalid.has(v) {
			continue
		}

		ni, okI := r.nexti[v]
		nj, okJ := r.nextj[v]

		if okI && okJ && r.search.search(ni, nj) {
			return true
		}
	}

	clear(side.popableNow)

	return false
}
