// Package segtree implements a range-add segment tree over a fixed index
// domain [0, size) with lazy propagation.
//
// Range updates and point reads are O(log size); the global minimum and the
// leftmost position attaining it are read from the root in O(1).
package segtree

type node struct {
	min    int
	pos    int
	weight int
}

// Tree is an array-backed segment tree. The root lives at index 1 and the
// children of v at 2v and 2v+1; for odd ranges the middle belongs to the
// left child.
type Tree struct {
	nodes []node
	size  int
}

// New builds a tree with every position set to zero. Sizes below one are
// raised to one.
func New(size int) *Tree {
	size = max(size, 1)

	t := &Tree{nodes: make([]node, 4*size), size: size}
	t.build(1, 0, size-1)

	return t
}

// Size returns the number of positions.
func (t *Tree) Size() int {
	return t.size
}

// UpdateRange adds delta to every position in [l, r]. Empty ranges (l > r)
// are ignored.
func (t *Tree) UpdateRange(l, r, delta int) {
	l, r = max(l, 0), min(r, t.size-1)
	t.update(1, 0, t.size-1, l, r, delta)
}

// Min returns the minimum value over the whole domain and the leftmost
// position holding it.
func (t *Tree) Min() (value, pos int) {
	return t.nodes[1].min, t.nodes[1].pos
}

// Value returns the accumulated value at pos.
func (t *Tree) Value(pos int) int {
	v, tl, tr := 1, 0, t.size-1
	sum := 0

	for {
		sum += t.nodes[v].weight
		if tl == tr {
			return sum
		}

		tm := (tl + tr) / 2
		if pos <= tm {
			v, tr = 2*v, tm
		} else {
			v, tl = 2*v+1, tm+1
		}
	}
}

func (t *Tree) build(v, tl, tr int) {
	t.nodes[v] = node{pos: tl}
	if tl == tr {
		return
	}

	tm := (tl + tr) / 2
	t.build(2*v, tl, tm)
	t.build(2*v+1, tm+1, tr)
}

func (t *Tree) apply(v, delta int) {
	t.nodes[v].min += delta
	t.nodes[v].weight += delta
}

func (t *Tree) push(v int) {
	if w := t.nodes[v].weight; w != 0 {
		t.apply(2*v, w)
		t.apply(2*v+1, w)
		t.nodes[v].weight = 0
	}
}

func (t *Tree) pull(v int) {
	a, b := t.nodes[2*v], t.nodes[2*v+1]
	if a.min <= b.min {
		t.nodes[v].min, t.nodes[v].pos = a.min, a.pos
	} else {
		t.nodes[v].min, t.nodes[v].pos = b.min, b.pos
	}
}

func (t *Tree) update(v, tl, tr, l, r, delta int) {
	if l > r {
		return
	}

	if l == tl && r == tr {
		t.apply(v, delta)

		return
	}

	t.push(v)

	tm := (tl + tr) / 2
	t.update(2*v, tl, tm, l, min(r, tm), delta)
	t.update(2*v+1, tm+1, tr, max(l, tm+1), r, delta)
	t.pull(v)
}
