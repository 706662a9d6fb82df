// Package intervaltree provides a height-balanced (AVL) interval tree keyed by
// interval start. Every node caches the largest end in its subtree so point
// queries can skip subtrees that end before the point.
//
// Nodes live in an arena slice and refer to each other by index; removed
// slots are recycled through a free list.
package intervaltree

import "math"

// Interval is a closed time range [Start, End].
type Interval struct {
	Start int
	End   int
}

// Contains reports whether point lies inside the interval.
func (iv Interval) Contains(point int) bool {
	return iv.Start <= point && point <= iv.End
}

const nilNode = -1

type node struct {
	iv     Interval
	maxEnd int
	height int
	left   int
	right  int
}

// Tree is an AVL interval tree. Starts of stored intervals must be unique.
// The zero value is not usable; call New.
type Tree struct {
	nodes []node
	free  []int
	root  int
	size  int
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{root: nilNode}
}

// Len returns the number of stored intervals.
func (t *Tree) Len() int {
	return t.size
}

// Empty reports whether the tree holds no intervals.
func (t *Tree) Empty() bool {
	return t.root == nilNode
}

// Insert adds iv. Its start must not already be present.
func (t *Tree) Insert(iv Interval) {
	t.root = t.insert(t.root, iv)
	t.size++
}

// Remove deletes the interval starting at iv.Start. The interval must be
// present; removing an absent interval leaves the tree unchanged.
func (t *Tree) Remove(iv Interval) {
	var removed bool

	t.root = t.remove(t.root, iv.Start, &removed)
	if removed {
		t.size--
	}
}

// Query returns every stored interval covering point, in no particular order.
func (t *Tree) Query(point int) []Interval {
	var result []Interval

	t.query(t.root, point, &result)

	return result
}

func (t *Tree) alloc(iv Interval) int {
	n := node{iv: iv, maxEnd: iv.End, height: 1, left: nilNode, right: nilNode}

	if k := len(t.free); k > 0 {
		idx := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[idx] = n

		return idx
	}

	t.nodes = append(t.nodes, n)

	return len(t.nodes) - 1
}

func (t *Tree) release(idx int) {
	t.free = append(t.free, idx)
}

func (t *Tree) height(idx int) int {
	if idx == nilNode {
		return 0
	}

	return t.nodes[idx].height
}

func (t *Tree) maxEnd(idx int) int {
	if idx == nilNode {
		return math.MinInt
	}

	return t.nodes[idx].maxEnd
}

func (t *Tree) balance(idx int) int {
	if idx == nilNode {
		return 0
	}

	return t.height(t.nodes[idx].left) - t.height(t.nodes[idx].right)
}

// refresh re-derives height and maxEnd of idx from its children.
func (t *Tree) refresh(idx int) {
	n := &t.nodes[idx]
	n.height = max(t.height(n.left), t.height(n.right)) + 1
	n.maxEnd = max(n.iv.End, t.maxEnd(n.left), t.maxEnd(n.right))
}

func (t *Tree) rotateRight(y int) int {
	x := t.nodes[y].left
	t.nodes[y].left = t.nodes[x].right
	t.nodes[x].right = y

	t.refresh(y)
	t.refresh(x)

	return x
}

func (t *Tree) rotateLeft(x int) int {
	y := t.nodes[x].right
	t.nodes[x].right = t.nodes[y].left
	t.nodes[y].left = x

	t.refresh(x)
	t.refresh(y)

	return y
}

func (t *Tree) rebalance(idx int) int {
	t.refresh(idx)

	switch b := t.balance(idx); {
	case b >= 2:
		if t.balance(t.nodes[idx].left) < 0 {
			t.nodes[idx].left = t.rotateLeft(t.nodes[idx].left)
		}

		return t.rotateRight(idx)
	case b <= -2:
		if t.balance(t.nodes[idx].right) > 0 {
			t.nodes[idx].right = t.rotateRight(t.nodes[idx].right)
		}

		return t.rotateLeft(idx)
	}

	return idx
}

func (t *Tree) insert(idx int, iv Interval) int {
	if idx == nilNode {
		return t.alloc(iv)
	}

	if iv.Start < t.nodes[idx].iv.Start {
		left := t.insert(t.nodes[idx].left, iv)
		t.nodes[idx].left = left
	} else {
		right := t.insert(t.nodes[idx].right, iv)
		t.nodes[idx].right = right
	}

	return t.rebalance(idx)
}

func (t *Tree) remove(idx, start int, removed *bool) int {
	if idx == nilNode {
		return nilNode
	}

	switch cur := t.nodes[idx].iv.Start; {
	case start < cur:
		left := t.remove(t.nodes[idx].left, start, removed)
		t.nodes[idx].left = left
	case start > cur:
		right := t.remove(t.nodes[idx].right, start, removed)
		t.nodes[idx].right = right
	default:
		left, right := t.nodes[idx].left, t.nodes[idx].right
		if left == nilNode || right == nilNode {
			*removed = true

			t.release(idx)

			if left != nilNode {
				return left
			}

			return right
		}

		// Two children: take over the in-order successor's interval and
		// delete the successor from the right subtree instead.
		succ := right
		for t.nodes[succ].left != nilNode {
			succ = t.nodes[succ].left
		}

		t.nodes[idx].iv = t.nodes[succ].iv
		right = t.remove(right, t.nodes[succ].iv.Start, removed)
		t.nodes[idx].right = right
	}

	return t.rebalance(idx)
}

func (t *Tree) query(idx, point int, result *[]Interval) {
	if idx == nilNode {
		return
	}

	n := t.nodes[idx]
	if n.iv.Contains(point) {
		*result = append(*result, n.iv)
	}

	if n.left != nilNode && t.nodes[n.left].maxEnd >= point {
		t.query(n.left, point, result)
	}

	if n.right != nilNode && n.iv.Start <= point {
		t.query(n.right, point, result)
	}
}
