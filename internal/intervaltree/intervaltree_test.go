package intervaltree

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRandomOps    = 2000
	testRandomDomain = 500
	testMaxWidth     = 40
	testSeed         = 7
)

func sortIntervals(ivs []Interval) []Interval {
	out := slices.Clone(ivs)
	slices.SortFunc(out, func(a, b Interval) int { return a.Start - b.Start })

	return out
}

// checkInvariants walks the arena and verifies AVL balance, cached heights
// and cached max ends.
func checkInvariants(t *testing.T, tr *Tree, idx int) (height, maxEnd int) {
	t.Helper()

	if idx == nilNode {
		return 0, -1 << 62
	}

	n := tr.nodes[idx]
	lh, lm := checkInvariants(t, tr, n.left)
	rh, rm := checkInvariants(t, tr, n.right)

	require.LessOrEqual(t, lh-rh, 1)
	require.GreaterOrEqual(t, lh-rh, -1)
	require.Equal(t, max(lh, rh)+1, n.height)
	require.Equal(t, max(n.iv.End, lm, rm), n.maxEnd)

	if n.left != nilNode {
		require.Less(t, tr.nodes[n.left].iv.Start, n.iv.Start)
	}

	if n.right != nilNode {
		require.Greater(t, tr.nodes[n.right].iv.Start, n.iv.Start)
	}

	return n.height, n.maxEnd
}

func TestNew(t *testing.T) {
	t.Parallel()

	tr := New()
	assert.True(t, tr.Empty())
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Query(0))
}

func TestInsertQuery(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Insert(Interval{Start: 0, End: 10})
	tr.Insert(Interval{Start: 5, End: 15})
	tr.Insert(Interval{Start: 20, End: 30})

	assert.Equal(t, 3, tr.Len())
	assert.ElementsMatch(t, []Interval{{0, 10}, {5, 15}}, tr.Query(7))
	assert.ElementsMatch(t, []Interval{{0, 10}, {5, 15}}, tr.Query(10))
	assert.ElementsMatch(t, []Interval{{20, 30}}, tr.Query(20))
	assert.Empty(t, tr.Query(17))
	assert.Empty(t, tr.Query(31))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	tr := New()
	for i := range 10 {
		tr.Insert(Interval{Start: i * 2, End: i*2 + 5})
	}

	tr.Remove(Interval{Start: 4, End: 9})
	tr.Remove(Interval{Start: 0, End: 5})
	assert.Equal(t, 8, tr.Len())
	assert.ElementsMatch(t, []Interval{{2, 7}, {6, 11}}, tr.Query(6))

	// Removing an absent start is a no-op.
	tr.Remove(Interval{Start: 1, End: 3})
	assert.Equal(t, 8, tr.Len())

	for i := range 10 {
		tr.Remove(Interval{Start: i * 2, End: i*2 + 5})
	}

	assert.True(t, tr.Empty())
	assert.Equal(t, 0, tr.Len())
}

func TestRemove_TwoChildrenReusesArena(t *testing.T) {
	t.Parallel()

	tr := New()
	for _, s := range []int{50, 25, 75, 10, 30, 60, 90} {
		tr.Insert(Interval{Start: s, End: s + 100})
	}

	tr.Remove(Interval{Start: 50})
	checkInvariants(t, tr, tr.root)

	arena := len(tr.nodes)
	tr.Insert(Interval{Start: 55, End: 56})
	assert.Len(t, tr.nodes, arena, "freed slot must be recycled")
	assert.ElementsMatch(t, []Interval{{55, 56}, {25, 125}, {10, 110}, {30, 130}}, tr.Query(55))
}

// TestRandomAgainstBruteForce checks that after any interleaving of inserts
// and removes, Query(p) returns exactly the stored intervals covering p.
func TestRandomAgainstBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(testSeed, testSeed))
	tr := New()
	stored := map[int]Interval{}

	for range testRandomOps {
		start := rng.IntN(testRandomDomain)
		if iv, ok := stored[start]; ok && rng.IntN(2) == 0 {
			tr.Remove(iv)
			delete(stored, start)
		} else if !ok {
			iv := Interval{Start: start, End: start + rng.IntN(testMaxWidth)}
			tr.Insert(iv)
			stored[start] = iv
		}

		point := rng.IntN(testRandomDomain + testMaxWidth)

		var want []Interval
		for _, iv := range stored {
			if iv.Start <= point && point <= iv.End {
				want = append(want, iv)
			}
		}

		require.Equal(t, sortIntervals(want), sortIntervals(tr.Query(point)))
		require.Equal(t, len(stored), tr.Len())
	}

	checkInvariants(t, tr, tr.root)
}
