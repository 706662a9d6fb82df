package verifier

import (
	"testing"

	"github.com/anishathalye/porcupine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lincheck/internal/checker"
	"lincheck/internal/histgen"
	"lincheck/internal/history"
)

const modelOps = 40

func porcupineAccepts(t *testing.T, kind checker.Kind, h *history.History) bool {
	t.Helper()

	model, err := createModel(kind)
	require.NoError(t, err)

	return porcupine.CheckOperations(model, toPorcupineOperations(h))
}

func TestModel_AcceptsGeneratedHistories(t *testing.T) {
	t.Parallel()

	for _, kind := range checker.Kinds() {
		for seed := range uint64(3) {
			h, err := histgen.Generate(histgen.Config{Kind: kind, Ops: modelOps, Seed: seed, MaxRadius: 8, MaxSize: 6})
			require.NoError(t, err)

			assert.True(t, porcupineAccepts(t, kind, h), "%s seed %d", kind, seed)
		}
	}
}

func TestModel_RejectsViolations(t *testing.T) {
	t.Parallel()

	for _, kind := range checker.Kinds() {
		h, err := histgen.Generate(histgen.Config{Kind: kind, Ops: 10, Seed: 1, MaxRadius: -1, NonLinearizable: true})
		require.NoError(t, err)

		assert.False(t, porcupineAccepts(t, kind, h), kind.String())
	}
}

func TestModel_AgreesWithChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind checker.Kind
		ops  []history.Operation
	}{
		{
			name: "stack overlapping pops",
			kind: checker.Stack,
			ops: []history.Operation{
				{Method: history.Push, Value: 1, Start: 0, End: 10, Success: true},
				{Method: history.Push, Value: 2, Start: 5, End: 15, Success: true},
				{Method: history.Pop, Value: 2, Start: 20, End: 30, Success: true},
				{Method: history.Pop, Value: 1, Start: 25, End: 35, Success: true},
			},
		},
		{
			name: "queue swapped dequeues",
			kind: checker.Queue,
			ops: []history.Operation{
				{Method: history.Enqueue, Value: 1, Start: 0, End: 1, Success: true},
				{Method: history.Enqueue, Value: 2, Start: 2, End: 3, Success: true},
				{Method: history.Dequeue, Value: 2, Start: 4, End: 5, Success: true},
				{Method: history.Dequeue, Value: 1, Start: 6, End: 7, Success: true},
			},
		},
		{
			name: "response and invocation at the same instant",
			kind: checker.Queue,
			ops: []history.Operation{
				{Method: history.Enqueue, Value: 1, Start: 0, End: 5, Success: true},
				{Method: history.Enqueue, Value: 2, Start: 5, End: 9, Success: true},
				{Method: history.Dequeue, Value: 2, Start: 10, End: 11, Success: true},
			},
		},
		{
			name: "pqueue polls the maximum",
			kind: checker.PriorityQueue,
			ops: []history.Operation{
				{Method: history.Insert, Value: 1, Start: 0, End: 1, Success: true},
				{Method: history.Insert, Value: 2, Start: 2, End: 3, Success: true},
				{Method: history.Poll, Value: 2, Start: 4, End: 5, Success: true},
				{Method: history.Poll, Value: 1, Start: 6, End: 7, Success: true},
			},
		},
		{
			name: "deque back order violated",
			kind: checker.Deque,
			ops: []history.Operation{
				{Method: history.PushFront, Value: 1, Start: 0, End: 10, Success: true},
				{Method: history.PushFront, Value: 2, Start: 20, End: 30, Success: true},
				{Method: history.PopBack, Value: 2, Start: 40, End: 50, Success: true},
				{Method: history.PopBack, Value: 1, Start: 60, End: 70, Success: true},
			},
		},
		{
			name: "set failed insert of a present value",
			kind: checker.Set,
			ops: []history.Operation{
				{Method: history.Insert, Value: 1, Start: 0, End: 1, Success: true},
				{Method: history.Insert, Value: 1, Start: 2, End: 3, Success: false},
				{Method: history.Remove, Value: 1, Start: 4, End: 5, Success: true},
				{Method: history.Contains, Value: 1, Start: 6, End: 7, Success: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := history.New(tt.ops...)
			assert.Equal(t, checker.Linearizable(tt.kind, h), porcupineAccepts(t, tt.kind, h))
		})
	}
}

// An empty pop after the last non-empty response overlaps the synthetic pop
// of the values still present, so the checker accepts it while the
// sequential model, which never removes them, does not.
func TestModel_EmptyPopAfterLastResponse(t *testing.T) {
	t.Parallel()

	h := history.New(
		history.Operation{Method: history.Push, Value: 1, Start: 0, End: 1, Success: true},
		history.Operation{Method: history.Pop, Value: history.EmptyValue, Start: 2, End: 3, Success: true},
	)

	assert.True(t, checker.Linearizable(checker.Stack, h))
	assert.False(t, porcupineAccepts(t, checker.Stack, h))
}

func TestCreateModel_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := createModel(checker.Kind(99))
	require.ErrorIs(t, err, checker.ErrUnknownKind)
}

func TestToPorcupineOperations(t *testing.T) {
	t.Parallel()

	h := history.New()
	h.Add(history.Push, 1, 0, 5)
	h.Add(history.Pop, 1, 5, 9)
	h.Add(history.Push, 2, 3, 3)

	ops := toPorcupineOperations(h)
	require.Len(t, ops, 3)

	assert.Equal(t, int64(1), ops[0].Call)
	assert.Equal(t, int64(10), ops[0].Return)

	// zero-length operation keeps call before return
	assert.Equal(t, int64(7), ops[1].Call)
	assert.Equal(t, int64(8), ops[1].Return)

	assert.Equal(t, int64(11), ops[2].Call)
	assert.Less(t, ops[0].Return, ops[2].Call)

	assert.Equal(t, 0, ops[0].ClientId)
	assert.Equal(t, 1, ops[1].ClientId)
	assert.Equal(t, 0, ops[2].ClientId)
}

func TestPartitionByValue(t *testing.T) {
	t.Parallel()

	h := history.New()
	h.AddResult(history.Insert, 1, true, 0, 1)
	h.AddResult(history.Insert, 2, true, 0, 1)
	h.AddResult(history.Remove, 1, true, 2, 3)

	parts := partitionByValue(toPorcupineOperations(h))
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[1], 1)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pop(empty)", describeOperation(call{Method: history.Pop, Value: history.EmptyValue, Success: true}, nil))
	assert.Equal(t, "remove(4) -> false", describeOperation(call{Method: history.Remove, Value: 4}, nil))
	assert.Equal(t, "[1, 2]", describeSequence(sequence{1, 2}))
	assert.Equal(t, "[]", describeSequence(sequence(nil)))
}
