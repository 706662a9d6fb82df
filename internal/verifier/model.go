package verifier

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/anishathalye/porcupine"

	"lincheck/internal/checker"
	"lincheck/internal/history"
)

// call is the porcupine input of one recorded operation. The observed value
// travels with the input, so outputs are unused.
type call struct {
	Method  history.Method
	Value   int
	Success bool
}

// sequence is an immutable container state; every step returns a copy.
type sequence []int

// createModel creates a Porcupine model for a container kind
func createModel(kind checker.Kind) (porcupine.Model, error) {
	var step func(sequence, call) (bool, sequence)

	switch kind {
	case checker.Stack:
		step = stepStack
	case checker.Queue:
		step = stepQueue
	case checker.PriorityQueue:
		step = stepPriorityQueue
	case checker.Deque:
		step = stepDeque
	case checker.Set:
		return createSetModel(), nil
	default:
		return porcupine.Model{}, fmt.Errorf("%w: %d", checker.ErrUnknownKind, uint8(kind))
	}

	return porcupine.Model{
		Init: func() interface{} {
			return sequence(nil)
		},
		Step: func(state, input, output interface{}) (bool, interface{}) {
			c := input.(call)
			if !c.Success {
				return true, state
			}
			ok, next := step(state.(sequence), c)
			return ok, next
		},
		Equal: func(a, b interface{}) bool {
			return slices.Equal(a.(sequence), b.(sequence))
		},
		DescribeOperation: describeOperation,
		DescribeState:     describeSequence,
	}, nil
}

// observe checks an observation of v against the element the container
// would hand out, or against emptiness for an empty observation.
func observe(s sequence, idx int, v int) bool {
	if v == history.EmptyValue {
		return len(s) == 0
	}

	return len(s) > 0 && s[idx] == v
}

func stepStack(s sequence, c call) (bool, sequence) {
	top := len(s) - 1

	switch c.Method {
	case history.Push:
		return true, append(slices.Clip(s), c.Value)
	case history.Pop:
		if !observe(s, top, c.Value) {
			return false, s
		}
		if c.Value == history.EmptyValue {
			return true, s
		}
		return true, s[:top]
	case history.Peek:
		return observe(s, top, c.Value), s
	default:
		return false, s
	}
}

func stepQueue(s sequence, c call) (bool, sequence) {
	switch c.Method {
	case history.Enqueue:
		return true, append(slices.Clip(s), c.Value)
	case history.Dequeue:
		if !observe(s, 0, c.Value) {
			return false, s
		}
		if c.Value == history.EmptyValue {
			return true, s
		}
		return true, s[1:]
	case history.Peek:
		return observe(s, 0, c.Value), s
	default:
		return false, s
	}
}

// stepPriorityQueue keeps s sorted ascending so the maximum is last.
func stepPriorityQueue(s sequence, c call) (bool, sequence) {
	top := len(s) - 1

	switch c.Method {
	case history.Insert:
		i, _ := slices.BinarySearch(s, c.Value)
		return true, slices.Insert(slices.Clone(s), i, c.Value)
	case history.Poll:
		if !observe(s, top, c.Value) {
			return false, s
		}
		if c.Value == history.EmptyValue {
			return true, s
		}
		return true, s[:top]
	case history.Peek:
		return observe(s, top, c.Value), s
	default:
		return false, s
	}
}

// stepDeque keeps the front of the deque at index 0.
func stepDeque(s sequence, c call) (bool, sequence) {
	back := len(s) - 1

	switch c.Method {
	case history.PushFront:
		return true, append(sequence{c.Value}, s...)
	case history.PushBack:
		return true, append(slices.Clip(s), c.Value)
	case history.PopFront:
		if !observe(s, 0, c.Value) {
			return false, s
		}
		if c.Value == history.EmptyValue {
			return true, s
		}
		return true, s[1:]
	case history.PopBack:
		if !observe(s, back, c.Value) {
			return false, s
		}
		if c.Value == history.EmptyValue {
			return true, s
		}
		return true, s[:back]
	case history.PeekFront:
		return observe(s, 0, c.Value), s
	case history.PeekBack:
		return observe(s, back, c.Value), s
	default:
		return false, s
	}
}

// createSetModel tracks the membership of a single value; histories are
// partitioned by value.
func createSetModel() porcupine.Model {
	return porcupine.Model{
		Init: func() interface{} {
			return false
		},
		Step: func(state, input, output interface{}) (bool, interface{}) {
			present := state.(bool)
			c := input.(call)

			switch c.Method {
			case history.Insert:
				if c.Success {
					return !present, true
				}
				return present, present
			case history.Remove:
				if c.Success {
					return present, false
				}
				return !present, present
			case history.Contains:
				return c.Success == present, present
			default:
				return false, present
			}
		},
		DescribeOperation: describeOperation,
		DescribeState: func(state interface{}) string {
			if state.(bool) {
				return "{present}"
			}
			return "{}"
		},
		Partition: partitionByValue,
	}
}

func describeOperation(input, output interface{}) string {
	c := input.(call)

	arg := "empty"
	if c.Value != history.EmptyValue {
		arg = strconv.Itoa(c.Value)
	}

	if !c.Success {
		return fmt.Sprintf("%s(%s) -> false", c.Method, arg)
	}

	return fmt.Sprintf("%s(%s)", c.Method, arg)
}

func describeSequence(state interface{}) string {
	s := state.(sequence)
	if len(s) == 0 {
		return "[]"
	}

	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

func partitionByValue(ops []porcupine.Operation) [][]porcupine.Operation {
	partitions := make(map[int][]porcupine.Operation)

	var order []int
	for _, op := range ops {
		v := op.Input.(call).Value
		if _, ok := partitions[v]; !ok {
			order = append(order, v)
		}
		partitions[v] = append(partitions[v], op)
	}

	result := make([][]porcupine.Operation, 0, len(partitions))
	for _, v := range order {
		result = append(result, partitions[v])
	}

	return result
}

// toPorcupineOperations converts a history to porcupine operations. Times are
// doubled so that a response and an invocation at the same instant are
// strictly ordered, response first. Operations that never overlap share a
// client lane in the visualization.
func toPorcupineOperations(h *history.History) []porcupine.Operation {
	ops := make([]porcupine.Operation, 0, h.Len())
	for _, o := range h.Ops {
		start := 2*o.Start + 1
		ops = append(ops, porcupine.Operation{
			Input:  call{Method: o.Method, Value: o.Value, Success: o.Success},
			Call:   start,
			Return: max(2*o.End, start+1),
		})
	}

	slices.SortStableFunc(ops, func(a, b porcupine.Operation) int {
		return cmp.Compare(a.Call, b.Call)
	})

	var lanes []int64
	for i := range ops {
		lane := slices.IndexFunc(lanes, func(free int64) bool { return free < ops[i].Call })
		if lane < 0 {
			lane = len(lanes)
			lanes = append(lanes, 0)
		}

		lanes[lane] = ops[i].Return
		ops[i].ClientId = lane
	}

	return ops
}
