// Package checker decides distinct-value linearizability of container
// histories. Each container kind has its own polynomial algorithm; all of
// them share the normalization pipeline of the history package.
package checker

import (
	"errors"
	"fmt"
	"strings"

	"lincheck/internal/history"
)

var (
	// ErrInfeasible is returned when a checker exhausts every schedule.
	ErrInfeasible = errors.New("no linearization exists")
	// ErrUnknownKind is returned for a container kind with no checker.
	ErrUnknownKind = errors.New("unknown container kind")
)

// Kind names a container type.
type Kind uint8

// Supported container kinds.
const (
	Stack Kind = iota
	Queue
	PriorityQueue
	Deque
	Set
)

var kindNames = map[Kind]string{
	Stack:         "stack",
	Queue:         "queue",
	PriorityQueue: "pqueue",
	Deque:         "deque",
	Set:           "set",
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{Stack, Queue, PriorityQueue, Deque, Set}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a trace header name to a Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}

	if name == "priorityqueue" || name == "priority_queue" {
		return PriorityQueue, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// Pipeline returns the preprocessing pipeline configured for the kind.
func (k Kind) Pipeline() (history.Pipeline, error) {
	switch k {
	case Stack:
		return stackPipeline, nil
	case Queue:
		return queuePipeline, nil
	case PriorityQueue:
		return pqueuePipeline, nil
	case Deque:
		return dequePipeline, nil
	case Set:
		return setPipeline, nil
	default:
		return history.Pipeline{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
}

// Check decides whether h is linearizable for the given container kind. A nil
// error means it is; otherwise the error says why not. h is not modified.
func Check(kind Kind, h *history.History) error {
	work := h.Clone()

	switch kind {
	case Stack:
		return checkStack(work)
	case Queue:
		return checkQueue(work)
	case PriorityQueue:
		return checkPriorityQueue(work)
	case Deque:
		return checkDeque(work)
	case Set:
		return checkSet(work)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

// Linearizable reports whether h is linearizable for the given kind.
func Linearizable(kind Kind, h *history.History) bool {
	return Check(kind, h) == nil
}
