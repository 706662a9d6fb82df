package history

import (
	"errors"
	"fmt"
	"math/bits"
)

// Method identifies the container operation an Operation performed.
type Method uint8

// Container methods.
const (
	Push Method = iota
	Pop
	Peek
	Enqueue
	Dequeue
	PushFront
	PopFront
	PeekFront
	PushBack
	PopBack
	PeekBack
	Insert
	Poll
	Contains
	Remove

	methodCount
)

// ErrUnknownMethod is returned by ParseMethod for an unrecognised token.
var ErrUnknownMethod = errors.New("unknown method")

var methodNames = [methodCount]string{
	Push:      "push",
	Pop:       "pop",
	Peek:      "peek",
	Enqueue:   "enqueue",
	Dequeue:   "dequeue",
	PushFront: "push_front",
	PopFront:  "pop_front",
	PeekFront: "peek_front",
	PushBack:  "push_back",
	PopBack:   "pop_back",
	PeekBack:  "peek_back",
	Insert:    "insert",
	Poll:      "poll",
	Contains:  "contains",
	Remove:    "remove",
}

var methodAliases = map[string]Method{
	"enq": Enqueue,
	"deq": Dequeue,
}

// String returns the trace token of the method.
func (m Method) String() string {
	if m < methodCount {
		return methodNames[m]
	}

	return fmt.Sprintf("method(%d)", uint8(m))
}

// ParseMethod maps a trace token to a Method. The short queue tokens "enq"
// and "deq" are accepted as aliases.
func ParseMethod(token string) (Method, error) {
	for m, name := range methodNames {
		if name == token {
			return Method(m), nil
		}
	}

	if m, ok := methodAliases[token]; ok {
		return m, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, token)
}

// MethodSet is a small bit set of methods.
type MethodSet uint32

// NewMethodSet returns the set holding ms.
func NewMethodSet(ms ...Method) MethodSet {
	var s MethodSet
	for _, m := range ms {
		s |= 1 << m
	}

	return s
}

// Has reports whether m is in the set.
func (s MethodSet) Has(m Method) bool {
	return s&(1<<m) != 0
}

// First returns the lowest-numbered method in the set.
func (s MethodSet) First() Method {
	return Method(bits.TrailingZeros32(uint32(s)))
}
