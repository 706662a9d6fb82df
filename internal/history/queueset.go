package history

// opQueue is a FIFO of operations that also supports removal by ID.
// Removed entries stay in the order slice and are skipped lazily.
type opQueue struct {
	order []ID
	live  map[ID]Operation
	head  int
}

func newOpQueue() *opQueue {
	return &opQueue{live: make(map[ID]Operation)}
}

func (q *opQueue) push(o Operation) {
	q.order = append(q.order, o.ID)
	q.live[o.ID] = o
}

func (q *opQueue) empty() bool {
	return len(q.live) == 0
}

func (q *opQueue) contains(id ID) bool {
	_, ok := q.live[id]

	return ok
}

func (q *opQueue) remove(id ID) (Operation, bool) {
	o, ok := q.live[id]
	if ok {
		delete(q.live, id)
	}

	return o, ok
}

func (q *opQueue) pop() (Operation, bool) {
	for q.head < len(q.order) {
		id := q.order[q.head]
		q.head++

		if o, ok := q.remove(id); ok {
			return o, true
		}
	}

	return Operation{}, false
}

// each calls fn on every live operation in FIFO order and stores the
// possibly modified operation back.
func (q *opQueue) each(fn func(*Operation)) {
	for _, id := range q.order[q.head:] {
		o, ok := q.live[id]
		if !ok {
			continue
		}

		fn(&o)
		q.live[id] = o
	}
}

// opQueues keys an opQueue per value.
type opQueues map[int]*opQueue

func (qs opQueues) get(value int) *opQueue {
	q, ok := qs[value]
	if !ok {
		q = newOpQueue()
		qs[value] = q
	}

	return q
}
