// Package respqueue implements the ResponseQueue of spec.md §4.7: holds
// payloads whose data window has completed and which have not yet been
// returned to the initiator.
package respqueue

import (
	"github.com/dramsim/dramsim/internal/payload"
)

// Variant enumerates the RespQueue enum of spec.md §6.1's mcconfig.
type Variant int

const (
	Fifo Variant = iota
	Reorder
)

// Queue holds completed payloads pending return to the initiator.
type Queue struct {
	variant Variant
	items   []*payload.Payload
}

// New constructs a Queue of the given variant.
func New(variant Variant) *Queue {
	return &Queue{variant: variant}
}

// Push enqueues p once its data window has completed.
func (q *Queue) Push(p *payload.Payload) {
	q.items = append(q.items, p)
}

// Pop returns the next payload to deliver to the initiator, or nil if the
// queue is empty. ready, when non-nil, reports whether a specific pending
// payload may be delivered yet (used by Reorder to let the initiator pick
// one out of completion order); Fifo ignores ready and always returns the
// head.
func (q *Queue) Pop(ready func(p *payload.Payload) bool) *payload.Payload {
	if len(q.items) == 0 {
		return nil
	}
	if q.variant == Fifo || ready == nil {
		return q.removeAt(0)
	}
	for i, p := range q.items {
		if ready(p) {
			return q.removeAt(i)
		}
	}
	return nil
}

func (q *Queue) removeAt(i int) *payload.Payload {
	p := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return p
}

// Len reports how many completed payloads are awaiting delivery.
func (q *Queue) Len() int { return len(q.items) }
