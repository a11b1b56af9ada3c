// Package kernel provides the discrete-event simulation kernel the
// Controller is driven by. Per spec.md §1/§5, the "real" kernel (monotonic
// simulated time, zero-duration callbacks, delayed event notifications) is
// an external collaborator the core only depends on through an interface;
// this package supplies that interface plus a minimal reference
// implementation so the core is runnable end to end, following the design
// note in spec.md §9 ("Make this a first-class Kernel trait consumed by
// Controller").
package kernel

import (
	"container/heap"
	"time"
)

// Callback is invoked when its scheduled event fires. It receives the
// current simulated time.
type Callback func(now time.Duration)

// Kernel is the interface the Controller and every sub-component consume.
// It never runs two callbacks concurrently and never advances time except
// by processing the next scheduled event (spec.md §5: single-threaded
// cooperative scheduling).
type Kernel interface {
	// Now returns the current simulated time.
	Now() time.Duration
	// ScheduleAt registers cb to run when simulated time reaches at. If at
	// is not in the future, cb still runs on the next Step/Run call, never
	// synchronously inside ScheduleAt itself.
	ScheduleAt(at time.Duration, cb Callback)
	// ScheduleAfter is sugar for ScheduleAt(Now()+d, cb).
	ScheduleAfter(d time.Duration, cb Callback)
	// Step processes exactly the earliest pending event (and any other
	// events at the same timestamp), advancing Now() to that timestamp. It
	// reports whether any event was processed.
	Step() bool
	// Run drains events until the queue is empty or stop returns true,
	// checked after each timestamp's batch of events.
	Run(stop func() bool)
}

type event struct {
	at  time.Duration
	seq uint64 // breaks ties in FIFO order among same-timestamp events
	cb  Callback
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PEQ (Payload-Event-Queue, named after the source's term for the same
// structure per spec.md §9) is the reference Kernel: a priority queue of
// (time, callback) pairs ordered by time then arrival sequence.
type PEQ struct {
	now    time.Duration
	events eventHeap
	seq    uint64
}

// New returns a PEQ starting at simulated time zero.
func New() *PEQ {
	p := &PEQ{}
	heap.Init(&p.events)
	return p
}

func (p *PEQ) Now() time.Duration { return p.now }

func (p *PEQ) ScheduleAt(at time.Duration, cb Callback) {
	p.seq++
	heap.Push(&p.events, &event{at: at, seq: p.seq, cb: cb})
}

func (p *PEQ) ScheduleAfter(d time.Duration, cb Callback) {
	p.ScheduleAt(p.now+d, cb)
}

// Step advances to the earliest pending timestamp and runs every callback
// registered for it (and any callback those callbacks schedule for the
// same timestamp), so a cycle's worth of causally-chained events all
// observe the same Now().
func (p *PEQ) Step() bool {
	if p.events.Len() == 0 {
		return false
	}
	next := p.events[0].at
	if next > p.now {
		p.now = next
	}
	for p.events.Len() > 0 && p.events[0].at <= p.now {
		ev := heap.Pop(&p.events).(*event)
		ev.cb(p.now)
	}
	return true
}

// Run drains events until the queue empties or stop() returns true.
func (p *PEQ) Run(stop func() bool) {
	for p.Step() {
		if stop != nil && stop() {
			return
		}
	}
}

// Pending reports how many events are still queued, for tests.
func (p *PEQ) Pending() int { return p.events.Len() }
