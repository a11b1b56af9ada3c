package initiator

import (
	"time"

	"github.com/dramsim/dramsim/internal/trace"
)

// Player replays a parsed trace (spec.md §6.2) as a sequence of Requests.
// Entries already carry absolute cycle numbers (trace.Parse folds .rstl's
// relative encoding in); Player converts the gap between consecutive
// entries' cycles into a simulated-time trigger using the device's tCK.
type Player struct {
	tck           time.Duration
	entries       []trace.Entry
	idx           int
	consumedCycle uint64
}

// NewPlayer constructs a Player over entries, timed against tck.
func NewPlayer(entries []trace.Entry, tck time.Duration) *Player {
	return &Player{tck: tck, entries: entries}
}

// NextTrigger reports the simulated time to wait before the next
// NextRequest call's result becomes issuable: the gap, in device cycles,
// between the next entry and the last one consumed.
func (p *Player) NextTrigger() time.Duration {
	if p.idx >= len(p.entries) {
		return 0
	}
	delta := p.entries[p.idx].Cycle - p.consumedCycle
	return time.Duration(delta) * p.tck
}

// NextRequest returns the next trace entry as a Request, or Stop once the
// trace is exhausted.
func (p *Player) NextRequest() Request {
	if p.idx >= len(p.entries) {
		return Request{Kind: KindStop}
	}
	e := p.entries[p.idx]
	p.consumedCycle = e.Cycle
	p.idx++

	switch e.Command {
	case trace.Write:
		return Request{Kind: KindWrite, Addr: e.Address, Len: e.BurstBytes, Data: e.Data}
	default:
		return Request{Kind: KindRead, Addr: e.Address, Len: e.BurstBytes}
	}
}

// TotalRequests is exact for a Player: the trace's entry count.
func (p *Player) TotalRequests() uint64 { return uint64(len(p.entries)) }
