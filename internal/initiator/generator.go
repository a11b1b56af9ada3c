package initiator

import "time"

// GeneratorStub is a synthetic Initiator: a fixed-interval, fixed-stride
// stream of reads with an optional periodic write, used to exercise the
// Controller's maxPendingReadRequests/maxPendingWriteRequests backpressure
// (spec.md §6.3) without needing a trace file. It is not one of the
// tracesetup Generator/GeneratorStateMachine/Hammer kinds' full behavior —
// those are external collaborators spec.md leaves unspecified beyond their
// name — it is the minimal stand-in this repository's tests drive instead.
type GeneratorStub struct {
	interval   time.Duration
	burstBytes uint
	// writeEvery, if non-zero, makes every writeEvery'th request a write;
	// 0 means read-only.
	writeEvery uint
	total      uint64

	issued   uint64
	nextAddr uint64
}

// NewGeneratorStub constructs a GeneratorStub issuing total requests,
// interval apart, addrStart-based and striding by burstBytes, with every
// writeEvery'th request a write (0 disables writes).
func NewGeneratorStub(total uint64, interval time.Duration, addrStart uint64, burstBytes uint, writeEvery uint) *GeneratorStub {
	return &GeneratorStub{
		interval:   interval,
		burstBytes: burstBytes,
		writeEvery: writeEvery,
		total:      total,
		nextAddr:   addrStart,
	}
}

func (g *GeneratorStub) NextTrigger() time.Duration {
	if g.issued >= g.total {
		return 0
	}
	return g.interval
}

func (g *GeneratorStub) NextRequest() Request {
	if g.issued >= g.total {
		return Request{Kind: KindStop}
	}
	addr := g.nextAddr
	g.nextAddr += uint64(g.burstBytes)
	g.issued++

	if g.writeEvery != 0 && g.issued%uint64(g.writeEvery) == 0 {
		return Request{Kind: KindWrite, Addr: addr, Len: g.burstBytes, Data: make([]byte, g.burstBytes)}
	}
	return Request{Kind: KindRead, Addr: addr, Len: g.burstBytes}
}

// TotalRequests is exact for a GeneratorStub.
func (g *GeneratorStub) TotalRequests() uint64 { return g.total }
