package bankmachine

import (
	"testing"
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/payload"
)

// fakeSched is a minimal RowHitSource stub for testing BankMachine in
// isolation from the real scheduler package.
type fakeSched struct {
	queue        []*payload.Payload
	furtherHit   bool
	furtherReq   bool
}

func (f *fakeSched) HasFurtherRowHit(bank payload.Bank, row uint64, exclude *payload.Payload) bool {
	return f.furtherHit
}
func (f *fakeSched) HasFurtherRequest(bank payload.Bank) bool { return f.furtherReq }
func (f *fakeSched) GetNext(bank payload.Bank, rowOpen bool, openRow uint64, lastIssued command.Command) *payload.Payload {
	if len(f.queue) == 0 {
		return nil
	}
	return f.queue[0]
}

func testSpec() *memspec.MemSpec {
	return memspec.New("test", memspec.DDR4, memspec.Topology{BurstLength: 8, DataRate: 2}, memspec.Timing{
		TCK: time.Nanosecond, TRCD: 13 * time.Nanosecond, TRP: 13 * time.Nanosecond,
		TRFC: 260 * time.Nanosecond,
	})
}

func TestIdleProposesActivate(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	p := payload.New(command.RD, 0x1000, 64)
	sched := &fakeSched{queue: []*payload.Payload{p}}
	bm := New(bank, testSpec(), Open, sched)

	got := bm.NextCommand(0)
	if got.Command != command.ACT || got.Payload != p {
		t.Fatalf("NextCommand from Idle = %+v, want ACT carrying the pending payload", got)
	}
}

func TestActivatingBlocksUntilTRCD(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	p := payload.New(command.RD, 0x1000, 64)
	p.Controller.Coords.Row = 7
	sched := &fakeSched{queue: []*payload.Payload{p}}
	bm := New(bank, testSpec(), Open, sched)

	bm.OnIssued(command.ACT, 0)
	if bm.State() != Activating {
		t.Fatalf("state after ACT = %v, want Activating", bm.State())
	}
	if got := bm.NextCommand(5 * time.Nanosecond); got.Command != command.NOP {
		t.Fatalf("NextCommand mid-tRCD = %v, want NOP", got.Command)
	}

	bm.AdvanceLatched(13 * time.Nanosecond)
	if bm.State() != Activated {
		t.Fatalf("state after tRCD = %v, want Activated", bm.State())
	}
	if bm.OpenRow() != 7 {
		t.Fatalf("OpenRow() = %d, want 7", bm.OpenRow())
	}
}

func TestOpenPolicyNeverAutoPrecharges(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	p := payload.New(command.RD, 0x1000, 64)
	p.Controller.Coords.Row = 7
	sched := &fakeSched{queue: []*payload.Payload{p}}
	bm := New(bank, testSpec(), Open, sched)
	bm.OnIssued(command.ACT, 0)
	bm.AdvanceLatched(13 * time.Nanosecond)

	got := bm.NextCommand(13 * time.Nanosecond)
	if got.Command != command.RD {
		t.Fatalf("NextCommand with Open policy = %v, want plain RD (never auto-precharge)", got.Command)
	}
}

func TestClosedPolicyAlwaysAutoPrecharges(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	p := payload.New(command.RD, 0x1000, 64)
	p.Controller.Coords.Row = 7
	sched := &fakeSched{queue: []*payload.Payload{p}}
	bm := New(bank, testSpec(), Closed, sched)
	bm.OnIssued(command.ACT, 0)
	bm.AdvanceLatched(13 * time.Nanosecond)

	got := bm.NextCommand(13 * time.Nanosecond)
	if got.Command != command.RDA {
		t.Fatalf("NextCommand with Closed policy = %v, want RDA", got.Command)
	}
}

func TestOpenAdaptiveAutoPrechargesOnlyWithoutFurtherRowHit(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	p := payload.New(command.RD, 0x1000, 64)
	p.Controller.Coords.Row = 7
	sched := &fakeSched{queue: []*payload.Payload{p}, furtherHit: true}
	bm := New(bank, testSpec(), OpenAdaptive, sched)
	bm.OnIssued(command.ACT, 0)
	bm.AdvanceLatched(13 * time.Nanosecond)

	if got := bm.NextCommand(13 * time.Nanosecond); got.Command != command.RD {
		t.Fatalf("with a further row hit pending, got %v, want RD", got.Command)
	}

	sched.furtherHit = false
	if got := bm.NextCommand(13 * time.Nanosecond); got.Command != command.RDA {
		t.Fatalf("with no further row hit, got %v, want RDA", got.Command)
	}
}

func TestRowConflictTriggersPrecharge(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	opened := payload.New(command.RD, 0x1000, 64)
	opened.Controller.Coords.Row = 7
	conflict := payload.New(command.RD, 0x2000, 64)
	conflict.Controller.Coords.Row = 9

	sched := &fakeSched{queue: []*payload.Payload{opened}}
	bm := New(bank, testSpec(), Open, sched)
	bm.OnIssued(command.ACT, 0)
	bm.AdvanceLatched(13 * time.Nanosecond)

	sched.queue = []*payload.Payload{conflict}
	got := bm.NextCommand(13 * time.Nanosecond)
	if got.Command != command.PREPB {
		t.Fatalf("NextCommand on row conflict = %v, want PREPB", got.Command)
	}
}

func TestBlockSuspendsAndUnblockRestores(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	sched := &fakeSched{}
	bm := New(bank, testSpec(), Open, sched)
	bm.OnIssued(command.ACT, 0)
	bm.AdvanceLatched(13 * time.Nanosecond)

	bm.Block()
	if bm.State() != Blocked {
		t.Fatalf("state after Block = %v, want Blocked", bm.State())
	}
	if got := bm.NextCommand(13 * time.Nanosecond); got.Command != command.NOP {
		t.Fatalf("NextCommand while blocked = %v, want NOP", got.Command)
	}

	bm.Unblock()
	if bm.State() != Activated {
		t.Fatalf("state after Unblock = %v, want Activated (restored)", bm.State())
	}
}

func TestPlainCASReturnsToActivatedNotDeadlocked(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	first := payload.New(command.RD, 0x1000, 64)
	first.Controller.Coords.Row = 7
	second := payload.New(command.RD, 0x1000, 64)
	second.Controller.Coords.Row = 7

	sched := &fakeSched{queue: []*payload.Payload{first}}
	bm := New(bank, testSpec(), Open, sched)
	bm.OnIssued(command.ACT, 0)
	bm.AdvanceLatched(13 * time.Nanosecond)

	got := bm.NextCommand(13 * time.Nanosecond)
	if got.Command != command.RD {
		t.Fatalf("NextCommand before any CAS = %v, want RD", got.Command)
	}
	bm.OnIssued(command.RD, 13*time.Nanosecond)
	if bm.State() != Activated {
		t.Fatalf("state after RD = %v, want Activated (row stays open)", bm.State())
	}

	sched.queue = []*payload.Payload{second}
	got = bm.NextCommand(14 * time.Nanosecond)
	if got.Command != command.RD {
		t.Fatalf("NextCommand for a second row-hit CAS = %v, want RD, got NOP means the bank deadlocked", got.Command)
	}
}

func TestRefreshReturnsToIdleAfterTRFC(t *testing.T) {
	bank := payload.Bank{Bank: 0}
	bm := New(bank, testSpec(), Open, &fakeSched{})

	bm.OnIssued(command.REFAB, 0)
	if bm.State() != Refreshing {
		t.Fatalf("state after REFAB = %v, want Refreshing", bm.State())
	}
	bm.AdvanceLatched(260 * time.Nanosecond)
	if bm.State() != Idle {
		t.Fatalf("state after tRFC = %v, want Idle", bm.State())
	}
}
