// Package bankmachine implements the per-bank state machine of spec.md
// §4.1: from the bank's local view, propose the next command this bank
// wants to issue, and update internal state once a command is actually
// issued.
package bankmachine

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/payload"
)

// State is one of the bank states of spec.md §4.1.
type State int

const (
	Idle State = iota
	Activating
	Activated
	Reading
	Writing
	Precharging
	Refreshing
	PoweredDown
	SelfRefreshed
	Blocked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Activating:
		return "Activating"
	case Activated:
		return "Activated"
	case Reading:
		return "Reading"
	case Writing:
		return "Writing"
	case Precharging:
		return "Precharging"
	case Refreshing:
		return "Refreshing"
	case PoweredDown:
		return "PoweredDown"
	case SelfRefreshed:
		return "SelfRefreshed"
	case Blocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

// PagePolicy enumerates spec.md §4.1's page policies.
type PagePolicy int

const (
	Open PagePolicy = iota
	OpenAdaptive
	Closed
	ClosedAdaptive
)

// RowHitSource answers the questions an Adaptive page policy needs about
// what else is pending for this bank. Scheduler implements this; it is
// named as its own interface so BankMachine doesn't import scheduler
// (Scheduler, in turn, depends on nothing from bankmachine — the Controller
// is the only component that must know about both).
type RowHitSource interface {
	HasFurtherRowHit(bank payload.Bank, row uint64, exclude *payload.Payload) bool
	HasFurtherRequest(bank payload.Bank) bool
	GetNext(bank payload.Bank, rowOpen bool, openRow uint64, lastIssued command.Command) *payload.Payload
}

// Candidate is a (command, payload) tuple a BankMachine proposes for this
// cycle; payload is nil for commands like PREPB that don't carry one.
type Candidate struct {
	Command command.Command
	Payload *payload.Payload
}

// BankMachine is the per-(rank,bankgroup,bank) state machine of spec.md
// §4.1. Exactly one instance exists per bank for the life of the
// simulation.
type BankMachine struct {
	bank   payload.Bank
	spec   *memspec.MemSpec
	policy PagePolicy
	sched  RowHitSource

	state   State
	openRow uint64

	// previous holds the state a PoweredDown/Blocked transition should
	// revert to once the interruption clears (spec.md §4.1: "reverts when
	// refresh completes" / "previous active/idle state").
	previous State

	selected *payload.Payload
	lastCmd  command.Command

	// readyAt is the simulated time this bank's current in-flight command
	// (ACT/PRE/REF) completes and the state transition in spec.md's table
	// takes effect. Zero means no latency is outstanding.
	readyAt time.Duration

	blocked        bool
	raa            uint // rolling activation accumulator consumed by RFM policy (internal/refresh)
}

// New constructs a BankMachine for one bank, initially Idle.
func New(bank payload.Bank, spec *memspec.MemSpec, policy PagePolicy, sched RowHitSource) *BankMachine {
	return &BankMachine{bank: bank, spec: spec, policy: policy, sched: sched, state: Idle}
}

// Bank returns the (rank, bankgroup, bank) this machine owns.
func (b *BankMachine) Bank() payload.Bank { return b.bank }

// State returns the current state.
func (b *BankMachine) State() State { return b.state }

// OpenRow returns the currently open row; valid only when State is
// Activated, Reading, or Writing.
func (b *BankMachine) OpenRow() uint64 { return b.openRow }

// RAA returns the rolling activation accumulator RefreshManager consults
// for RFM thresholds.
func (b *BankMachine) RAA() uint { return b.raa }

// ResetRAA zeroes the accumulator once an RFM command has mitigated it.
func (b *BankMachine) ResetRAA() { b.raa = 0 }

func (b *BankMachine) isIdle() bool       { return b.state == Idle }
func (b *BankMachine) isActivated() bool  { return b.state == Activated || b.state == Reading || b.state == Writing }
func (b *BankMachine) waitingOnLatency(now time.Duration) bool {
	return b.readyAt > now
}

// IsIdle reports whether the bank is in the Idle state.
func (b *BankMachine) IsIdle() bool { return b.isIdle() }

// IsActivated reports whether the bank has an open row (Activated, Reading,
// or Writing).
func (b *BankMachine) IsActivated() bool { return b.isActivated() }

// Block forces the bank into Blocked, used by RefreshManager when the
// postponement counter saturates (spec.md §4.3 step 3) and by the RFM
// must-mitigate threshold (spec.md §4.3 step 5).
func (b *BankMachine) Block() {
	if b.state != Blocked {
		b.previous = b.state
		b.blocked = true
		b.state = Blocked
	}
}

// Unblock releases a Block, reverting to the state the bank was in before
// blocking.
func (b *BankMachine) Unblock() {
	if b.state == Blocked {
		b.blocked = false
		b.state = b.previous
	}
}

// Blocked reports whether RefreshManager has forced this bank closed.
func (b *BankMachine) Blocked() bool { return b.blocked }

// NextCommand proposes the single next command this bank wants to issue,
// returning NOP with a nil payload if the bank is blocked, waiting on an
// outstanding latency, or the Scheduler has nothing queued for it.
func (b *BankMachine) NextCommand(now time.Duration) Candidate {
	if b.state == Blocked || b.state == PoweredDown || b.state == SelfRefreshed {
		return Candidate{Command: command.NOP}
	}
	if b.waitingOnLatency(now) {
		return Candidate{Command: command.NOP}
	}

	switch b.state {
	case Idle:
		return b.proposeFromIdle()
	case Activated:
		return b.proposeFromActivated()
	case Precharging, Activating, Refreshing:
		return Candidate{Command: command.NOP}
	default:
		return Candidate{Command: command.NOP}
	}
}

func (b *BankMachine) proposeFromIdle() Candidate {
	next := b.sched.GetNext(b.bank, false, 0, b.lastCmd)
	if next == nil {
		return Candidate{Command: command.NOP}
	}
	return Candidate{Command: command.ACT, Payload: next}
}

func (b *BankMachine) proposeFromActivated() Candidate {
	next := b.sched.GetNext(b.bank, true, b.openRow, b.lastCmd)
	if next == nil {
		return b.considerPrechargeIdle()
	}

	if !next.IsRowHit(b.openRow) {
		// Row conflict: must close the current row before activating the
		// requested one (spec.md §8 scenario S2).
		return Candidate{Command: command.PREPB}
	}

	b.selected = next
	if next.Command.IsWrite() {
		return Candidate{Command: writeCommandFor(next, b.policy, b.sched, b.bank, b.openRow), Payload: next}
	}
	return Candidate{Command: readCommandFor(next, b.policy, b.sched, b.bank, b.openRow), Payload: next}
}

// considerPrechargeIdle decides, for the Closed/ClosedAdaptive policies,
// whether an idle-but-activated bank should precharge proactively.
func (b *BankMachine) considerPrechargeIdle() Candidate {
	switch b.policy {
	case Closed:
		return Candidate{Command: command.PREPB}
	case ClosedAdaptive:
		if !b.sched.HasFurtherRequest(b.bank) {
			return Candidate{Command: command.PREPB}
		}
		return Candidate{Command: command.NOP}
	default:
		return Candidate{Command: command.NOP}
	}
}

// readCommandFor/writeCommandFor decide between the plain and
// auto-precharge variant of a CAS command, per the page policy: Closed
// always auto-precharges; OpenAdaptive/ClosedAdaptive consult the
// Scheduler for a further row hit and only auto-precharge when there is
// none; Open never auto-precharges.
func readCommandFor(p *payload.Payload, policy PagePolicy, sched RowHitSource, bank payload.Bank, row uint64) command.Command {
	if shouldAutoPrecharge(p, policy, sched, bank, row) {
		return command.RDA
	}
	return command.RD
}

func writeCommandFor(p *payload.Payload, policy PagePolicy, sched RowHitSource, bank payload.Bank, row uint64) command.Command {
	base := command.WR
	if p.Command.IsMasked() {
		base = command.MWR
	}
	if shouldAutoPrecharge(p, policy, sched, bank, row) {
		if base == command.MWR {
			return command.MWRA
		}
		return command.WRA
	}
	return base
}

func shouldAutoPrecharge(p *payload.Payload, policy PagePolicy, sched RowHitSource, bank payload.Bank, row uint64) bool {
	switch policy {
	case Closed:
		return true
	case ClosedAdaptive, OpenAdaptive:
		return !sched.HasFurtherRowHit(bank, row, p)
	default: // Open
		return false
	}
}

// OnIssued mutates local state after cmd has actually been issued for this
// bank at time now, per the transition table of spec.md §4.1.
func (b *BankMachine) OnIssued(cmd command.Command, now time.Duration) {
	prev := b.lastCmd
	b.lastCmd = cmd

	switch {
	case cmd == command.ACT:
		b.state = Activating
		b.readyAt = now + b.spec.Timing.TRCD
		// The ACT opens the row of the payload proposeFromIdle offered.
		sel := b.selected
		if sel == nil {
			sel = b.sched.GetNext(b.bank, false, 0, prev)
		}
		if sel != nil {
			b.openRow = sel.Controller.Coords.Row
		}
		b.raa++

	case cmd == command.RD || cmd == command.WR || cmd == command.MWR:
		// The row stays open; the next CAS to this bank is gated purely by
		// Checker's tCCD/tWTR bookkeeping, not by BankMachine state, so the
		// bank returns straight to Activated rather than lingering in a
		// Reading/Writing state with no transition back out of it.
		b.state = Activated
		b.selected = nil

	case cmd == command.RDA || cmd == command.WRA || cmd == command.MWRA:
		b.enterPrecharging(now)

	case cmd == command.PREPB || cmd == command.PREAB:
		b.enterPrecharging(now)

	case cmd == command.REFPB || cmd == command.REFSB || cmd == command.REFAB:
		b.state = Refreshing
		b.readyAt = now + b.spec.RefreshCycleTime(cmd)
		if cmd == command.REFPB {
			b.raa = 0
		}

	case cmd == command.RFMAB || cmd == command.RFMPB:
		b.state = Refreshing
		b.readyAt = now + b.spec.RefreshCycleTime(cmd)
		b.raa = 0

	case cmd == command.PDEA || cmd == command.PDEP:
		b.previous = b.state
		b.state = PoweredDown

	case cmd == command.PDXA || cmd == command.PDXP:
		b.state = b.previous

	case cmd == command.SREFEN:
		b.previous = b.state
		b.state = SelfRefreshed

	case cmd == command.SREFEX:
		b.state = b.previous
	}

	// The state transitions above set readyAt for latency-bearing
	// commands; complete the deferred Idle/Activated transition once the
	// latency elapses via AdvanceLatched, called by Controller each cycle.
}

// enterPrecharging handles both an explicit PRE and an auto-precharge CAS
// variant (RDA/WRA/MWRA): Controller issues the auto-precharge variant at
// the same moment it issues the CAS, so from this state machine's point of
// view the two cases look identical.
func (b *BankMachine) enterPrecharging(now time.Duration) {
	b.state = Precharging
	b.readyAt = now + b.spec.Timing.TRP
	b.selected = nil
}

// AdvanceLatched completes a pending Activating/Precharging/Refreshing
// transition once now has reached readyAt. Controller calls this every
// cycle before asking for a new candidate.
func (b *BankMachine) AdvanceLatched(now time.Duration) {
	if b.readyAt == 0 || now < b.readyAt {
		return
	}
	switch b.state {
	case Activating:
		b.state = Activated
	case Precharging:
		b.state = Idle
		b.openRow = 0
	case Refreshing:
		b.state = Idle
	}
	b.readyAt = 0
}
