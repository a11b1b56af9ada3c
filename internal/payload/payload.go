// Package payload defines the reference-counted transaction object that
// flows through the controller: admitted by the Controller, selected by a
// BankMachine, and finally released once its response reaches the
// initiator (spec.md §3, Payload lifecycle).
package payload

import (
	"sync/atomic"
	"time"

	"github.com/dramsim/dramsim/internal/addr"
	"github.com/dramsim/dramsim/internal/command"
)

// ControllerExtension carries the coordinates the address decoder produced
// plus the channel-monotonic id the Controller assigns on admission. It
// replaces the source's run-time extension dictionary with two inline
// fields per spec.md §9's design note.
type ControllerExtension struct {
	Coords Coordinates
	ID     uint64
}

// Coordinates aliases addr.Coordinates so payload consumers don't need to
// import internal/addr directly for the common case.
type Coordinates = addr.Coordinates

// Origin names the initiator class a payload originated from. The
// Controller records it on admission; no Scheduler policy or ResponseQueue
// variant reads it.
type Origin uint8

const (
	OriginUnknown Origin = iota
	OriginPlayer
	OriginGenerator
	OriginHammer
)

// ArbiterExtension carries the fields the Scheduler/arbiter consult but the
// decode stage doesn't produce: which thread and channel this payload
// belongs to, and when it arrived.
type ArbiterExtension struct {
	Thread  uint
	Channel uint
	Origin  Origin
	Arrival time.Duration
}

// Payload is the unit of work flowing through the controller. It is
// reference-counted: Acquire on admission, Release on completion, matching
// spec.md §3's Payload lifecycle with the source's manual acquire/release
// protocol collapsed to an atomic counter whose Release reports the final
// release (internal/payload has no owning-pointer primitive of its own;
// the Controller is the sole arbiter of when a Payload's refcount reaches
// zero and its data pointer, if any, may be reused).
type Payload struct {
	Command command.Command
	Address uint64
	Length  uint

	// Data is present only when StoreMode=Store and Command is a write
	// variant (spec.md §6.2); nil otherwise. It is never consulted by
	// timing logic.
	Data []byte
	// Mask, when non-nil, marks which bytes of Data a masked write
	// actually touches (command.MWR/MWRA).
	Mask []byte

	Controller ControllerExtension
	Arbiter    ArbiterExtension

	refs int32
}

// New creates a payload with a reference count of one, owned by the
// caller (conventionally the Initiator that produced the request, until
// the Controller takes over on admission).
func New(cmd command.Command, address uint64, length uint) *Payload {
	return &Payload{Command: cmd, Address: address, Length: length, refs: 1}
}

// Acquire increments the reference count and returns p for chaining.
func (p *Payload) Acquire() *Payload {
	atomic.AddInt32(&p.refs, 1)
	return p
}

// Release decrements the reference count. It reports whether this was the
// final release (refcount reached zero) so the caller can free any
// attached resources; this repository otherwise relies on the garbage
// collector, so the boolean exists to let the Controller detect the
// lifecycle event described in spec.md §3, not to drive manual
// deallocation.
func (p *Payload) Release() bool {
	return atomic.AddInt32(&p.refs, -1) == 0
}

// RefCount returns the current reference count, for tests and invariant
// checks (spec.md §8 property 4: conservation).
func (p *Payload) RefCount() int32 {
	return atomic.LoadInt32(&p.refs)
}

// Bank identifies the (rank, bankgroup, bank) triple a payload targets,
// used as a map/slice index key by Scheduler and BankMachine.
type Bank struct {
	Rank      uint64
	BankGroup uint64
	Bank      uint64
}

// BankOf returns the Bank this payload targets, once decoded.
func (p *Payload) BankOf() Bank {
	return Bank{
		Rank:      p.Controller.Coords.Rank,
		BankGroup: p.Controller.Coords.BankGroup,
		Bank:      p.Controller.Coords.Bank,
	}
}

// IsRowHit reports whether this payload's row equals openRow.
func (p *Payload) IsRowHit(openRow uint64) bool {
	return p.Controller.Coords.Row == openRow
}
