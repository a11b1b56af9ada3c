// Package checker implements the per-channel timing-constraint oracle of
// spec.md §4.5: for any (command, payload) pair it computes the earliest
// simulated time at which issuing that command violates no JEDEC timing
// constraint for the configured MemSpec. Checker never itself issues a
// command; the Controller is solely responsible for comparing its
// earliestTime against the current simulated time before calling Insert.
package checker

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/payload"
)

type groupKey struct {
	Rank      uint64
	BankGroup uint64
}

// ring is a fixed-capacity FIFO of timestamps, used for the rolling tFAW
// (size 4) and t32AW (size 32, GDDR5 family) windows.
type ring struct {
	buf  []time.Duration
	next int
	full bool
}

func newRing(size int) *ring {
	return &ring{buf: make([]time.Duration, size)}
}

func (r *ring) push(t time.Duration) {
	r.buf[r.next] = t
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// oldest returns the oldest timestamp in the window, and whether the
// window is fully populated (fewer than cap entries means the constraint
// cannot yet bind).
func (r *ring) oldest() (time.Duration, bool) {
	if !r.full {
		return 0, false
	}
	return r.buf[r.next], true
}

// Checker is the per-channel timing oracle.
type Checker struct {
	spec *memspec.MemSpec

	lastByCmdBank map[command.Command]map[payload.Bank]time.Duration
	lastByCmdGrp  map[command.Command]map[groupKey]time.Duration
	lastByCmdRank map[command.Command]map[uint64]time.Duration
	lastByCmd     map[command.Command]time.Duration

	// cmdBusRAS/cmdBusCAS track command-bus occupancy. Standards with a
	// split bus (HBM) use both; everything else only cmdBusRAS.
	cmdBusRAS time.Duration
	cmdBusCAS time.Duration

	faw   map[uint64]*ring
	aw32  map[uint64]*ring
}

// New constructs a Checker for one channel, driven by spec.
func New(spec *memspec.MemSpec) *Checker {
	return &Checker{
		spec:          spec,
		lastByCmdBank: make(map[command.Command]map[payload.Bank]time.Duration),
		lastByCmdGrp:  make(map[command.Command]map[groupKey]time.Duration),
		lastByCmdRank: make(map[command.Command]map[uint64]time.Duration),
		lastByCmd:     make(map[command.Command]time.Duration),
		faw:           make(map[uint64]*ring),
		aw32:          make(map[uint64]*ring),
	}
}

func (c *Checker) bankOf(p *payload.Payload) payload.Bank   { return p.BankOf() }
func (c *Checker) groupOf(p *payload.Payload) groupKey {
	b := p.BankOf()
	return groupKey{Rank: b.Rank, BankGroup: b.BankGroup}
}

func (c *Checker) lastBank(cmd command.Command, b payload.Bank) (time.Duration, bool) {
	m, ok := c.lastByCmdBank[cmd]
	if !ok {
		return 0, false
	}
	t, ok := m[b]
	return t, ok
}

func (c *Checker) lastGroup(cmd command.Command, g groupKey) (time.Duration, bool) {
	m, ok := c.lastByCmdGrp[cmd]
	if !ok {
		return 0, false
	}
	t, ok := m[g]
	return t, ok
}

func (c *Checker) lastRank(cmd command.Command, rank uint64) (time.Duration, bool) {
	m, ok := c.lastByCmdRank[cmd]
	if !ok {
		return 0, false
	}
	t, ok := m[rank]
	return t, ok
}

func (c *Checker) lastAny(cmd command.Command) (time.Duration, bool) {
	t, ok := c.lastByCmd[cmd]
	return t, ok
}

func (c *Checker) fawRing(rank uint64) *ring {
	r, ok := c.faw[rank]
	if !ok {
		r = newRing(4)
		c.faw[rank] = r
	}
	return r
}

func (c *Checker) aw32Ring(rank uint64) *ring {
	r, ok := c.aw32[rank]
	if !ok {
		r = newRing(32)
		c.aw32[rank] = r
	}
	return r
}

type accumulator struct{ t time.Duration }

func (a *accumulator) consider(val time.Duration, ok bool) {
	if ok && val > a.t {
		a.t = val
	}
}

// EarliestTime computes the earliest simulated time cmd may issue for p,
// as the maximum of now and every applicable "last + delta" term drawn
// from the constraint matrix of spec.md §4.5.
func (c *Checker) EarliestTime(cmd command.Command, p *payload.Payload, now time.Duration) time.Duration {
	a := &accumulator{t: now}
	bank := c.bankOf(p)
	group := c.groupOf(p)
	rank := bank.Rank
	tm := c.spec.Timing

	switch {
	case cmd == command.ACT:
		c.earliestACT(a, bank, group, rank, tm)
	case cmd.IsCas():
		c.earliestCAS(a, cmd, bank, group, rank, tm)
	case cmd.IsPrecharge():
		c.earliestPrecharge(a, bank, tm)
	case cmd.IsRefresh():
		c.earliestRefresh(a, cmd, rank, tm)
	case cmd.IsPowerDown():
		c.earliestPowerDown(a, cmd, rank, tm)
	}

	a.consider(c.busEarliest(cmd, tm))
	return a.t
}

// afterBank/afterGroup/afterRank/afterAny look up the last time cmd fired
// against the given resource and, if found, feed last+delta into a.
func (c *Checker) afterBank(a *accumulator, cmd command.Command, b payload.Bank, delta time.Duration) {
	if t, ok := c.lastBank(cmd, b); ok {
		a.consider(t+delta, true)
	}
}

func (c *Checker) afterGroup(a *accumulator, cmd command.Command, g groupKey, delta time.Duration) {
	if t, ok := c.lastGroup(cmd, g); ok {
		a.consider(t+delta, true)
	}
}

func (c *Checker) afterRank(a *accumulator, cmd command.Command, rank uint64, delta time.Duration) {
	if t, ok := c.lastRank(cmd, rank); ok {
		a.consider(t+delta, true)
	}
}

func (c *Checker) earliestACT(a *accumulator, bank payload.Bank, group groupKey, rank uint64, tm memspec.Timing) {
	c.afterBank(a, command.ACT, bank, tm.TRC)
	c.afterBank(a, command.PREPB, bank, tm.TRP)
	c.afterBank(a, command.PREAB, bank, tm.TRP)

	if c.spec.Type.HasBankGroups() {
		c.afterGroup(a, command.ACT, group, tm.TRRD_L)
	}
	c.afterRank(a, command.ACT, rank, tm.TRRD_S)

	if oldest, ok := c.fawRing(rank).oldest(); ok {
		a.consider(oldest+tm.TFAW, true)
	}
	if c.spec.Type.HasT32AW() {
		if oldest, ok := c.aw32Ring(rank).oldest(); ok {
			a.consider(oldest+tm.T32AW, true)
		}
	}

	c.afterRank(a, command.REFAB, rank, tm.TRFC)
	c.afterRank(a, command.SREFEX, rank, tm.TXS)
	c.afterRank(a, command.PDXA, rank, tm.TXP)
	c.afterRank(a, command.PDXP, rank, tm.TXP)
}

func (c *Checker) earliestCAS(a *accumulator, cmd command.Command, bank payload.Bank, group groupKey, rank uint64, tm memspec.Timing) {
	if cmd.IsRead() {
		c.afterBank(a, command.ACT, bank, tm.TRCD)
		c.earliestRead(a, group, rank, tm)
	} else {
		c.afterBank(a, command.ACT, bank, tm.TRCDWR)
		c.earliestWrite(a, group, rank, tm)
	}
}

// earliestRead applies the RD-after-RD and RD-after-WR turnaround
// constraints, disambiguating same-rank (tCCD_*) from cross-rank
// (burst+tRTRS) by comparing the group/rank history against the
// unconditional lastByCmd history, per spec.md §4.5's note.
func (c *Checker) earliestRead(a *accumulator, group groupKey, rank uint64, tm memspec.Timing) {
	burst := c.spec.BurstDuration()

	if c.spec.Type.HasBankGroups() {
		c.afterGroup(a, command.RD, group, tm.TCCD_L)
		c.afterGroup(a, command.RDA, group, tm.TCCD_L)
	} else {
		c.afterRank(a, command.RD, rank, tm.TCCD_S)
		c.afterRank(a, command.RDA, rank, tm.TCCD_S)
	}

	if lastAny, ok := c.lastAny(command.RD); ok {
		if lastRank, rok := c.lastRank(command.RD, rank); !rok || lastRank != lastAny {
			a.consider(lastAny+burst+tm.TRTRS, true)
		}
	}

	c.afterGroup(a, command.WR, group, tm.TWL+burst+tm.TWTR_L)
	c.afterGroup(a, command.MWR, group, tm.TWL+burst+tm.TWTR_L)
	c.afterRank(a, command.WR, rank, tm.TWL+burst+tm.TWTR_S)
	c.afterRank(a, command.MWR, rank, tm.TWL+burst+tm.TWTR_S)
}

func (c *Checker) earliestWrite(a *accumulator, group groupKey, rank uint64, tm memspec.Timing) {
	burst := c.spec.BurstDuration()

	if c.spec.Type.HasBankGroups() {
		c.afterGroup(a, command.WR, group, tm.TCCD_L)
		c.afterGroup(a, command.MWR, group, tm.TCCD_L)
	} else {
		c.afterRank(a, command.WR, rank, tm.TCCD_S)
		c.afterRank(a, command.MWR, rank, tm.TCCD_S)
	}

	if lastAny, ok := c.lastAny(command.WR); ok {
		if lastRank, rok := c.lastRank(command.WR, rank); !rok || lastRank != lastAny {
			a.consider(lastAny+burst+tm.TRTRS, true)
		}
	}
}

func (c *Checker) earliestPrecharge(a *accumulator, bank payload.Bank, tm memspec.Timing) {
	burst := c.spec.BurstDuration()
	c.afterBank(a, command.ACT, bank, tm.TRAS)
	c.afterBank(a, command.RD, bank, tm.TRTP)
	c.afterBank(a, command.WR, bank, tm.TWL+burst+tm.TWR)
	c.afterBank(a, command.MWR, bank, tm.TWL+burst+tm.TWR)
}

func (c *Checker) earliestRefresh(a *accumulator, cmd command.Command, rank uint64, tm memspec.Timing) {
	c.afterRank(a, command.REFAB, rank, tm.TRFC)
	c.afterRank(a, command.REFPB, rank, tm.TRREFD)
	c.afterRank(a, command.RFMAB, rank, tm.TRFC)
}

func (c *Checker) earliestPowerDown(a *accumulator, cmd command.Command, rank uint64, tm memspec.Timing) {
	switch {
	case cmd.IsPowerDownEntry():
		c.afterRank(a, command.PDXA, rank, tm.TCKE)
		c.afterRank(a, command.PDXP, rank, tm.TCKE)
		c.afterRank(a, command.SREFEX, rank, tm.TCKE)
	case cmd.IsPowerDownExit():
		c.afterRank(a, command.PDEA, rank, tm.TCKE)
		c.afterRank(a, command.PDEP, rank, tm.TCKE)
		c.afterRank(a, command.SREFEN, rank, tm.TCKESR)
	}
}

// busEarliest enforces one-command-per-bus-cycle occupancy: a single
// shared command bus on most standards, or independent RAS/CAS buses on
// the HBM family (spec.md §4.5).
func (c *Checker) busEarliest(cmd command.Command, tm memspec.Timing) (time.Duration, bool) {
	latency := c.spec.CommandLatency(cmd)
	if c.spec.Type.HasSplitCommandBus() {
		if cmd.IsRas() {
			return c.cmdBusRAS + latency, true
		}
		return c.cmdBusCAS + latency, true
	}
	return c.cmdBusRAS + latency, true
}

// Assert panics if issuing cmd for p at now would violate a timing
// constraint. Spec.md §7 calls TimingViolation unreachable by construction
// since CmdMux only ever issues a candidate whose EarliestTime equals now;
// this is the belt-and-suspenders check the Controller runs immediately
// before Insert to make that invariant an assertion rather than an
// assumption.
func (c *Checker) Assert(cmd command.Command, p *payload.Payload, now time.Duration) {
	if earliest := c.EarliestTime(cmd, p, now); earliest > now {
		panic(&TimingViolation{Command: cmd, Now: now, Earliest: earliest})
	}
}

// TimingViolation is the panic value Assert raises. It is not a
// simerr.* error: spec.md §7 treats this as an assertion-level invariant,
// never a recoverable condition the rest of the pipeline should handle.
type TimingViolation struct {
	Command  command.Command
	Now      time.Duration
	Earliest time.Duration
}

func (v *TimingViolation) Error() string {
	return "timing violation: " + v.Command.String() + " issued before its earliest legal time"
}

// Insert records that cmd was actually issued for p at now, updating every
// table EarliestTime draws from (spec.md §4.5's insert(cmd, payload, now)).
func (c *Checker) Insert(cmd command.Command, p *payload.Payload, now time.Duration) {
	bank := c.bankOf(p)
	group := c.groupOf(p)
	rank := bank.Rank

	c.setBank(cmd, bank, now)
	c.setGroup(cmd, group, now)
	c.setRank(cmd, rank, now)
	c.lastByCmd[cmd] = now

	switch {
	case c.spec.Type.HasSplitCommandBus() && cmd == command.ACT:
		c.cmdBusRAS = now + c.spec.Timing.TCK
	case c.spec.Type.HasSplitCommandBus() && cmd.IsRas():
		c.cmdBusRAS = now
	case c.spec.Type.HasSplitCommandBus():
		c.cmdBusCAS = now
	default:
		// A single shared bus has one occupancy timestamp regardless of
		// command class; busEarliest reads only cmdBusRAS for this case.
		c.cmdBusRAS = now
	}

	if cmd == command.ACT || (cmd == command.REFPB && c.spec.Type.HasPerBankRefresh()) {
		c.fawRing(rank).push(now)
		if c.spec.Type.HasT32AW() {
			c.aw32Ring(rank).push(now)
		}
	}
}

func (c *Checker) setBank(cmd command.Command, b payload.Bank, now time.Duration) {
	m, ok := c.lastByCmdBank[cmd]
	if !ok {
		m = make(map[payload.Bank]time.Duration)
		c.lastByCmdBank[cmd] = m
	}
	m[b] = now
}

func (c *Checker) setGroup(cmd command.Command, g groupKey, now time.Duration) {
	m, ok := c.lastByCmdGrp[cmd]
	if !ok {
		m = make(map[groupKey]time.Duration)
		c.lastByCmdGrp[cmd] = m
	}
	m[g] = now
}

func (c *Checker) setRank(cmd command.Command, rank uint64, now time.Duration) {
	m, ok := c.lastByCmdRank[cmd]
	if !ok {
		m = make(map[uint64]time.Duration)
		c.lastByCmdRank[cmd] = m
	}
	m[rank] = now
}
