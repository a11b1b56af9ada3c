// Package scheduler admits payloads into per-bank buffers and answers,
// on demand, which payload a given bank should try next. It implements the
// arbitration-policy family and the buffer-capacity-accounting family of
// spec.md §4.2, selected by a switch on the configured Policy and
// BufferVariant rather than an inheritance hierarchy, per the design note
// in spec.md §9.
package scheduler

import (
	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/payload"
)

// Policy enumerates the arbitration policies of spec.md §4.2.
type Policy int

const (
	Fifo Policy = iota
	FrFcfs
	FrFcfsGrp
	GrpFrFcfs
	GrpFrFcfsWm
)

// BufferVariant enumerates the buffer-capacity-accounting schemes of
// spec.md §4.2, orthogonal to Policy.
type BufferVariant int

const (
	Bankwise BufferVariant = iota
	ReadWrite
	Shared
)

// Config carries the construction-time parameters a Scheduler needs. All
// watermark/capacity validation (low < high, sizes > 0) happens in
// internal/config per spec.md §7; Scheduler assumes a valid Config.
type Config struct {
	Policy                 Policy
	Buffer                 BufferVariant
	RequestBufferSize      uint
	RequestBufferSizeRead  uint
	RequestBufferSizeWrite uint
	HighWatermark          uint
	LowWatermark           uint
}

type bankQueue struct {
	// reads/writes hold separate FIFOs for the GRP policies; unified holds
	// the single FIFO used by Fifo/FrFcfs/FrFcfsGrp. Only one of the two
	// representations is populated for a given Policy; Admit picks it from
	// Policy on each call.
	unified []*payload.Payload
	reads   []*payload.Payload
	writes  []*payload.Payload

	writeMode bool
}

// Scheduler is the per-channel admitted-payload buffer plus arbitration
// logic. One Scheduler instance exists per channel.
type Scheduler struct {
	cfg Config

	queues map[payload.Bank]*bankQueue

	// Buffer accounting state.
	totalDepth uint
	readDepth  uint
	writeDepth uint
	bankDepth  map[payload.Bank]uint
}

// New constructs a Scheduler for one channel.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		queues:    make(map[payload.Bank]*bankQueue),
		bankDepth: make(map[payload.Bank]uint),
	}
}

func (s *Scheduler) queueFor(bank payload.Bank) *bankQueue {
	q, ok := s.queues[bank]
	if !ok {
		q = &bankQueue{}
		s.queues[bank] = q
	}
	return q
}

// CanAdmit reports whether p can be admitted without exceeding the
// configured buffer capacity. This implements CapacityBackpressure
// (spec.md §7): false is normal flow control, never an error.
func (s *Scheduler) CanAdmit(p *payload.Payload) bool {
	switch s.cfg.Buffer {
	case Bankwise:
		bank := p.BankOf()
		return s.bankDepth[bank] < s.cfg.RequestBufferSize
	case ReadWrite:
		if p.Command.IsWrite() {
			return s.writeDepth < s.cfg.RequestBufferSizeWrite
		}
		return s.readDepth < s.cfg.RequestBufferSizeRead
	default: // Shared
		return s.totalDepth < s.cfg.RequestBufferSize
	}
}

// Admit inserts p into its bank's queue. Callers must have checked
// CanAdmit first; Admit does not re-check capacity.
func (s *Scheduler) Admit(p *payload.Payload) {
	bank := p.BankOf()
	q := s.queueFor(bank)

	switch s.cfg.Policy {
	case GrpFrFcfs, GrpFrFcfsWm:
		if p.Command.IsWrite() {
			q.writes = append(q.writes, p)
		} else {
			q.reads = append(q.reads, p)
		}
	default:
		q.unified = append(q.unified, p)
	}

	s.totalDepth++
	s.bankDepth[bank]++
	if p.Command.IsWrite() {
		s.writeDepth++
	} else {
		s.readDepth++
	}

	if s.cfg.Policy == GrpFrFcfsWm {
		s.updateWriteMode(q)
	}
}

// Remove deletes p from its bank's queue (called once its terminal CAS
// command has been issued and it has moved to the ResponseQueue path).
func (s *Scheduler) Remove(p *payload.Payload) {
	bank := p.BankOf()
	q := s.queueFor(bank)

	removed := removeFirst(&q.unified, p)
	if !removed {
		if p.Command.IsWrite() {
			removed = removeFirst(&q.writes, p)
		} else {
			removed = removeFirst(&q.reads, p)
		}
	}
	if !removed {
		return
	}

	s.totalDepth--
	s.bankDepth[bank]--
	if p.Command.IsWrite() {
		s.writeDepth--
	} else {
		s.readDepth--
	}

	if s.cfg.Policy == GrpFrFcfsWm {
		s.updateWriteMode(q)
	}
}

func removeFirst(list *[]*payload.Payload, p *payload.Payload) bool {
	for i, v := range *list {
		if v == p {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// updateWriteMode applies the watermark hysteresis of spec.md §4.2
// (GrpFrFcfsWm): enter write mode when writes exceed the high watermark or
// no reads are pending; leave write mode once writes fall to the low
// watermark or below, provided reads are pending.
func (s *Scheduler) updateWriteMode(q *bankQueue) {
	writes := uint(len(q.writes))
	reads := uint(len(q.reads))

	if writes > s.cfg.HighWatermark || reads == 0 {
		q.writeMode = true
		return
	}
	if writes <= s.cfg.LowWatermark && reads > 0 {
		q.writeMode = false
	}
}

// GetNext returns the payload this bank should try to issue next, or nil
// if the bank has nothing pending, per the arbitration policy configured.
// openRow/rowOpen describe the bank's current state, supplied by the
// BankMachine since the Scheduler itself holds no bank-state beyond its
// queues.
func (s *Scheduler) GetNext(bank payload.Bank, rowOpen bool, openRow uint64, lastIssued command.Command) *payload.Payload {
	q, ok := s.queues[bank]
	if !ok {
		return nil
	}

	switch s.cfg.Policy {
	case Fifo:
		return front(q.unified)

	case FrFcfs:
		return firstReadyFRFCFS(q.unified, rowOpen, openRow)

	case FrFcfsGrp:
		return firstReadyFRFCFSGrp(q.unified, rowOpen, openRow, lastIssued, q)

	case GrpFrFcfs:
		primary, secondary := q.reads, q.writes
		if lastIssued.IsWrite() {
			primary, secondary = q.writes, q.reads
		}
		if p := firstReadyFRFCFS(primary, rowOpen, openRow); p != nil {
			return p
		}
		return firstReadyFRFCFS(secondary, rowOpen, openRow)

	case GrpFrFcfsWm:
		primary, secondary := q.reads, q.writes
		if q.writeMode {
			primary, secondary = q.writes, q.reads
		}
		if p := firstReadyFRFCFS(primary, rowOpen, openRow); p != nil {
			return p
		}
		return firstReadyFRFCFS(secondary, rowOpen, openRow)

	default:
		return front(q.unified)
	}
}

func front(list []*payload.Payload) *payload.Payload {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// firstReadyFRFCFS implements First-Ready-First-Come-First-Served: prefer
// the oldest row-hit against openRow when the bank is activated, else fall
// back to the oldest request overall.
func firstReadyFRFCFS(list []*payload.Payload, rowOpen bool, openRow uint64) *payload.Payload {
	if len(list) == 0 {
		return nil
	}
	if rowOpen {
		for _, p := range list {
			if p.IsRowHit(openRow) {
				return p
			}
		}
	}
	return list[0]
}

// firstReadyFRFCFSGrp extends FR-FCFS: among row hits, prefer one whose
// command type matches lastIssued to stay in the current read/write group,
// subject to a hazard check forbidding overtaking a prior request to the
// same address (spec.md §4.2, and the "hazard detection" open question of
// §9, which this policy resolves the same way FrFcfsGrp always has).
func firstReadyFRFCFSGrp(list []*payload.Payload, rowOpen bool, openRow uint64, lastIssued command.Command, q *bankQueue) *payload.Payload {
	if len(list) == 0 {
		return nil
	}

	if rowOpen {
		sameGroupHit := -1
		anyHit := -1
		for i, p := range list {
			if !p.IsRowHit(openRow) {
				continue
			}
			if anyHit == -1 {
				anyHit = i
			}
			if sameGroup(p.Command, lastIssued) && !overtakes(list, i, p.Address) {
				sameGroupHit = i
				break
			}
		}
		if sameGroupHit != -1 {
			return list[sameGroupHit]
		}
		if anyHit != -1 && !overtakes(list, anyHit, list[anyHit].Address) {
			return list[anyHit]
		}
	}
	return list[0]
}

func sameGroup(a, b command.Command) bool {
	if a == command.NOP {
		return true
	}
	return a.IsRead() == b.IsRead()
}

// overtakes reports whether selecting list[idx] would overtake an earlier,
// still-pending request to the same address — the hazard check named in
// spec.md §4.2/§9.
func overtakes(list []*payload.Payload, idx int, addr uint64) bool {
	for i := 0; i < idx; i++ {
		if list[i].Address == addr {
			return true
		}
	}
	return false
}

// HasFurtherRowHit reports whether any other pending request at bank
// (besides the one currently selected) targets row, so BankMachine's
// OpenAdaptive/ClosedAdaptive page policies can decide whether to keep a
// row open or precharge it.
func (s *Scheduler) HasFurtherRowHit(bank payload.Bank, row uint64, exclude *payload.Payload) bool {
	q, ok := s.queues[bank]
	if !ok {
		return false
	}
	for _, list := range [][]*payload.Payload{q.unified, q.reads, q.writes} {
		for _, p := range list {
			if p != exclude && p.IsRowHit(row) {
				return true
			}
		}
	}
	return false
}

// HasFurtherRequest reports whether bank has any pending request at all
// (used by ClosedAdaptive to decide whether precharging is worthwhile).
func (s *Scheduler) HasFurtherRequest(bank payload.Bank) bool {
	q, ok := s.queues[bank]
	if !ok {
		return false
	}
	return len(q.unified)+len(q.reads)+len(q.writes) > 0
}

// BufferDepth returns a copy of the current occupancy of every bank this
// scheduler has ever seen traffic for, as a map with no defined order.
func (s *Scheduler) BufferDepth() map[payload.Bank]uint {
	out := make(map[payload.Bank]uint, len(s.bankDepth))
	for k, v := range s.bankDepth {
		out[k] = v
	}
	return out
}

// WriteMode reports the current read/write mode for bank under
// GrpFrFcfsWm; false (read mode) for every other policy.
func (s *Scheduler) WriteMode(bank payload.Bank) bool {
	q, ok := s.queues[bank]
	if !ok {
		return false
	}
	return q.writeMode
}
