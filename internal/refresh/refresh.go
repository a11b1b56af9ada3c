// Package refresh implements the per-rank RefreshManager of spec.md §4.3:
// a postponement/pull-in budget around each rank's tREFI trigger, staggered
// across ranks, plus the DDR5 refresh-management (RFM) escalation that
// watches each bank's rolling activation accumulator.
package refresh

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
)

// Policy enumerates the RefreshPolicy enum of spec.md §6.1's mcconfig.
type Policy int

const (
	NoRefresh Policy = iota
	AllBank
	PerBank
	Per2Bank
	SameBank
)

// BankView is the subset of BankMachine the RefreshManager needs: whether a
// bank is free to refresh, and its rolling activation accumulator for RFM.
// Named as its own interface, mirroring bankmachine.RowHitSource, so
// refresh doesn't import bankmachine.
type BankView interface {
	IsIdle() bool
	IsActivated() bool
	Block()
	Unblock()
	RAA() uint
	ResetRAA()
}

// State is the RefreshManager's own two-state machine (spec.md §4.3).
type State int

const (
	Regular State = iota
	Pulledin
)

func (s State) String() string {
	if s == Pulledin {
		return "Pulledin"
	}
	return "Regular"
}

// Config carries the construction-time parameters spec.md §6.1 exposes for
// refresh. Validation (maxPostponed/maxPulledin sign, RAA threshold
// ordering) happens in internal/config.
type Config struct {
	Policy       Policy
	TREFI        time.Duration
	MaxPostponed int
	MaxPulledin  int
	RFMEnabled   bool
	RAAIMT       uint
	RAAMMT       uint
	RanksPerChannel uint
	RankIndex       uint
}

// Candidate is the (command, bank index) tuple a RefreshManager proposes
// for a cycle; BankIndex is -1 for all-bank commands (REFAB/PREAB).
type Candidate struct {
	Command   command.Command
	BankIndex int
}

var noCandidate = Candidate{Command: command.NOP, BankIndex: -1}

// Manager is the per-rank RefreshManager.
type Manager struct {
	cfg   Config
	banks []BankView

	state State
	flex  int

	trigger time.Duration

	// cycle is the next bank index a per-bank/per-2-bank/same-bank variant
	// will target, cycling through banks on successive refreshes.
	cycle int

	sleeping bool

	// pendingPreab is set once a PREAB has been proposed for a forced or
	// regular refresh and cleared once the REFAB that follows it issues;
	// it makes the two-step PREAB-then-REFAB sequence named in spec.md
	// §4.3 "Issuance" explicit instead of inferring it from bank state.
	pendingPreab bool
}

// New constructs a Manager for one rank. banks must list every bank of
// that rank in a stable, deterministic order (cycling depends on it).
func New(cfg Config, banks []BankView) *Manager {
	m := &Manager{cfg: cfg, banks: banks}
	if cfg.RanksPerChannel > 0 {
		m.trigger = cfg.TREFI * time.Duration(cfg.RankIndex) / time.Duration(cfg.RanksPerChannel)
	}
	return m
}

// State returns the manager's Regular/Pulledin state, for tests and
// diagnostics.
func (m *Manager) State() State { return m.state }

// Flex returns the current postponement counter, bounded by
// [-maxPulledin, +maxPostponed] (spec.md §8 property 3).
func (m *Manager) Flex() int { return m.flex }

func (m *Manager) allIdle() bool {
	for _, b := range m.banks {
		if !b.IsIdle() {
			return false
		}
	}
	return true
}

func (m *Manager) anyActivated() bool {
	for _, b := range m.banks {
		if b.IsActivated() {
			return true
		}
	}
	return false
}

// SetSleeping records whether PowerDownManager has put this rank to sleep;
// a sleeping rank's refreshes defer to triggerInterruption (spec.md §4.4).
func (m *Manager) SetSleeping(asleep bool) { m.sleeping = asleep }

// Evaluate proposes the next refresh-related command for this rank, or
// NOP if none is due, per the state machine of spec.md §4.3 steps 1-5.
func (m *Manager) Evaluate(now time.Duration) Candidate {
	if m.cfg.Policy == NoRefresh {
		return noCandidate
	}

	if m.pendingPreab {
		if m.allIdle() {
			return m.refreshCommand()
		}
		return noCandidate // the PREAB already proposed is still in flight
	}

	if must, idx := m.rfmMustMitigate(); must {
		return m.proposeRFM(idx)
	}
	if idx := m.rfmOpportunisticBank(); idx >= 0 {
		return m.proposeRFM(idx)
	}

	if now >= m.trigger+m.cfg.TREFI {
		m.trigger += m.cfg.TREFI
		m.state = Regular
	}

	switch m.state {
	case Regular:
		return m.evaluateRegular()
	case Pulledin:
		return m.evaluatePulledin()
	default:
		return noCandidate
	}
}

func (m *Manager) evaluateRegular() Candidate {
	if m.flex == m.cfg.MaxPostponed {
		// Decide PREAB-vs-REFAB from the banks' real state before Block()
		// forces them all to Blocked — anyActivated() would otherwise never
		// see the open row the forced refresh exists to close.
		cand := m.proposeRefresh()
		for _, b := range m.banks {
			b.Block()
		}
		return cand
	}
	if m.allIdle() {
		return m.proposeRefresh()
	}
	m.flex++
	m.trigger += m.cfg.TREFI
	return noCandidate
}

func (m *Manager) evaluatePulledin() Candidate {
	if !m.allIdle() {
		m.state = Regular
		m.trigger += m.cfg.TREFI
		return noCandidate
	}
	return m.proposeRefresh()
}

// proposeRefresh emits the PREAB-then-REFAB/REFPB/RFMAB sequence: PREAB
// first when any bank is activated, then the refresh command itself once
// all banks are precharged.
func (m *Manager) proposeRefresh() Candidate {
	if m.anyActivated() {
		m.pendingPreab = true
		return Candidate{Command: command.PREAB, BankIndex: -1}
	}
	return m.refreshCommand()
}

func (m *Manager) refreshCommand() Candidate {
	switch m.cfg.Policy {
	case AllBank:
		return Candidate{Command: command.REFAB, BankIndex: -1}
	case PerBank:
		idx := m.nextCycle()
		return Candidate{Command: command.REFPB, BankIndex: idx}
	case Per2Bank:
		idx := m.nextCycle()
		return Candidate{Command: command.REFP2B, BankIndex: idx}
	case SameBank:
		idx := m.nextCycle()
		return Candidate{Command: command.REFSB, BankIndex: idx}
	default:
		return Candidate{Command: command.REFAB, BankIndex: -1}
	}
}

func (m *Manager) nextCycle() int {
	idx := m.cycle
	m.cycle = (m.cycle + 1) % max(1, len(m.banks))
	return idx
}



func (m *Manager) rfmMustMitigate() (bool, int) {
	if !m.cfg.RFMEnabled {
		return false, -1
	}
	for i, b := range m.banks {
		if b.RAA() >= m.cfg.RAAMMT {
			for _, bb := range m.banks {
				bb.Block()
			}
			return true, i
		}
	}
	return false, -1
}

// proposeRFM proposes an RFMAB for the bank named by idx. It does not
// recheck IsIdle: a must-mitigate bank has just been forced into Blocked
// by rfmMustMitigate, and Checker still owns the final legality call on
// the candidate's earliestTime.
func (m *Manager) proposeRFM(idx int) Candidate {
	if idx < 0 || idx >= len(m.banks) {
		return noCandidate
	}
	return Candidate{Command: command.RFMAB, BankIndex: idx}
}

// rfmOpportunisticBank returns the index of a bank that has crossed the
// RAAIMT opportunistic-issue threshold and is idle, or -1 if none
// qualifies, per spec.md §4.3 step 5.
func (m *Manager) rfmOpportunisticBank() int {
	if !m.cfg.RFMEnabled {
		return -1
	}
	for i, b := range m.banks {
		if b.IsIdle() && b.RAA() >= m.cfg.RAAIMT && b.RAA() < m.cfg.RAAMMT {
			return i
		}
	}
	return -1
}

// Update records that cmd was actually issued at time now, advancing the
// postponement counter and internal bookkeeping per spec.md §4.3.
func (m *Manager) Update(cmd command.Command, bankIndex int, now time.Duration) {
	switch {
	case cmd == command.PREAB:
		// pendingPreab stays true; the refresh command follows once the
		// Controller re-evaluates after PREAB's own latency completes.

	case cmd.IsRefresh():
		m.pendingPreab = false
		if m.flex > -m.cfg.MaxPulledin {
			m.flex--
		}
		if bankIndex >= 0 && bankIndex < len(m.banks) {
			if cmd == command.RFMAB || cmd == command.RFMPB {
				m.banks[bankIndex].ResetRAA()
			}
			for _, b := range m.banks {
				b.Unblock()
			}
		} else {
			for _, b := range m.banks {
				b.Unblock()
			}
		}
	}
}

// TriggerInterruption clears the sleeping flag recorded by SetSleeping.
// Waking the rank itself is powerdown.Manager.TriggerInterruption's job.
func (m *Manager) TriggerInterruption() {
	m.sleeping = false
}
