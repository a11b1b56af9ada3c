// Package powerdown implements the per-rank PowerDownManager of spec.md
// §4.4: idle-triggered entry into active/precharge power-down and deeper
// self-refresh, preempted by an arriving refresh or new traffic.
package powerdown

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
)

// Policy enumerates the PowerDownPolicy enum of spec.md §6.1's mcconfig.
type Policy int

const (
	NoPowerDown Policy = iota
	Staggered
)

// RankState is the rank-level power state (distinct from any one bank's
// BankMachine.State, which a power-down command also updates). Awake is
// the baseline, not-powered-down condition; Active/Precharged name the two
// power-down flavors of spec.md §4.4 ("active" keeps banks open, bank
// state surviving the power-down; "precharged" requires every bank idle
// first).
type RankState int

const (
	Awake RankState = iota
	Active
	Precharged
	SelfRefresh
)

func (s RankState) String() string {
	switch s {
	case Active:
		return "Active"
	case Precharged:
		return "Precharged"
	case SelfRefresh:
		return "SelfRefresh"
	default:
		return "Awake"
	}
}

// BankView is the subset of BankMachine the PowerDownManager needs: only
// whether a bank currently holds an open row, to decide between the
// active and precharge flavor of power-down. Whether the rank has any
// pending traffic at all is a separate, Controller-supplied signal (see
// Evaluate), since that depends on the Scheduler's queues too.
type BankView interface {
	IsActivated() bool
}

// Config carries spec.md §6.1's power-down knobs. Validation lives in
// internal/config.
type Config struct {
	Policy Policy
	// IdleCyclesForPowerDown is how long the rank must be continuously
	// idle before PDEA/PDEP is proposed.
	IdleCyclesForPowerDown time.Duration
	// IdleCyclesForSelfRefresh is the deeper idle window, measured from
	// power-down entry, after which self-refresh replaces power-down.
	IdleCyclesForSelfRefresh time.Duration
}

// Candidate is the command a PowerDownManager proposes for a cycle.
type Candidate struct {
	Command command.Command
}

var noCandidate = Candidate{Command: command.NOP}

// Manager is the per-rank PowerDownManager.
type Manager struct {
	cfg   Config
	banks []BankView

	state RankState

	idleSince     time.Duration
	idleSinceSet  bool
	poweredDownAt time.Duration

	// interrupted is set by TriggerInterruption and cleared once the exit
	// command (PDXA/PDXP/SREFEX) has actually been issued.
	interrupted bool
}

// New constructs a Manager for one rank.
func New(cfg Config, banks []BankView) *Manager {
	return &Manager{cfg: cfg, banks: banks}
}

// State returns the rank's current power state.
func (m *Manager) State() RankState { return m.state }

func (m *Manager) anyActivated() bool {
	for _, b := range m.banks {
		if b.IsActivated() {
			return true
		}
	}
	return false
}

// TriggerInterruption requests an immediate exit from power-down or
// self-refresh. The Controller invokes it when this rank's RefreshManager
// proposes a refresh while the rank is not Awake, and when it admits new
// traffic for this rank; on an Awake rank it has no effect.
func (m *Manager) TriggerInterruption() {
	if m.state != Awake {
		m.interrupted = true
	}
}

// Evaluate proposes the next power-state transition for this rank, or NOP.
// quiescent reports whether every bank on this rank has nothing pending to
// issue this cycle — the Controller computes it from the same candidate
// gathering pass that polls BankMachine.NextCommand.
func (m *Manager) Evaluate(now time.Duration, quiescent bool) Candidate {
	if m.cfg.Policy == NoPowerDown {
		return noCandidate
	}

	if m.interrupted {
		return m.exitCommand()
	}

	switch m.state {
	case Awake:
		return m.evaluateAwake(now, quiescent)
	case Precharged:
		return m.evaluatePrecharged(now)
	case Active, SelfRefresh:
		return noCandidate
	default:
		return noCandidate
	}
}

func (m *Manager) evaluateAwake(now time.Duration, quiescent bool) Candidate {
	if !quiescent {
		m.idleSinceSet = false
		return noCandidate
	}
	if !m.idleSinceSet {
		m.idleSince = now
		m.idleSinceSet = true
		return noCandidate
	}
	if now-m.idleSince < m.cfg.IdleCyclesForPowerDown {
		return noCandidate
	}
	if m.anyActivated() {
		return Candidate{Command: command.PDEA}
	}
	return Candidate{Command: command.PDEP}
}

func (m *Manager) evaluatePrecharged(now time.Duration) Candidate {
	if now-m.poweredDownAt < m.cfg.IdleCyclesForSelfRefresh {
		return noCandidate
	}
	return Candidate{Command: command.SREFEN}
}

func (m *Manager) exitCommand() Candidate {
	switch m.state {
	case SelfRefresh:
		return Candidate{Command: command.SREFEX}
	case Precharged:
		return Candidate{Command: command.PDXP}
	case Active:
		return Candidate{Command: command.PDXA}
	default:
		return noCandidate
	}
}

// Update records that cmd was actually issued at time now, advancing the
// rank power-state machine.
func (m *Manager) Update(cmd command.Command, now time.Duration) {
	switch cmd {
	case command.PDEA:
		m.state = Active
		m.poweredDownAt = now
	case command.PDEP:
		m.state = Precharged
		m.poweredDownAt = now
	case command.SREFEN:
		m.state = SelfRefresh
	case command.PDXA, command.PDXP, command.SREFEX:
		m.state = Awake
		m.interrupted = false
		m.idleSinceSet = false
	}
}
