// Package controller implements the Controller of spec.md §4 and §5: the
// per-channel composition that, every device clock, advances every
// BankMachine's latched state, gathers the cycle's command candidates from
// every BankMachine plus the rank-level RefreshManagers and
// PowerDownManagers, lets the Checker stamp and gate them, hands the result
// to CmdMux, and applies the winning command's state update everywhere it
// belongs.
package controller

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dramsim/dramsim/internal/addr"
	"github.com/dramsim/dramsim/internal/bankmachine"
	"github.com/dramsim/dramsim/internal/checker"
	"github.com/dramsim/dramsim/internal/cmdmux"
	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/config"
	"github.com/dramsim/dramsim/internal/initiator"
	"github.com/dramsim/dramsim/internal/kernel"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/payload"
	"github.com/dramsim/dramsim/internal/powerdown"
	"github.com/dramsim/dramsim/internal/refresh"
	"github.com/dramsim/dramsim/internal/respqueue"
	"github.com/dramsim/dramsim/internal/scheduler"
)

// source names which subsystem proposed a rawCandidate, so the Controller
// knows which Manager(s) to notify once CmdMux picks a winner.
type source uint8

const (
	sourceBank source = iota
	sourceRefresh
	sourcePowerdown
)

// rawCandidate is the Controller's own bookkeeping alongside a
// cmdmux.Candidate: which bank(s) it affects, and which subsystem proposed
// it, so OnIssued/Update can be routed correctly after CmdMux.Select.
type rawCandidate struct {
	id               uint64
	cmd              command.Command
	affected         []*bankmachine.BankMachine
	rank             uint64
	src              source
	refreshBankIndex int
	// payload is the real admitted transaction this candidate carries, nil
	// for commands with none (idle precharge, refresh, power-down).
	payload *payload.Payload
}

// syntheticIDBase separates synthetic candidate IDs (refresh/power-down/
// bank-only precharge) from real payload IDs, which start at 1 and only
// grow by admission count — nowhere near this range in any simulation this
// repository is sized for.
const syntheticIDBase = uint64(1) << 60

// Controller is the per-channel composition of spec.md §4/§5.
type Controller struct {
	spec    *memspec.MemSpec
	decoder *addr.Decoder
	mcfg    config.MCConfig
	sched   *scheduler.Scheduler
	chk     *checker.Checker
	mux     *cmdmux.Mux
	resp    *respqueue.Queue
	kern    kernel.Kernel
	log     *logrus.Entry

	allBanks    []*bankmachine.BankMachine
	banksByRank map[uint64][]*bankmachine.BankMachine
	bankStub    map[payload.Bank]*payload.Payload

	refreshByRank   map[uint64]*refresh.Manager
	powerdownByRank map[uint64]*powerdown.Manager

	initiators []*initiatorState

	nextPayloadID uint64

	completed uint64
	runErr    error
	stopped   bool

	// onIssue, if set, is called with every command CmdMux selects and its
	// full Controller-side bookkeeping, right after state updates apply.
	// It exists for scenario tests asserting an exact issued-command
	// sequence (spec.md §8 S1-S5); production use has no need for it.
	onIssue func(rc *rawCandidate, now time.Duration)

	// Progress, if set, is called with the running completed-transaction
	// count every time one finishes. cmd/simctl's --progress flag is the
	// only consumer; spec.md §6.4 calls this purely cosmetic.
	Progress func(completed uint64)
}

// New constructs a Controller for one channel: every bank of spec's
// Topology, one RefreshManager and one PowerDownManager per rank, and a
// pull-driven admission pump over inits.
func New(spec *memspec.MemSpec, decoder *addr.Decoder, mcfg config.MCConfig, kern kernel.Kernel, log *logrus.Entry, inits []InitiatorSetup) *Controller {
	c := &Controller{
		spec:            spec,
		decoder:         decoder,
		mcfg:            mcfg,
		sched:           scheduler.New(mcfg.Scheduler),
		chk:             checker.New(spec),
		mux:             cmdmux.New(mcfg.CmdMux, priorityCommands(mcfg.CmdMuxPriority)),
		resp:            respqueue.New(mcfg.RespQueue),
		kern:            kern,
		log:             log,
		banksByRank:     make(map[uint64][]*bankmachine.BankMachine),
		bankStub:        make(map[payload.Bank]*payload.Payload),
		refreshByRank:   make(map[uint64]*refresh.Manager),
		powerdownByRank: make(map[uint64]*powerdown.Manager),
	}

	for rank := uint64(0); rank < uint64(spec.Topo.Ranks); rank++ {
		var rankBanks []*bankmachine.BankMachine
		for bg := uint64(0); bg < uint64(spec.Topo.BankGroups); bg++ {
			for bank := uint64(0); bank < uint64(spec.Topo.Banks); bank++ {
				b := payload.Bank{Rank: rank, BankGroup: bg, Bank: bank}
				bm := bankmachine.New(b, spec, mcfg.PagePolicy, c.sched)
				c.allBanks = append(c.allBanks, bm)
				rankBanks = append(rankBanks, bm)
				c.bankStub[b] = &payload.Payload{Controller: payload.ControllerExtension{
					Coords: payload.Coordinates{Rank: rank, BankGroup: bg, Bank: bank},
				}}
			}
		}
		c.banksByRank[rank] = rankBanks

		refreshViews := make([]refresh.BankView, len(rankBanks))
		powerdownViews := make([]powerdown.BankView, len(rankBanks))
		for i, bm := range rankBanks {
			refreshViews[i] = bm
			powerdownViews[i] = bm
		}
		c.refreshByRank[rank] = refresh.New(refresh.Config{
			Policy:          mcfg.RefreshPolicy,
			TREFI:           spec.Timing.TREFI,
			MaxPostponed:    mcfg.RefreshMaxPostponed,
			MaxPulledin:     mcfg.RefreshMaxPulledin,
			RFMEnabled:      mcfg.RefreshManagement,
			RAAIMT:          spec.Timing.RAAIMT,
			RAAMMT:          spec.Timing.RAAMMT,
			RanksPerChannel: spec.Topo.Ranks,
			RankIndex:       uint(rank),
		}, refreshViews)
		c.powerdownByRank[rank] = powerdown.New(powerdown.Config{
			Policy:                   mcfg.PowerDownPolicy,
			IdleCyclesForPowerDown:   spec.Timing.TCK * time.Duration(mcfg.IdleCyclesForPowerDown),
			IdleCyclesForSelfRefresh: spec.Timing.TCK * time.Duration(mcfg.IdleCyclesForSelfRefresh),
		}, powerdownViews)
	}

	for i, is := range inits {
		c.initiators = append(c.initiators, newInitiatorState(i, is))
	}

	return c
}

// InitiatorSetup is the construction-time pairing of an Initiator with its
// per-stream backpressure caps, per spec.md §6.3.
type InitiatorSetup struct {
	Name                    string
	Src                     initiator.Initiator
	MaxPendingReadRequests  uint
	MaxPendingWriteRequests uint
}

// priorityCommands maps mcconfig's CmdMuxPriority class names (spec.md
// §6.1: "RAS", "CAS", "REF", "PD") to one representative command per class,
// the form cmdmux.Mux's Strict variant consumes.
func priorityCommands(classes []string) []command.Command {
	reps := map[string]command.Command{
		"RAS": command.ACT,
		"CAS": command.RD,
		"REF": command.REFAB,
		"PD":  command.PDEA,
	}
	out := make([]command.Command, 0, len(classes))
	for _, name := range classes {
		if cmd, ok := reps[name]; ok {
			out = append(out, cmd)
		}
	}
	return out
}

// Err returns the first fatal error encountered while running, if any
// (spec.md §7's address-out-of-range and similar runtime faults).
func (c *Controller) Err() error { return c.runErr }

// Completed returns how many transactions have been fully delivered to
// their initiator.
func (c *Controller) Completed() uint64 { return c.completed }

// Done reports whether every initiator has stopped producing requests, no
// payload remains admitted or staged, and the response queue is drained —
// the condition spec.md §5 calls "nothing left to do."
func (c *Controller) Done() bool {
	if c.stopped {
		return true
	}
	for _, is := range c.initiators {
		if !is.stopped || is.staged != nil || is.pendingReads > 0 || is.pendingWrites > 0 {
			return false
		}
	}
	return c.resp.Len() == 0
}

// Run drives the Controller to completion: every tCK, advance latches,
// pump admission, gather candidates, issue at most one, and schedule any
// resulting response. It stops early if a fatal runtime error occurs.
func (c *Controller) Run() {
	var tick kernel.Callback
	tick = func(now time.Duration) {
		c.step(now)
		if c.stopped || c.Done() {
			return
		}
		c.kern.ScheduleAfter(c.spec.Timing.TCK, tick)
	}
	c.kern.ScheduleAfter(0, tick)
	c.kern.Run(func() bool { return c.stopped || c.Done() })
}

// step runs one device clock's worth of Controller logic at time now.
func (c *Controller) step(now time.Duration) {
	for _, bm := range c.allBanks {
		bm.AdvanceLatched(now)
	}

	c.pumpAdmission(now)

	cands, meta := c.gatherCandidates(now)
	chosen, ok := c.mux.Select(cands, now)
	if !ok {
		return
	}

	m := meta[chosen.ID]
	if m == nil {
		return
	}

	for _, bm := range m.affected {
		c.chk.Assert(chosen.Command, c.bankStub[bm.Bank()], now)
	}
	for _, bm := range m.affected {
		c.chk.Insert(chosen.Command, c.bankStub[bm.Bank()], now)
	}

	c.applyIssued(m, now)
	if c.onIssue != nil {
		c.onIssue(m, now)
	}
}
