package controller

import (
	"time"

	"github.com/dramsim/dramsim/internal/bankmachine"
	"github.com/dramsim/dramsim/internal/cmdmux"
	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/powerdown"
	"github.com/dramsim/dramsim/internal/refresh"
)

// gatherCandidates polls every BankMachine, then every rank's
// RefreshManager and PowerDownManager, building the cycle's full candidate
// list (spec.md §4.6) plus the Controller-side metadata needed to route
// CmdMux's winner back to the right subsystem.
func (c *Controller) gatherCandidates(now time.Duration) ([]cmdmux.Candidate, map[uint64]*rawCandidate) {
	var synth uint64
	nextSynthID := func() uint64 {
		id := syntheticIDBase + synth
		synth++
		return id
	}

	meta := make(map[uint64]*rawCandidate)
	var cands []cmdmux.Candidate

	quiescent := make(map[uint64]bool, len(c.banksByRank))
	for rank := range c.banksByRank {
		quiescent[rank] = true
	}

	add := func(rc *rawCandidate) {
		if rc.cmd == command.NOP {
			return
		}
		meta[rc.id] = rc
		cands = append(cands, cmdmux.Candidate{
			Command:      rc.cmd,
			Payload:      rc.payload,
			EarliestTime: c.earliestAcrossBanks(rc.cmd, rc.affected, now),
			ID:           rc.id,
			Latency:      c.spec.CommandLatency(rc.cmd),
		})
	}

	for _, bm := range c.allBanks {
		cand := bm.NextCommand(now)
		if cand.Command == command.NOP {
			continue
		}
		quiescent[bm.Bank().Rank] = false
		add(&rawCandidate{
			id:       idFor(cand, nextSynthID),
			cmd:      cand.Command,
			affected: []*bankmachine.BankMachine{bm},
			rank:     bm.Bank().Rank,
			src:      sourceBank,
			payload:  cand.Payload,
		})
	}

	for rank, rm := range c.refreshByRank {
		refCand := rm.Evaluate(now)
		if refCand.Command == command.NOP {
			continue
		}
		if pd, ok := c.powerdownByRank[rank]; ok && pd.State() != powerdown.Awake {
			// A sleeping/powered-down rank defers its refresh until the
			// interruption it requests here actually wakes it up (spec.md
			// §4.4: "a sleeping rank's refreshes defer to triggerInterruption").
			pd.TriggerInterruption()
			continue
		}
		quiescent[rank] = false
		add(&rawCandidate{
			id:               nextSynthID(),
			cmd:              refCand.Command,
			affected:         c.affectedBanksForRefresh(rank, refCand),
			rank:             rank,
			src:              sourceRefresh,
			refreshBankIndex: refCand.BankIndex,
		})
	}

	for rank, pd := range c.powerdownByRank {
		pdCand := pd.Evaluate(now, quiescent[rank])
		if pdCand.Command == command.NOP {
			continue
		}
		add(&rawCandidate{
			id:       nextSynthID(),
			cmd:      pdCand.Command,
			affected: c.banksByRank[rank],
			rank:     rank,
			src:      sourcePowerdown,
		})
	}

	return cands, meta
}

// idFor assigns a bank-sourced candidate's ID: the real payload's
// channel-monotonic ID when it carries one, else a fresh synthetic ID
// (idle precharge has no payload).
func idFor(cand bankmachine.Candidate, nextSynthID func() uint64) uint64 {
	if cand.Payload != nil {
		return cand.Payload.Controller.ID
	}
	return nextSynthID()
}

// affectedBanksForRefresh resolves a refresh.Candidate's BankIndex (-1 for
// every bank in the rank, else one specific bank) to the BankMachines it
// actually touches.
func (c *Controller) affectedBanksForRefresh(rank uint64, cand refresh.Candidate) []*bankmachine.BankMachine {
	banks := c.banksByRank[rank]
	if cand.BankIndex < 0 || cand.BankIndex >= len(banks) {
		return banks
	}
	return banks[cand.BankIndex : cand.BankIndex+1]
}

// earliestAcrossBanks is the max EarliestTime a command needs across every
// bank it affects — a single term for bank-sourced/per-bank-refresh
// candidates, several for whole-rank PREAB/REFAB/power-down commands.
// Checker's constraint tables only ever consult a payload's Bank
// coordinates (never Row/Column), so the construction-time stub payload for
// each bank is a correct stand-in regardless of whether a real payload
// exists for this candidate.
func (c *Controller) earliestAcrossBanks(cmd command.Command, affected []*bankmachine.BankMachine, now time.Duration) time.Duration {
	best := now
	for _, bm := range affected {
		if t := c.chk.EarliestTime(cmd, c.bankStub[bm.Bank()], now); t > best {
			best = t
		}
	}
	return best
}
