package controller

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/payload"
)

// applyIssued performs every state update CmdMux's chosen candidate implies:
// every affected BankMachine's OnIssued, the proposing subsystem's own
// Update, scheduler removal and response scheduling for a terminal CAS, and
// the refresh/power-down cross-signaling of spec.md §4.4.
func (c *Controller) applyIssued(m *rawCandidate, now time.Duration) {
	for _, bm := range m.affected {
		bm.OnIssued(m.cmd, now)
	}

	switch m.src {
	case sourceRefresh:
		c.refreshByRank[m.rank].Update(m.cmd, m.refreshBankIndex, now)
	case sourcePowerdown:
		c.powerdownByRank[m.rank].Update(m.cmd, now)
		c.syncSleepState(m.rank, m.cmd)
	}

	if m.payload == nil {
		return
	}

	if m.cmd.IsTerminalCAS() {
		c.sched.Remove(m.payload)
		c.scheduleCompletion(m.payload, m.cmd, now)
	}
}

// syncSleepState tells this rank's RefreshManager whether PowerDownManager
// just put it to sleep or woke it up, per spec.md §4.4.
func (c *Controller) syncSleepState(rank uint64, cmd command.Command) {
	rm, ok := c.refreshByRank[rank]
	if !ok {
		return
	}
	switch {
	case cmd.IsPowerDownEntry():
		rm.SetSleeping(true)
	case cmd.IsPowerDownExit():
		rm.SetSleeping(false)
	}
}

// scheduleCompletion arranges for p's data-bus window to close and its
// response to reach the ResponseQueue, delivering it to the initiator
// (decrementing the owning stream's pending count) the moment it is pushed,
// since neither Fifo nor Reorder here models an initiator-side readiness
// signal finer than "as soon as it's available."
func (c *Controller) scheduleCompletion(p *payload.Payload, cmd command.Command, issuedAt time.Duration) {
	window := c.spec.DataWindow(cmd)
	c.kern.ScheduleAt(issuedAt+window.End, func(now time.Duration) {
		p.Release()
		c.resp.Push(p)
		delivered := c.resp.Pop(func(*payload.Payload) bool { return true })
		if delivered == nil {
			return
		}
		c.completed++
		if c.Progress != nil {
			c.Progress(c.completed)
		}
		c.creditThread(delivered)
	})
}

// creditThread decrements the originating initiator's pending-request
// count once its response has been delivered, freeing admission's
// maxPendingRead/WriteRequests backpressure.
func (c *Controller) creditThread(p *payload.Payload) {
	thread := int(p.Arbiter.Thread)
	if thread < 0 || thread >= len(c.initiators) {
		return
	}
	is := c.initiators[thread]
	if p.Command.IsWrite() {
		if is.pendingWrites > 0 {
			is.pendingWrites--
		}
	} else if is.pendingReads > 0 {
		is.pendingReads--
	}
}
