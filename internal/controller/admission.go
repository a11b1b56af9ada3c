package controller

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/initiator"
	"github.com/dramsim/dramsim/internal/payload"
)

// initiatorState is the Controller's per-stream admission pump: it pulls
// Requests from src no faster than src.NextTrigger() allows, holding at
// most one staged (decoded, not-yet-admitted) payload at a time so that a
// Scheduler.CanAdmit or maxPendingRead/WriteRequests stall blocks that
// stream in place rather than dropping or reordering requests.
type initiatorState struct {
	name      string
	src       initiator.Initiator
	maxReads  uint
	maxWrites uint
	origin    payload.Origin

	pendingReads  uint
	pendingWrites uint

	staged        *payload.Payload
	stagedIsWrite bool

	nextPullAt time.Duration
	stopped    bool
}

func newInitiatorState(thread int, is InitiatorSetup) *initiatorState {
	return &initiatorState{
		name:      is.Name,
		src:       is.Src,
		maxReads:  is.MaxPendingReadRequests,
		maxWrites: is.MaxPendingWriteRequests,
		origin:    originOf(is.Src),
	}
}

func originOf(src initiator.Initiator) payload.Origin {
	switch src.(type) {
	case *initiator.Player:
		return payload.OriginPlayer
	case *initiator.GeneratorStub:
		return payload.OriginGenerator
	default:
		return payload.OriginUnknown
	}
}

// pumpAdmission advances every initiator's admission pump by one step: pull
// a fresh request if none is staged and the stream is due, then try to
// admit whatever is staged into the Scheduler.
func (c *Controller) pumpAdmission(now time.Duration) {
	for i, is := range c.initiators {
		if is.stopped {
			continue
		}
		if is.staged == nil && now >= is.nextPullAt {
			c.pull(i, is, now)
		}
		if is.staged != nil {
			c.tryAdmit(is, now)
		}
	}
}

func (c *Controller) pull(thread int, is *initiatorState, now time.Duration) {
	req := is.src.NextRequest()
	if req.Kind == initiator.KindStop {
		is.stopped = true
		return
	}

	coords, err := c.decoder.Decode(req.Addr)
	if err != nil {
		c.log.WithError(err).WithField("initiator", is.name).Error("address decode failed, halting")
		c.runErr = err
		c.stopped = true
		return
	}

	cmd := command.RD
	if req.Kind == initiator.KindWrite {
		cmd = command.WR
	}

	c.nextPayloadID++
	p := payload.New(cmd, req.Addr, req.Len)
	p.Controller = payload.ControllerExtension{Coords: coords, ID: c.nextPayloadID}
	p.Arbiter = payload.ArbiterExtension{Thread: uint(thread), Origin: is.origin, Arrival: now}
	if req.Kind == initiator.KindWrite {
		p.Data = req.Data
	}

	is.staged = p
	is.stagedIsWrite = req.Kind == initiator.KindWrite
	is.nextPullAt = now + is.src.NextTrigger()
}

func (c *Controller) tryAdmit(is *initiatorState, now time.Duration) {
	if is.stagedIsWrite {
		if is.maxWrites > 0 && is.pendingWrites >= is.maxWrites {
			return
		}
	} else if is.maxReads > 0 && is.pendingReads >= is.maxReads {
		return
	}
	if !c.sched.CanAdmit(is.staged) {
		return
	}

	c.sched.Admit(is.staged)
	if pd, ok := c.powerdownByRank[is.staged.Controller.Coords.Rank]; ok {
		pd.TriggerInterruption()
	}
	if is.stagedIsWrite {
		is.pendingWrites++
	} else {
		is.pendingReads++
	}
	is.staged = nil
}
