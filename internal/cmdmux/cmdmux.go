// Package cmdmux implements the command multiplexer of spec.md §4.6: given
// the full set of candidates proposed this cycle by every BankMachine, the
// RefreshManager, and the PowerDownManager, pick at most one to issue.
package cmdmux

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/payload"
)

// Variant enumerates the CmdMux enum of spec.md §6.1's mcconfig.
type Variant int

const (
	Oldest Variant = iota
	OldestRasCas
	Strict
)

// Candidate is a (command, payload, earliestTime) tuple proposed by a
// BankMachine, RefreshManager, or PowerDownManager for this cycle.
// Payload is nil for candidates that don't carry one (refresh/power-down
// commands). ID breaks ties by channel-payload-id; candidates without a
// payload use a caller-assigned synthetic id (e.g. the proposing
// component's own sequence number) so the tie-break stays deterministic.
type Candidate struct {
	Command      command.Command
	Payload      *payload.Payload
	EarliestTime time.Duration
	ID           uint64
	Latency      time.Duration
}

// Mux selects among a cycle's candidates.
type Mux struct {
	variant  Variant
	priority []command.Command // Strict variant's configured class order
}

// New constructs a Mux. priority is consulted only when variant is Strict;
// it lists command classes (by a representative command, compared via
// classOf) in decreasing priority.
func New(variant Variant, priority []command.Command) *Mux {
	return &Mux{variant: variant, priority: priority}
}

// Select picks one candidate from cands by the configured variant and
// issues it only if it is ready (earliestTime == now), per spec.md §4.6's
// "issued iff earliestTime == now" rule. It reports ok=false if cands is
// empty or the picked candidate is not ready; other, ready candidates are
// not issued in that case.
func (m *Mux) Select(cands []Candidate, now time.Duration) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}

	var chosen Candidate
	switch m.variant {
	case OldestRasCas:
		chosen = m.selectRasCas(cands)
	case Strict:
		chosen = m.selectStrict(cands)
	default:
		chosen = oldest(cands)
	}

	if chosen.EarliestTime != now {
		return Candidate{}, false
	}
	return chosen, true
}

// oldest picks the candidate with the smallest completion time
// (earliestTime + commandLatency), tied-broken by smallest ID.
func oldest(cands []Candidate) Candidate {
	best := cands[0]
	bestCompletion := best.EarliestTime + best.Latency
	for _, c := range cands[1:] {
		completion := c.EarliestTime + c.Latency
		if completion < bestCompletion || (completion == bestCompletion && c.ID < best.ID) {
			best = c
			bestCompletion = completion
		}
	}
	return best
}

func (m *Mux) selectRasCas(cands []Candidate) Candidate {
	var ras, cas []Candidate
	for _, c := range cands {
		if c.Command.IsRas() {
			ras = append(ras, c)
		} else {
			cas = append(cas, c)
		}
	}
	switch {
	case len(ras) == 0:
		return oldest(cas)
	case len(cas) == 0:
		return oldest(ras)
	default:
		return oldest([]Candidate{oldest(ras), oldest(cas)})
	}
}

func (m *Mux) selectStrict(cands []Candidate) Candidate {
	if len(m.priority) == 0 {
		return oldest(cands)
	}
	for _, class := range m.priority {
		var inClass []Candidate
		for _, c := range cands {
			if classOf(c.Command) == classOf(class) {
				inClass = append(inClass, c)
			}
		}
		if len(inClass) > 0 {
			return oldest(inClass)
		}
	}
	return oldest(cands)
}

// classOf buckets a command into the coarse class Strict's priority list
// is expressed over: RAS, CAS, refresh, or power-down.
func classOf(cmd command.Command) int {
	switch {
	case cmd.IsRas():
		return 0
	case cmd.IsCas():
		return 1
	case cmd.IsRefresh():
		return 2
	case cmd.IsPowerDown():
		return 3
	default:
		return 4
	}
}
