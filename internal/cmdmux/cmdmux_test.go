package cmdmux

import (
	"testing"

	"github.com/dramsim/dramsim/internal/command"
)

func TestOldestPicksSmallestCompletionTime(t *testing.T) {
	m := New(Oldest, nil)
	cands := []Candidate{
		{Command: command.RD, EarliestTime: 10, Latency: 5, ID: 1},
		{Command: command.WR, EarliestTime: 5, Latency: 2, ID: 2},
	}
	got, ok := m.Select(cands, 5)
	if !ok || got.ID != 2 {
		t.Fatalf("Select = %+v, ok=%v, want the WR candidate (completion 7 < 15)", got, ok)
	}
}

func TestOldestTieBreaksByID(t *testing.T) {
	m := New(Oldest, nil)
	cands := []Candidate{
		{Command: command.RD, EarliestTime: 10, Latency: 0, ID: 5},
		{Command: command.RD, EarliestTime: 10, Latency: 0, ID: 2},
	}
	got, ok := m.Select(cands, 10)
	if !ok || got.ID != 2 {
		t.Fatalf("Select = %+v, ok=%v, want ID=2 (smallest on tie)", got, ok)
	}
}

func TestNotReadyReturnsNotOK(t *testing.T) {
	m := New(Oldest, nil)
	cands := []Candidate{{Command: command.RD, EarliestTime: 20, Latency: 0}}
	_, ok := m.Select(cands, 10)
	if ok {
		t.Fatal("Select should report not-ok when the winning candidate's earliestTime is in the future")
	}
}

func TestOldestRasCasPicksOneFromEachClassThenArbitrates(t *testing.T) {
	m := New(OldestRasCas, nil)
	cands := []Candidate{
		{Command: command.ACT, EarliestTime: 10, Latency: 1, ID: 1},
		{Command: command.RD, EarliestTime: 10, Latency: 0, ID: 2},
	}
	got, ok := m.Select(cands, 10)
	if !ok || got.ID != 2 {
		t.Fatalf("Select = %+v, ok=%v, want the CAS candidate (completion 10 < 11)", got, ok)
	}
}

func TestStrictHonorsConfiguredPriority(t *testing.T) {
	m := New(Strict, []command.Command{command.REFAB, command.ACT})
	cands := []Candidate{
		{Command: command.ACT, EarliestTime: 10, Latency: 0, ID: 1},
		{Command: command.REFAB, EarliestTime: 10, Latency: 0, ID: 2},
	}
	got, ok := m.Select(cands, 10)
	if !ok || got.Command != command.REFAB {
		t.Fatalf("Select = %+v, ok=%v, want REFAB (configured first in priority)", got, ok)
	}
}
