package checker

import (
	"testing"
	"time"

	"github.com/dramsim/dramsim/internal/command"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/payload"
)

func testSpec() *memspec.MemSpec {
	return memspec.New("test", memspec.DDR4, memspec.Topology{BurstLength: 8, DataRate: 2}, memspec.Timing{
		TCK: time.Nanosecond,
		TRCD: 13, TRCDWR: 13, TRP: 13, TRAS: 33, TRC: 46,
		TRRD_S: 4, TRRD_L: 6, TCCD_S: 4, TCCD_L: 6,
		TRTP: 8, TWR: 15,
		TWTR_S: 4, TWTR_L: 8,
		TRFC: 260, TRFCPB: 130, TRREFD: 6,
		TFAW: 26, TWL: 10, TRL: 13, TRTRS: 2,
		TCKE: 5, TXP: 6, TXS: 270,
	})
}

func mkPayload(bank payload.Bank, row uint64) *payload.Payload {
	p := payload.New(command.RD, 0, 64)
	p.Controller.Coords.Rank = bank.Rank
	p.Controller.Coords.BankGroup = bank.BankGroup
	p.Controller.Coords.Bank = bank.Bank
	p.Controller.Coords.Row = row
	return p
}

func TestACTSameBankNeedsTRC(t *testing.T) {
	c := New(testSpec())
	bank := payload.Bank{Bank: 0}
	p := mkPayload(bank, 1)

	c.Insert(command.ACT, p, 0)
	got := c.EarliestTime(command.ACT, p, 0)
	if got != 46 {
		t.Fatalf("EarliestTime(ACT) after ACT at t=0 = %v, want tRC=46", got)
	}
}

func TestRDNeedsTRCDAfterACT(t *testing.T) {
	c := New(testSpec())
	bank := payload.Bank{Bank: 0}
	p := mkPayload(bank, 1)

	c.Insert(command.ACT, p, 0)
	got := c.EarliestTime(command.RD, p, 0)
	if got != 13 {
		t.Fatalf("EarliestTime(RD) after ACT at t=0 = %v, want tRCD=13", got)
	}
}

func TestPrechargeNeedsTRASAfterACT(t *testing.T) {
	c := New(testSpec())
	bank := payload.Bank{Bank: 0}
	p := mkPayload(bank, 1)

	c.Insert(command.ACT, p, 0)
	got := c.EarliestTime(command.PREPB, p, 0)
	if got != 33 {
		t.Fatalf("EarliestTime(PREPB) after ACT at t=0 = %v, want tRAS=33", got)
	}
}

// TestScenarioS3 reproduces spec.md §8 S3: admitting 5 ACTs to distinct
// banks of one rank at cycle 0, the 5th ACT must not be permitted before
// the first ACT's timestamp plus tFAW.
func TestScenarioS3FAWBlocksFifthACT(t *testing.T) {
	c := New(testSpec())
	rank := uint64(0)

	// Space ACTs 6ns apart (tRRD_L, the most restrictive per-ACT spacing
	// this MemSpec defines) so tFAW, not tRRD, is the binding constraint
	// on the 5th ACT.
	now := time.Duration(0)
	for bankID := uint64(0); bankID < 4; bankID++ {
		bank := payload.Bank{Rank: rank, Bank: bankID}
		p := mkPayload(bank, 0)
		c.Insert(command.ACT, p, now)
		now += 6
	}
	now -= 6 // now is the 4th ACT's issue time

	fifth := mkPayload(payload.Bank{Rank: rank, Bank: 4}, 0)
	got := c.EarliestTime(command.ACT, fifth, now)
	if got != 26 {
		t.Fatalf("EarliestTime(5th ACT) = %v, want tFAW=26 from the first ACT", got)
	}
}

func TestCrossRankReadTurnaroundUsesRTRS(t *testing.T) {
	c := New(testSpec())
	bankA := payload.Bank{Rank: 0, Bank: 0}
	bankB := payload.Bank{Rank: 1, Bank: 0}
	pa := mkPayload(bankA, 0)
	pb := mkPayload(bankB, 0)

	c.Insert(command.RD, pa, 100)
	got := c.EarliestTime(command.RD, pb, 100)
	burst := testSpec().BurstDuration()
	want := 100 + burst + testSpec().Timing.TRTRS
	if got != want {
		t.Fatalf("EarliestTime(cross-rank RD) = %v, want %v (burst+tRTRS)", got, want)
	}
}

func TestRefreshRequiresTRFCBeforeNextACT(t *testing.T) {
	c := New(testSpec())
	rank := uint64(0)
	refPayload := mkPayload(payload.Bank{Rank: rank}, 0)
	c.Insert(command.REFAB, refPayload, 0)

	p := mkPayload(payload.Bank{Rank: rank, Bank: 2}, 0)
	got := c.EarliestTime(command.ACT, p, 0)
	if got != 260 {
		t.Fatalf("EarliestTime(ACT) after REFAB = %v, want tRFC=260", got)
	}
}
