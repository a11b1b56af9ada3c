package powerdown

import (
	"testing"
	"time"

	"github.com/dramsim/dramsim/internal/command"
)

type fakeBank struct{ activated bool }

func (f *fakeBank) IsActivated() bool { return f.activated }

func TestNoPowerDownPolicyNeverProposes(t *testing.T) {
	m := New(Config{Policy: NoPowerDown}, []BankView{&fakeBank{}})
	if got := m.Evaluate(1000*time.Nanosecond, true); got.Command != command.NOP {
		t.Fatalf("Evaluate under NoPowerDown = %v, want NOP", got.Command)
	}
}

func TestEntersPrechargePowerDownAfterIdleWindow(t *testing.T) {
	m := New(Config{Policy: Staggered, IdleCyclesForPowerDown: 10 * time.Nanosecond}, []BankView{&fakeBank{}})

	if got := m.Evaluate(0, true); got.Command != command.NOP {
		t.Fatalf("first quiescent Evaluate = %v, want NOP (idle window just started)", got.Command)
	}
	if got := m.Evaluate(5*time.Nanosecond, true); got.Command != command.NOP {
		t.Fatalf("Evaluate mid-window = %v, want NOP", got.Command)
	}
	got := m.Evaluate(10*time.Nanosecond, true)
	if got.Command != command.PDEP {
		t.Fatalf("Evaluate after idle window = %v, want PDEP (no bank activated)", got.Command)
	}
}

func TestEntersActivePowerDownWhenBankActivated(t *testing.T) {
	bank := &fakeBank{activated: true}
	m := New(Config{Policy: Staggered, IdleCyclesForPowerDown: 10 * time.Nanosecond}, []BankView{bank})

	m.Evaluate(0, true)
	got := m.Evaluate(10*time.Nanosecond, true)
	if got.Command != command.PDEA {
		t.Fatalf("Evaluate with an activated bank = %v, want PDEA", got.Command)
	}
}

func TestNonQuiescentCycleResetsIdleWindow(t *testing.T) {
	m := New(Config{Policy: Staggered, IdleCyclesForPowerDown: 10 * time.Nanosecond}, []BankView{&fakeBank{}})

	m.Evaluate(0, true)
	m.Evaluate(5*time.Nanosecond, false) // traffic arrives, idle window resets
	got := m.Evaluate(10*time.Nanosecond, true)
	if got.Command != command.NOP {
		t.Fatalf("Evaluate = %v, want NOP (idle window should have restarted)", got.Command)
	}
}

func TestSelfRefreshEnteredAfterDeeperIdleWindow(t *testing.T) {
	m := New(Config{
		Policy: Staggered, IdleCyclesForPowerDown: 10 * time.Nanosecond,
		IdleCyclesForSelfRefresh: 20 * time.Nanosecond,
	}, []BankView{&fakeBank{}})

	m.Evaluate(0, true)
	got := m.Evaluate(10*time.Nanosecond, true)
	if got.Command != command.PDEP {
		t.Fatalf("Evaluate at power-down threshold = %v, want PDEP", got.Command)
	}
	m.Update(command.PDEP, 10*time.Nanosecond)

	if got := m.Evaluate(20*time.Nanosecond, true); got.Command != command.NOP {
		t.Fatalf("Evaluate before self-refresh threshold = %v, want NOP", got.Command)
	}
	if got := m.Evaluate(30*time.Nanosecond, true); got.Command != command.SREFEN {
		t.Fatalf("Evaluate after self-refresh threshold = %v, want SREFEN", got.Command)
	}
}

func TestTriggerInterruptionForcesExit(t *testing.T) {
	m := New(Config{Policy: Staggered, IdleCyclesForPowerDown: 10 * time.Nanosecond}, []BankView{&fakeBank{}})
	m.Evaluate(0, true)
	m.Evaluate(10*time.Nanosecond, true)
	m.Update(command.PDEP, 10*time.Nanosecond)

	m.TriggerInterruption()
	got := m.Evaluate(11*time.Nanosecond, true)
	if got.Command != command.PDXP {
		t.Fatalf("Evaluate after TriggerInterruption = %v, want PDXP", got.Command)
	}
	m.Update(command.PDXP, 11*time.Nanosecond)
	if m.State() != Awake {
		t.Fatalf("State after PDXP = %v, want Awake", m.State())
	}
}
