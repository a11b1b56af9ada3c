// Package memspec describes the immutable DRAM device the controller core
// drives: topology counts and a named set of timing durations. A MemSpec is
// produced once, at configuration time, and held read-only by every other
// component for the lifetime of the simulation.
package memspec

import (
	"time"

	"github.com/dramsim/dramsim/internal/command"
)

// MemoryType enumerates the JEDEC (or vendor) standards this repository
// knows how to time. The Checker in internal/checker branches on this
// value's capability predicates below.
type MemoryType uint8

const (
	DDR3 MemoryType = iota
	DDR4
	DDR5
	LPDDR4
	LPDDR5
	WideIO
	WideIO2
	GDDR5
	GDDR5X
	GDDR6
	HBM2
	HBM3
	STTMRAM
)

var memoryTypeNames = map[MemoryType]string{
	DDR3: "DDR3", DDR4: "DDR4", DDR5: "DDR5",
	LPDDR4: "LPDDR4", LPDDR5: "LPDDR5",
	WideIO: "WideIO", WideIO2: "WideIO2",
	GDDR5: "GDDR5", GDDR5X: "GDDR5X", GDDR6: "GDDR6",
	HBM2: "HBM2", HBM3: "HBM3",
	STTMRAM: "STTMRAM",
}

func (t MemoryType) String() string {
	if n, ok := memoryTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// HasSplitCommandBus reports whether the standard issues RAS and CAS
// commands on independent buses (true for the wide, 2-command-per-cycle
// standards), as opposed to a single shared command bus.
func (t MemoryType) HasSplitCommandBus() bool {
	switch t {
	case HBM2, HBM3:
		return true
	default:
		return false
	}
}

// Has2CycleCommands reports whether a command occupies the command bus for
// two beats instead of one (HBM's dual-channel pseudo-command encoding).
func (t MemoryType) Has2CycleCommands() bool {
	return t == HBM2 || t == HBM3
}

// HasT32AW reports whether the standard defines the 32-activation sliding
// window constraint (GDDR5 family) in addition to tFAW.
func (t MemoryType) HasT32AW() bool {
	switch t {
	case GDDR5, GDDR5X, GDDR6:
		return true
	default:
		return false
	}
}

// HasRFM reports whether the standard defines DDR5-style refresh management
// (RFMAB/RFMPB) against a rolling activation accumulator.
func (t MemoryType) HasRFM() bool {
	return t == DDR5 || t == LPDDR5
}

// HasBankGroups reports whether the standard groups banks, and therefore
// distinguishes tRRD_L/tCCD_L (same group) from tRRD_S/tCCD_S (across
// groups).
func (t MemoryType) HasBankGroups() bool {
	switch t {
	case DDR4, DDR5, LPDDR5, GDDR5, GDDR5X, GDDR6:
		return true
	default:
		return false
	}
}

// HasPerBankRefresh reports whether the standard supports REFPB/REFSB in
// addition to REFAB.
func (t MemoryType) HasPerBankRefresh() bool {
	switch t {
	case LPDDR4, LPDDR5, DDR5:
		return true
	default:
		return false
	}
}

// Topology carries the device's geometric counts.
type Topology struct {
	Channels    uint
	Ranks       uint
	BankGroups  uint
	Banks       uint // per bank group
	Devices     uint
	Rows        uint
	Columns     uint
	DeviceWidth uint // bits
	BurstLength uint // beats
	DataRate    uint // transfers per clock (2 = DDR)
}

// TotalBanksPerRank is the flattened bank count used for per-rank rolling
// windows (tFAW, t32AW) and refresh bank-cycling.
func (t Topology) TotalBanksPerRank() uint {
	return t.BankGroups * t.Banks
}

// Timing carries the named set of standard timing parameters, each an
// absolute time.Duration so the Checker can compare directly against
// simulated time. The presets build most of them as multiples of TCK and
// give the refresh-related ones (tREFI, tRFC, tXS) in nanoseconds.
type Timing struct {
	TCK time.Duration

	TRCD   time.Duration
	TRCDWR time.Duration
	TRP    time.Duration
	TRAS   time.Duration
	TRC    time.Duration

	TRRD_S time.Duration
	TRRD_L time.Duration
	TCCD_S time.Duration
	TCCD_L time.Duration

	TRTP time.Duration
	TWR  time.Duration

	TWTR_S time.Duration
	TWTR_L time.Duration

	TREFI  time.Duration
	TRFC   time.Duration
	TRFCPB time.Duration
	TRFCSB time.Duration
	TRREFD time.Duration

	TFAW  time.Duration
	T32AW time.Duration

	TCKE   time.Duration
	TCKESR time.Duration
	TXP    time.Duration
	TXS    time.Duration

	TRTRS time.Duration

	TWL time.Duration
	TRL time.Duration

	// REFM is the refresh-rate multiplier some standards encode implicitly
	// in their tREFI/tRFC pair; SPEC_FULL surfaces it as an explicit field
	// (open question in spec.md §9) rather than deriving it.
	REFM uint

	// RAAIMT / RAAMMT: DDR5 RFM thresholds on the rolling activation
	// accumulator (opportunistic-issue and must-mitigate respectively).
	RAAIMT uint
	RAAMMT uint
}

// MemSpec is the immutable DRAM device description. It is constructed once
// by configuration loading and shared by reference; nothing in this package
// or its consumers mutates a MemSpec after New returns.
type MemSpec struct {
	ID     string
	Type   MemoryType
	Topo   Topology
	Timing Timing
}

// New constructs a MemSpec. It performs no validation beyond what is
// mechanically representable — cross-field validation (e.g. address-mapping
// agreement) lives in internal/config, which owns the fatal-at-construction
// contract described in spec.md §7.
func New(id string, typ MemoryType, topo Topology, timing Timing) *MemSpec {
	return &MemSpec{ID: id, Type: typ, Topo: topo, Timing: timing}
}

// BurstDuration is the time the data bus is occupied transferring one
// payload's burst.
func (m *MemSpec) BurstDuration() time.Duration {
	beatsPerCycle := time.Duration(1)
	if m.Topo.DataRate > 1 {
		beatsPerCycle = time.Duration(m.Topo.DataRate)
	}
	beats := time.Duration(m.Topo.BurstLength)
	return m.Timing.TCK * beats / beatsPerCycle
}

// CommandLatency is the number of cycles the command bus is occupied by cmd:
// one cycle on a single-bus standard, two on the HBM family.
func (m *MemSpec) CommandLatency(cmd command.Command) time.Duration {
	if m.Type.Has2CycleCommands() {
		return 2 * m.Timing.TCK
	}
	return m.Timing.TCK
}

// DataWindow describes the [start, end) offset, relative to a CAS command's
// issue time, during which the data bus carries that command's burst.
type DataWindow struct {
	Start time.Duration
	End   time.Duration
}

// DataWindow returns the data-bus occupancy window for cmd, relative to its
// own issue time. RD/RDA open their window after tRL; WR/WRA/MWR/MWRA after
// tWL. Non-CAS commands have a zero-width window at t=0.
func (m *MemSpec) DataWindow(cmd command.Command) DataWindow {
	burst := m.BurstDuration()
	switch {
	case cmd.IsRead():
		return DataWindow{Start: m.Timing.TRL, End: m.Timing.TRL + burst}
	case cmd.IsWrite():
		return DataWindow{Start: m.Timing.TWL, End: m.Timing.TWL + burst}
	default:
		return DataWindow{}
	}
}

// RefreshCycleTime returns the bank-blocking duration of the given
// refresh-class command.
func (m *MemSpec) RefreshCycleTime(cmd command.Command) time.Duration {
	switch cmd {
	case command.REFPB, command.REFP2B, command.RFMPB:
		return m.Timing.TRFCPB
	case command.REFSB:
		return m.Timing.TRFCSB
	default: // REFAB, RFMAB
		return m.Timing.TRFC
	}
}
