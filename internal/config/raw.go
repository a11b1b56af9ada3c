package config

// rawDoc mirrors spec.md §6.1's top-level record exactly, field for field,
// as plain YAML-taggable Go types. Every resolved type in config.go is
// derived from one of these by resolve(); nothing else in the codebase
// unmarshals YAML directly.
type rawDoc struct {
	AddressMapping rawAddressMapping `yaml:"addressmapping"`
	MCConfig       rawMCConfig       `yaml:"mcconfig"`
	MemSpec        rawMemSpec        `yaml:"memspec"`
	SimConfig      rawSimConfig      `yaml:"simconfig"`
	TraceSetup     []rawInitiator    `yaml:"tracesetup"`
}

type rawXorGate struct {
	First  uint `yaml:"FIRST"`
	Second uint `yaml:"SECOND"`
}

type rawAddressMapping struct {
	Byte          []uint       `yaml:"BYTE_BIT"`
	Burst         []uint       `yaml:"BURST_BIT"`
	Column        []uint       `yaml:"COLUMN_BIT"`
	Row           []uint       `yaml:"ROW_BIT"`
	Bank          []uint       `yaml:"BANK_BIT"`
	BankGroup     []uint       `yaml:"BANKGROUP_BIT"`
	Rank          []uint       `yaml:"RANK_BIT"`
	Stack         []uint       `yaml:"STACK_BIT"`
	PseudoChannel []uint       `yaml:"PSEUDOCHANNEL_BIT"`
	Channel       []uint       `yaml:"CHANNEL_BIT"`
	XOR           []rawXorGate `yaml:"XOR"`
}

type rawMCConfig struct {
	PagePolicy      string `yaml:"PagePolicy"`
	Scheduler       string `yaml:"Scheduler"`
	SchedulerBuffer string `yaml:"SchedulerBuffer"`

	RequestBufferSize      uint `yaml:"RequestBufferSize"`
	RequestBufferSizeRead  uint `yaml:"RequestBufferSizeRead"`
	RequestBufferSizeWrite uint `yaml:"RequestBufferSizeWrite"`

	CmdMux         string   `yaml:"CmdMux"`
	CmdMuxPriority []string `yaml:"CmdMuxPriority"`
	RespQueue      string   `yaml:"RespQueue"`

	RefreshPolicy      string `yaml:"RefreshPolicy"`
	RefreshMaxPostponed int   `yaml:"RefreshMaxPostponed"`
	RefreshMaxPulledin  int   `yaml:"RefreshMaxPulledin"`

	PowerDownPolicy          string `yaml:"PowerDownPolicy"`
	IdleCyclesForPowerDown   uint   `yaml:"IdleCyclesForPowerDown"`
	IdleCyclesForSelfRefresh uint   `yaml:"IdleCyclesForSelfRefresh"`

	Arbiter               string `yaml:"Arbiter"`
	MaxActiveTransactions uint   `yaml:"MaxActiveTransactions"`
	RefreshManagement     bool   `yaml:"RefreshManagement"`

	HighWatermark uint `yaml:"HighWatermark"`
	LowWatermark  uint `yaml:"LowWatermark"`

	ArbitrationDelayFw string `yaml:"ArbitrationDelayFw"`
	ArbitrationDelayBw string `yaml:"ArbitrationDelayBw"`
	ThinkDelayFw       string `yaml:"ThinkDelayFw"`
	ThinkDelayBw       string `yaml:"ThinkDelayBw"`
	PhyDelayFw         string `yaml:"PhyDelayFw"`
	PhyDelayBw         string `yaml:"PhyDelayBw"`
}

type rawMemArchitectureSpec struct {
	Channels    uint `yaml:"nbrOfChannels"`
	Ranks       uint `yaml:"nbrOfRanks"`
	Banks       uint `yaml:"nbrOfBanks"`
	BankGroups  uint `yaml:"nbrOfBankGroups"`
	Devices     uint `yaml:"nbrOfDevices"`
	Rows        uint `yaml:"rows"`
	Columns     uint `yaml:"columns"`
	DeviceWidth uint `yaml:"deviceWidth"`
	BurstLength uint `yaml:"burstLength"`
	DataRate    uint `yaml:"dataRate"`
}

// rawMemTimingSpec carries the cycle-counted timings (multiples of tCK) as
// plain uints and the few absolute-duration timings (tREFI, tRFC family,
// tXS) as parseable duration strings, mirroring how memspec.Timing itself
// stores them (see internal/memspec.Timing's doc comment).
type rawMemTimingSpec struct {
	TCK string `yaml:"tCK"`

	TRCD   uint `yaml:"tRCD"`
	TRCDWR uint `yaml:"tRCDWR"`
	TRP    uint `yaml:"tRP"`
	TRAS   uint `yaml:"tRAS"`
	TRC    uint `yaml:"tRC"`

	TRRD_S uint `yaml:"tRRD_S"`
	TRRD_L uint `yaml:"tRRD_L"`
	TCCD_S uint `yaml:"tCCD_S"`
	TCCD_L uint `yaml:"tCCD_L"`

	TRTP uint `yaml:"tRTP"`
	TWR  uint `yaml:"tWR"`

	TWTR_S uint `yaml:"tWTR_S"`
	TWTR_L uint `yaml:"tWTR_L"`

	TREFI  string `yaml:"tREFI"`
	TRFC   string `yaml:"tRFC"`
	TRFCPB string `yaml:"tRFCPB"`
	TRFCSB string `yaml:"tRFCSB"`
	TRREFD uint   `yaml:"tRREFD"`

	TFAW  uint `yaml:"tFAW"`
	T32AW uint `yaml:"t32AW"`

	TCKE   uint   `yaml:"tCKE"`
	TCKESR uint   `yaml:"tCKESR"`
	TXP    uint   `yaml:"tXP"`
	TXS    string `yaml:"tXS"`

	TRTRS uint `yaml:"tRTRS"`

	TWL uint `yaml:"tWL"`
	TRL uint `yaml:"tRL"`

	REFM   uint `yaml:"REFM"`
	RAAIMT uint `yaml:"RAAIMT"`
	RAAMMT uint `yaml:"RAAMMT"`
}

type rawMemSpec struct {
	MemoryID             string                 `yaml:"memoryId"`
	MemoryType           string                 `yaml:"memoryType"`
	MemArchitectureSpec  rawMemArchitectureSpec `yaml:"memarchitecturespec"`
	MemTimingSpec        rawMemTimingSpec       `yaml:"memtimingspec"`
	// MemPowerSpec is parsed as an opaque tree: spec.md §1 lists power
	// modeling as a non-goal, so no package gives these fields meaning.
	// Kept only so Save round-trips a document that carried one.
	MemPowerSpec map[string]any `yaml:"mempowerspec,omitempty"`
}

type rawSimConfig struct {
	AddressOffset         uint64 `yaml:"AddressOffset"`
	StoreMode             string `yaml:"StoreMode"`
	WindowSize            uint   `yaml:"WindowSize"`
	EnableWindowing       bool   `yaml:"EnableWindowing"`
	Debug                 bool   `yaml:"Debug"`
	SimulationProgressBar bool   `yaml:"SimulationProgressBar"`
}

type rawInitiator struct {
	Kind                    string         `yaml:"kind"`
	TraceFile               string         `yaml:"traceFile,omitempty"`
	MaxPendingReadRequests  uint           `yaml:"maxPendingReadRequests,omitempty"`
	MaxPendingWriteRequests uint           `yaml:"maxPendingWriteRequests,omitempty"`
	Params                  map[string]any `yaml:"params,omitempty"`
}
