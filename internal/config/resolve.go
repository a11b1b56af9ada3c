package config

import (
	"time"

	"github.com/dramsim/dramsim/internal/addr"
	"github.com/dramsim/dramsim/internal/bankmachine"
	"github.com/dramsim/dramsim/internal/cmdmux"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/powerdown"
	"github.com/dramsim/dramsim/internal/refresh"
	"github.com/dramsim/dramsim/internal/respqueue"
	"github.com/dramsim/dramsim/internal/scheduler"
	"github.com/dramsim/dramsim/internal/simerr"
)

// resolve converts a parsed rawDoc into a validated Config. Every enum
// field fails loading on an unrecognized value, per spec.md §6.1 ("invalid
// enums fail loading"); every other field is defaulted per mcconfig's "every
// field except the scheduler and buffer choices has an enumerated default."
func resolve(raw rawDoc) (*Config, error) {
	mapping, err := resolveMapping(raw.AddressMapping)
	if err != nil {
		return nil, err
	}

	spec, err := resolveMemSpec(raw.MemSpec)
	if err != nil {
		return nil, err
	}

	mc, err := resolveMCConfig(raw.MCConfig)
	if err != nil {
		return nil, err
	}

	sim, err := resolveSimConfig(raw.SimConfig)
	if err != nil {
		return nil, err
	}

	initiators, err := resolveInitiators(raw.TraceSetup)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AddressMapping: mapping,
		MC:             mc,
		MemSpec:        spec,
		Sim:            sim,
		TraceSetup:     initiators,
		raw:            raw,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveMapping(r rawAddressMapping) (addr.Mapping, error) {
	bits := map[addr.Field][]uint{
		addr.FieldByte:          r.Byte,
		addr.FieldBurst:         r.Burst,
		addr.FieldColumn:        r.Column,
		addr.FieldRow:           r.Row,
		addr.FieldBank:          r.Bank,
		addr.FieldBankGroup:     r.BankGroup,
		addr.FieldRank:          r.Rank,
		addr.FieldStack:         r.Stack,
		addr.FieldPseudoChannel: r.PseudoChannel,
		addr.FieldChannel:       r.Channel,
	}
	for f, bs := range bits {
		if len(bs) == 0 {
			delete(bits, f)
		}
	}
	xor := make([]addr.XorGate, len(r.XOR))
	for i, g := range r.XOR {
		xor[i] = addr.XorGate{First: g.First, Second: g.Second}
	}
	return addr.Mapping{Bits: bits, Xor: xor}, nil
}

func resolveMemSpec(r rawMemSpec) (*memspec.MemSpec, error) {
	typ, err := parseMemoryType(r.MemoryType)
	if err != nil {
		return nil, err
	}

	topo := memspec.Topology{
		Channels:    r.MemArchitectureSpec.Channels,
		Ranks:       r.MemArchitectureSpec.Ranks,
		BankGroups:  r.MemArchitectureSpec.BankGroups,
		Banks:       r.MemArchitectureSpec.Banks,
		Devices:     r.MemArchitectureSpec.Devices,
		Rows:        r.MemArchitectureSpec.Rows,
		Columns:     r.MemArchitectureSpec.Columns,
		DeviceWidth: r.MemArchitectureSpec.DeviceWidth,
		BurstLength: r.MemArchitectureSpec.BurstLength,
		DataRate:    r.MemArchitectureSpec.DataRate,
	}
	if topo.BankGroups == 0 {
		topo.BankGroups = 1
	}

	t := r.MemTimingSpec
	tck, err := parseDuration("memtimingspec.tCK", t.TCK)
	if err != nil {
		return nil, err
	}
	cyc := func(n uint) time.Duration { return time.Duration(n) * tck }

	refi, err := parseDurationOrZero("memtimingspec.tREFI", t.TREFI)
	if err != nil {
		return nil, err
	}
	rfc, err := parseDurationOrZero("memtimingspec.tRFC", t.TRFC)
	if err != nil {
		return nil, err
	}
	rfcpb, err := parseDurationOrZero("memtimingspec.tRFCPB", t.TRFCPB)
	if err != nil {
		return nil, err
	}
	rfcsb, err := parseDurationOrZero("memtimingspec.tRFCSB", t.TRFCSB)
	if err != nil {
		return nil, err
	}
	xs, err := parseDurationOrZero("memtimingspec.tXS", t.TXS)
	if err != nil {
		return nil, err
	}

	timing := memspec.Timing{
		TCK:    tck,
		TRCD:   cyc(t.TRCD),
		TRCDWR: cyc(t.TRCDWR),
		TRP:    cyc(t.TRP),
		TRAS:   cyc(t.TRAS),
		TRC:    cyc(t.TRC),
		TRRD_S: cyc(t.TRRD_S),
		TRRD_L: cyc(t.TRRD_L),
		TCCD_S: cyc(t.TCCD_S),
		TCCD_L: cyc(t.TCCD_L),
		TRTP:   cyc(t.TRTP),
		TWR:    cyc(t.TWR),
		TWTR_S: cyc(t.TWTR_S),
		TWTR_L: cyc(t.TWTR_L),
		TREFI:  refi,
		TRFC:   rfc,
		TRFCPB: rfcpb,
		TRFCSB: rfcsb,
		TRREFD: cyc(t.TRREFD),
		TFAW:   cyc(t.TFAW),
		T32AW:  cyc(t.T32AW),
		TCKE:   cyc(t.TCKE),
		TCKESR: cyc(t.TCKESR),
		TXP:    cyc(t.TXP),
		TXS:    xs,
		TRTRS:  cyc(t.TRTRS),
		TWL:    cyc(t.TWL),
		TRL:    cyc(t.TRL),
		REFM:   t.REFM,
		RAAIMT: t.RAAIMT,
		RAAMMT: t.RAAMMT,
	}

	return memspec.New(r.MemoryID, typ, topo, timing), nil
}

func resolveMCConfig(r rawMCConfig) (MCConfig, error) {
	pp, err := parsePagePolicy(r.PagePolicy)
	if err != nil {
		return MCConfig{}, err
	}
	schedPolicy, err := parseSchedulerPolicy(r.Scheduler)
	if err != nil {
		return MCConfig{}, err
	}
	bufVariant, err := parseBufferVariant(r.SchedulerBuffer)
	if err != nil {
		return MCConfig{}, err
	}
	cmdMuxVariant, err := parseCmdMux(r.CmdMux)
	if err != nil {
		return MCConfig{}, err
	}
	respQueueVariant, err := parseRespQueue(r.RespQueue)
	if err != nil {
		return MCConfig{}, err
	}
	refreshPolicy, err := parseRefreshPolicy(r.RefreshPolicy)
	if err != nil {
		return MCConfig{}, err
	}
	pdPolicy, err := parsePowerDownPolicy(r.PowerDownPolicy)
	if err != nil {
		return MCConfig{}, err
	}
	arbiter, err := parseArbiter(r.Arbiter)
	if err != nil {
		return MCConfig{}, err
	}

	delays, err := resolveDelays(r)
	if err != nil {
		return MCConfig{}, err
	}

	return MCConfig{
		Scheduler: scheduler.Config{
			Policy:                 schedPolicy,
			Buffer:                 bufVariant,
			RequestBufferSize:      r.RequestBufferSize,
			RequestBufferSizeRead:  r.RequestBufferSizeRead,
			RequestBufferSizeWrite: r.RequestBufferSizeWrite,
			HighWatermark:          r.HighWatermark,
			LowWatermark:           r.LowWatermark,
		},
		PagePolicy:     pp,
		CmdMux:         cmdMuxVariant,
		CmdMuxPriority: r.CmdMuxPriority,
		RespQueue:      respQueueVariant,

		RefreshPolicy:       refreshPolicy,
		RefreshMaxPostponed: r.RefreshMaxPostponed,
		RefreshMaxPulledin:  r.RefreshMaxPulledin,

		PowerDownPolicy:          pdPolicy,
		IdleCyclesForPowerDown:   r.IdleCyclesForPowerDown,
		IdleCyclesForSelfRefresh: r.IdleCyclesForSelfRefresh,

		Arbiter:               arbiter,
		MaxActiveTransactions: r.MaxActiveTransactions,
		RefreshManagement:     r.RefreshManagement,
		ArbitrationDelayFw:    delays[0],
		ArbitrationDelayBw:    delays[1],
		ThinkDelayFw:          delays[2],
		ThinkDelayBw:          delays[3],
		PhyDelayFw:            delays[4],
		PhyDelayBw:            delays[5],
	}, nil
}

// resolveDelays parses the six ArbitrationDelay/ThinkDelay/PhyDelay{Fw,Bw}
// fields, each optional and zero-valued when absent.
func resolveDelays(r rawMCConfig) ([6]time.Duration, error) {
	fields := []struct {
		name string
		s    string
	}{
		{"ArbitrationDelayFw", r.ArbitrationDelayFw},
		{"ArbitrationDelayBw", r.ArbitrationDelayBw},
		{"ThinkDelayFw", r.ThinkDelayFw},
		{"ThinkDelayBw", r.ThinkDelayBw},
		{"PhyDelayFw", r.PhyDelayFw},
		{"PhyDelayBw", r.PhyDelayBw},
	}
	var out [6]time.Duration
	for i, f := range fields {
		d, err := parseDurationOrZero("mcconfig."+f.name, f.s)
		if err != nil {
			return out, err
		}
		out[i] = d
	}
	return out, nil
}

func resolveSimConfig(r rawSimConfig) (SimConfig, error) {
	mode, err := parseStoreMode(r.StoreMode)
	if err != nil {
		return SimConfig{}, err
	}
	return SimConfig{
		AddressOffset:         r.AddressOffset,
		StoreMode:             mode,
		WindowSize:            r.WindowSize,
		EnableWindowing:       r.EnableWindowing,
		Debug:                 r.Debug,
		SimulationProgressBar: r.SimulationProgressBar,
	}, nil
}

func resolveInitiators(rs []rawInitiator) ([]InitiatorConfig, error) {
	out := make([]InitiatorConfig, 0, len(rs))
	for i, r := range rs {
		kind, err := parseInitiatorKind(r.Kind)
		if err != nil {
			return nil, simerr.NewConfigError("tracesetup", "entry %d: %v", i, err)
		}
		out = append(out, InitiatorConfig{
			Kind:                    kind,
			TraceFile:               r.TraceFile,
			MaxPendingReadRequests:  r.MaxPendingReadRequests,
			MaxPendingWriteRequests: r.MaxPendingWriteRequests,
			Params:                  r.Params,
		})
	}
	return out, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, simerr.NewConfigError(field, "required duration is empty")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, simerr.NewConfigError(field, "invalid duration %q: %v", s, err)
	}
	return d, nil
}

func parseDurationOrZero(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return parseDuration(field, s)
}

func parseMemoryType(s string) (memspec.MemoryType, error) {
	m := map[string]memspec.MemoryType{
		"DDR3": memspec.DDR3, "DDR4": memspec.DDR4, "DDR5": memspec.DDR5,
		"LPDDR4": memspec.LPDDR4, "LPDDR5": memspec.LPDDR5,
		"WideIO": memspec.WideIO, "WideIO2": memspec.WideIO2,
		"GDDR5": memspec.GDDR5, "GDDR5X": memspec.GDDR5X, "GDDR6": memspec.GDDR6,
		"HBM2": memspec.HBM2, "HBM3": memspec.HBM3,
		"STTMRAM": memspec.STTMRAM,
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("memspec.memoryType", s, keys(m))
	}
	return v, nil
}

func parsePagePolicy(s string) (bankmachine.PagePolicy, error) {
	m := map[string]bankmachine.PagePolicy{
		"Open": bankmachine.Open, "OpenAdaptive": bankmachine.OpenAdaptive,
		"Closed": bankmachine.Closed, "ClosedAdaptive": bankmachine.ClosedAdaptive,
	}
	if s == "" {
		return bankmachine.Closed, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.PagePolicy", s, keys(m))
	}
	return v, nil
}

func parseSchedulerPolicy(s string) (scheduler.Policy, error) {
	m := map[string]scheduler.Policy{
		"Fifo": scheduler.Fifo, "FrFcfs": scheduler.FrFcfs,
		"FrFcfsGrp": scheduler.FrFcfsGrp, "GrpFrFcfs": scheduler.GrpFrFcfs,
		"GrpFrFcfsWm": scheduler.GrpFrFcfsWm,
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.Scheduler", s, keys(m))
	}
	return v, nil
}

func parseBufferVariant(s string) (scheduler.BufferVariant, error) {
	m := map[string]scheduler.BufferVariant{
		"Bankwise": scheduler.Bankwise, "ReadWrite": scheduler.ReadWrite, "Shared": scheduler.Shared,
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.SchedulerBuffer", s, keys(m))
	}
	return v, nil
}

func parseCmdMux(s string) (cmdmux.Variant, error) {
	m := map[string]cmdmux.Variant{
		"Oldest": cmdmux.Oldest, "OldestRasCas": cmdmux.OldestRasCas, "Strict": cmdmux.Strict,
	}
	if s == "" {
		return cmdmux.Oldest, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.CmdMux", s, keys(m))
	}
	return v, nil
}

func parseRespQueue(s string) (respqueue.Variant, error) {
	m := map[string]respqueue.Variant{"Fifo": respqueue.Fifo, "Reorder": respqueue.Reorder}
	if s == "" {
		return respqueue.Fifo, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.RespQueue", s, keys(m))
	}
	return v, nil
}

func parseRefreshPolicy(s string) (refresh.Policy, error) {
	m := map[string]refresh.Policy{
		"NoRefresh": refresh.NoRefresh, "AllBank": refresh.AllBank,
		"PerBank": refresh.PerBank, "Per2Bank": refresh.Per2Bank, "SameBank": refresh.SameBank,
	}
	if s == "" {
		return refresh.AllBank, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.RefreshPolicy", s, keys(m))
	}
	return v, nil
}

func parsePowerDownPolicy(s string) (powerdown.Policy, error) {
	m := map[string]powerdown.Policy{"NoPowerDown": powerdown.NoPowerDown, "Staggered": powerdown.Staggered}
	if s == "" {
		return powerdown.NoPowerDown, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.PowerDownPolicy", s, keys(m))
	}
	return v, nil
}

func parseArbiter(s string) (Arbiter, error) {
	m := map[string]Arbiter{"Simple": ArbiterSimple, "Fifo": ArbiterFifo, "Reorder": ArbiterReorder}
	if s == "" {
		return ArbiterSimple, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("mcconfig.Arbiter", s, keys(m))
	}
	return v, nil
}

func parseStoreMode(s string) (StoreMode, error) {
	m := map[string]StoreMode{"NoStorage": NoStorage, "Store": Store}
	if s == "" {
		return NoStorage, nil
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("simconfig.StoreMode", s, keys(m))
	}
	return v, nil
}

func parseInitiatorKind(s string) (InitiatorKind, error) {
	m := map[string]InitiatorKind{
		"Player": KindPlayer, "Generator": KindGenerator,
		"GeneratorStateMachine": KindGeneratorStateMachine, "Hammer": KindHammer,
	}
	v, ok := m[s]
	if !ok {
		return 0, enumErr("tracesetup.kind", s, keys(m))
	}
	return v, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
