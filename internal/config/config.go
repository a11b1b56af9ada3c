// Package config implements spec.md §6.1's configuration grammar: a
// tree-shaped, string-keyed YAML document that deserializes into the
// records every other package expects (memspec.MemSpec, addr.Mapping,
// scheduler.Config, bankmachine.PagePolicy, refresh.Policy,
// powerdown.Policy, cmdmux.Variant, respqueue.Variant) plus the
// simconfig/tracesetup records consumed by external collaborators.
//
// Loading is pure deserialization; Validate applies the fatal-at-construction
// contract of spec.md §7 and returns a *simerr.ConfigError on the first
// violation it finds.
package config

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

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

// Config is the fully resolved, semantically-typed form of a configuration
// document: the record every other package is constructed from.
type Config struct {
	AddressMapping addr.Mapping
	MC             MCConfig
	MemSpec        *memspec.MemSpec
	Sim            SimConfig
	TraceSetup     []InitiatorConfig

	// raw is kept so Save can round-trip unknown fields the way spec.md
	// §6.1 allows ("unknown fields may be dropped" — but known ones must
	// not be).
	raw rawDoc
}

// MCConfig is mcconfig's resolved form: enums are resolved to each
// sub-package's types, while refresh and power-down counts and cycle
// numbers stay raw. controller.New builds refresh.Config and
// powerdown.Config from them.
type MCConfig struct {
	Scheduler      scheduler.Config
	PagePolicy     bankmachine.PagePolicy
	CmdMux         cmdmux.Variant
	CmdMuxPriority []string // class names, Strict-variant only
	RespQueue      respqueue.Variant

	RefreshPolicy    refresh.Policy
	RefreshMaxPostponed int
	RefreshMaxPulledin  int

	PowerDownPolicy          powerdown.Policy
	IdleCyclesForPowerDown   uint
	IdleCyclesForSelfRefresh uint

	Arbiter               Arbiter
	MaxActiveTransactions uint
	RefreshManagement     bool
	ArbitrationDelayFw    time.Duration
	ArbitrationDelayBw    time.Duration
	ThinkDelayFw          time.Duration
	ThinkDelayBw          time.Duration
	PhyDelayFw            time.Duration
	PhyDelayBw            time.Duration
}

// Arbiter enumerates mcconfig's Arbiter enum (the initiator-facing request
// arbiter, distinct from the per-bank Scheduler).
type Arbiter int

const (
	ArbiterSimple Arbiter = iota
	ArbiterFifo
	ArbiterReorder
)

// SimConfig is simconfig's resolved form. Every field here is consumed by
// external collaborators (the trace player, a progress reporter), never by
// the controller core itself, per spec.md §6.1.
type SimConfig struct {
	AddressOffset        uint64
	StoreMode             StoreMode
	WindowSize            uint
	EnableWindowing       bool
	Debug                 bool
	SimulationProgressBar bool
}

// StoreMode enumerates simconfig's StoreMode enum.
type StoreMode int

const (
	NoStorage StoreMode = iota
	Store
)

// InitiatorKind enumerates tracesetup's initiator record kinds (spec.md
// §6.3).
type InitiatorKind int

const (
	KindPlayer InitiatorKind = iota
	KindGenerator
	KindGeneratorStateMachine
	KindHammer
)

// InitiatorConfig is one tracesetup entry.
type InitiatorConfig struct {
	Kind                    InitiatorKind
	TraceFile               string // Player
	MaxPendingReadRequests  uint
	MaxPendingWriteRequests uint
	// Generator/GeneratorStateMachine/Hammer-specific knobs are carried
	// through as an opaque map: the core (internal/initiator) only needs
	// the fields above to enforce backpressure, the rest is collaborator
	// configuration.
	Params map[string]any
}

// Load parses a configuration document from r and validates it, returning
// a *simerr.ConfigError (wrapped, via errors.As-compatible return) on the
// first problem found.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, simerr.NewConfigError("document", "read failed: %v", err)
	}
	var raw rawDoc
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, simerr.NewConfigError("document", "malformed YAML: %v", err)
	}
	return resolve(raw)
}

// Save re-serializes cfg. Round-tripping is a semantic identity on every
// field this package understands. mempowerspec is carried as a plain map,
// so all of its keys are written back; unknown keys anywhere else are
// dropped.
func Save(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(cfg.raw)
}

func enumErr(field, got string, allowed []string) error {
	return simerr.NewConfigError(field, "unrecognized value %q, want one of %v", got, allowed)
}
