package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dramsim/dramsim/internal/addr"
	"github.com/dramsim/dramsim/internal/config"
	"github.com/dramsim/dramsim/internal/controller"
	"github.com/dramsim/dramsim/internal/initiator"
	"github.com/dramsim/dramsim/internal/kernel"
	"github.com/dramsim/dramsim/internal/memspec"
	"github.com/dramsim/dramsim/internal/simerr"
	"github.com/dramsim/dramsim/internal/simlog"
	"github.com/dramsim/dramsim/internal/trace"
)

const simlogDebugLevel = logrus.DebugLevel

// newController builds a *controller.Controller out of a resolved Config:
// the address decoder, a discrete-event kernel, and one Initiator per
// tracesetup entry (spec.md §6.2/§6.3). It returns the sum of every
// initiator's TotalRequests alongside, purely for --progress's denominator.
func newController(cfg *config.Config, log *logrus.Logger) (*controller.Controller, uint64, error) {
	dec, err := addr.NewDecoder(cfg.AddressMapping)
	if err != nil {
		return nil, 0, fmt.Errorf("building address decoder: %w", err)
	}

	var (
		inits []controller.InitiatorSetup
		total uint64
	)
	for i, ic := range cfg.TraceSetup {
		src, err := buildInitiator(cfg.MemSpec.Topo, cfg.MemSpec.Timing.TCK, cfg.Sim.StoreMode, ic)
		if err != nil {
			return nil, 0, fmt.Errorf("tracesetup entry %d: %w", i, err)
		}
		total += src.TotalRequests()
		inits = append(inits, controller.InitiatorSetup{
			Name:                    fmt.Sprintf("initiator-%d", i),
			Src:                     src,
			MaxPendingReadRequests:  ic.MaxPendingReadRequests,
			MaxPendingWriteRequests: ic.MaxPendingWriteRequests,
		})
	}

	kern := kernel.New()
	c := controller.New(cfg.MemSpec, dec, cfg.MC, kern, simlog.Component(log, "controller"), inits)
	return c, total, nil
}

// buildInitiator constructs the one Initiator kind tracesetup names. Only
// Player (a real .stl/.rstl trace file) and Generator (this repository's
// GeneratorStub) are implemented; GeneratorStateMachine and Hammer are
// named by spec.md §6.3 as external collaborators it leaves unspecified
// beyond their name, so this repository has no behavior to build for them.
func buildInitiator(topo memspec.Topology, tck time.Duration, store config.StoreMode, ic config.InitiatorConfig) (initiator.Initiator, error) {
	switch ic.Kind {
	case config.KindPlayer:
		f, err := os.Open(ic.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("opening trace file: %w", err)
		}
		defer f.Close()
		entries, err := trace.Parse(f, ic.TraceFile, defaultBurstBytes(topo), store == config.Store)
		if err != nil {
			return nil, err
		}
		return initiator.NewPlayer(entries, tck), nil
	case config.KindGenerator:
		return buildGeneratorStub(ic.Params)
	default:
		return nil, simerr.NewConfigError("tracesetup.kind", "initiator kind %d has no implementation in this repository", ic.Kind)
	}
}

// defaultBurstBytes derives the trace grammar's implicit burst size from
// the memory's physical width: one burst moves BurstLength beats across
// every device's DeviceWidth bits, in parallel across Devices.
func defaultBurstBytes(topo memspec.Topology) uint {
	bits := topo.BurstLength * topo.Devices * topo.DeviceWidth
	return bits / 8
}

// buildGeneratorStub reads a GeneratorStub's knobs out of tracesetup's
// opaque params map (spec.md §6.3: "Generator/GeneratorStateMachine/
// Hammer-specific knobs are carried through as an opaque map"), since
// GeneratorStub is this repository's own stand-in rather than one of the
// spec's named kinds.
func buildGeneratorStub(params map[string]any) (initiator.Initiator, error) {
	total, err := paramUint64(params, "total", 0)
	if err != nil {
		return nil, err
	}
	intervalStr, _ := params["interval"].(string)
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, simerr.NewConfigError("tracesetup.params.interval", "%v", err)
	}
	addrStart, err := paramUint64(params, "addrStart", 0)
	if err != nil {
		return nil, err
	}
	burstBytes, err := paramUint64(params, "burstBytes", 0)
	if err != nil {
		return nil, err
	}
	writeEvery, err := paramUint64(params, "writeEvery", 0)
	if err != nil {
		return nil, err
	}
	return initiator.NewGeneratorStub(total, interval, addrStart, uint(burstBytes), uint(writeEvery)), nil
}

// paramUint64 reads a numeric field out of a YAML-decoded params map.
// yaml.v3 decodes unsuffixed integers into int, so both int and float64
// are accepted; a missing field yields def, and a non-numeric value is a
// config error.
func paramUint64(params map[string]any, field string, def uint64) (uint64, error) {
	v, ok := params[field]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		return uint64(n), nil
	default:
		return 0, simerr.NewConfigError("tracesetup.params."+field, "expected a number, got %T", v)
	}
}
