package config

import (
	"math/bits"

	"github.com/dramsim/dramsim/internal/addr"
	"github.com/dramsim/dramsim/internal/simerr"
)

// Validate enforces spec.md §7's fatal-at-construction contract: contradictory
// watermarks, an address mapping that doesn't cover the addressable range
// implied by memspec's topology, and disagreement between the two (e.g. the
// mapping assigns fewer row bits than memspec.memarchitecturespec.rows
// needs). Enum validity is already enforced during resolve, since an
// invalid enum fails loading before a Config value exists to validate.
func (c *Config) Validate() error {
	if c.MC.Scheduler.LowWatermark >= c.MC.Scheduler.HighWatermark && c.MC.Scheduler.HighWatermark != 0 {
		return simerr.NewConfigError("mcconfig",
			"LowWatermark (%d) must be strictly less than HighWatermark (%d)",
			c.MC.Scheduler.LowWatermark, c.MC.Scheduler.HighWatermark)
	}

	decoder, err := addr.NewDecoder(c.AddressMapping)
	if err != nil {
		return simerr.NewConfigError("addressmapping", "%v", err)
	}

	needed := c.addressBitsNeeded()
	if needed > 0 && !decoder.CoversBits(needed) {
		return simerr.NewConfigError("addressmapping",
			"mapping covers bits up to %d but memspec's topology needs %d bits to address every byte",
			decoder.MaxBit(), needed)
	}

	if err := c.checkFieldWidth(addr.FieldRow, c.MemSpec.Topo.Rows); err != nil {
		return err
	}
	if err := c.checkFieldWidth(addr.FieldColumn, c.MemSpec.Topo.Columns); err != nil {
		return err
	}
	if err := c.checkFieldWidth(addr.FieldBank, c.MemSpec.Topo.Banks); err != nil {
		return err
	}
	if c.MemSpec.Topo.BankGroups > 1 {
		if err := c.checkFieldWidth(addr.FieldBankGroup, c.MemSpec.Topo.BankGroups); err != nil {
			return err
		}
	}
	if c.MemSpec.Topo.Ranks > 1 {
		if err := c.checkFieldWidth(addr.FieldRank, c.MemSpec.Topo.Ranks); err != nil {
			return err
		}
	}
	if c.MemSpec.Topo.Channels > 1 {
		if err := c.checkFieldWidth(addr.FieldChannel, c.MemSpec.Topo.Channels); err != nil {
			return err
		}
	}

	return nil
}

// checkFieldWidth reports a ConfigError if the mapping assigns fewer bits
// to field than count distinct values require — the MemSpec/AddressDecoder
// disagreement spec.md §7 names explicitly.
func (c *Config) checkFieldWidth(field addr.Field, count uint) error {
	if count <= 1 {
		return nil
	}
	want := bitsFor(count)
	got := uint(len(c.AddressMapping.Bits[field]))
	if got < want {
		return simerr.NewConfigError("addressmapping",
			"field %s has %d mapped bit(s) but memspec needs %d to address %d values",
			field, got, want, count)
	}
	return nil
}

// addressBitsNeeded computes ⌈log2(memorySize)⌉ from the topology, the
// quantity spec.md §6.1 says the mapping's bit lists must jointly cover: one
// term per address dimension (byte-within-beat, beat-within-burst, column,
// row, bank, bank group, rank, channel).
func (c *Config) addressBitsNeeded() uint {
	topo := c.MemSpec.Topo
	byteWidth := topo.DeviceWidth * max1(topo.Devices) / 8
	return bitsFor(max1(byteWidth)) +
		bitsFor(max1(topo.BurstLength)) +
		bitsFor(max1(topo.Columns)) +
		bitsFor(max1(topo.Rows)) +
		bitsFor(max1(topo.Banks)) +
		bitsFor(max1(topo.BankGroups)) +
		bitsFor(max1(topo.Ranks)) +
		bitsFor(max1(topo.Channels))
}

func max1(n uint) uint {
	if n == 0 {
		return 1
	}
	return n
}

// bitsFor returns the number of bits needed to distinguish n values
// (⌈log2(n)⌉, 0 for n<=1).
func bitsFor(n uint) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len(n - 1))
}
