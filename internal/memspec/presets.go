package memspec

import "time"

// Preset returns a representative MemSpec for the named standard, scaled to
// a single device clock period. Presets exist so configuration loading and
// tests have a known-good starting point to override rather than every
// caller hand-assembling a full Timing struct; they are illustrative values
// in the spirit of the JEDEC speed bins, not a substitute for configuration.
func Preset(typ MemoryType) *MemSpec {
	switch typ {
	case DDR4:
		return ddr4Preset()
	case DDR5:
		return ddr5Preset()
	case LPDDR4:
		return lpddr4Preset()
	case GDDR5:
		return gddr5Preset()
	default:
		return ddr4Preset()
	}
}

func ddr4Preset() *MemSpec {
	tck := time.Nanosecond // DDR4-2400-class cycle counts; the 833ps tCK is rounded up to time.Duration's 1ns resolution
	return New("DDR4-generic", DDR4,
		Topology{
			Channels: 1, Ranks: 1, BankGroups: 4, Banks: 4, Devices: 8,
			Rows: 1 << 16, Columns: 1 << 10, DeviceWidth: 8, BurstLength: 8, DataRate: 2,
		},
		Timing{
			TCK:    tck,
			TRCD:   14 * tck,
			TRCDWR: 14 * tck,
			TRP:    14 * tck,
			TRAS:   32 * tck,
			TRC:    46 * tck,
			TRRD_S: 4 * tck,
			TRRD_L: 6 * tck,
			TCCD_S: 4 * tck,
			TCCD_L: 6 * tck,
			TRTP:   9 * tck,
			TWR:    16 * tck,
			TWTR_S: 4 * tck,
			TWTR_L: 8 * tck,
			TREFI:  7800 * time.Nanosecond,
			TRFC:   350 * time.Nanosecond,
			TRFCPB: 0,
			TRFCSB: 0,
			TRREFD: 0,
			TFAW:   26 * tck,
			T32AW:  0,
			TCKE:   6 * tck,
			TCKESR: 10 * tck,
			TXP:    8 * tck,
			TXS:    366 * time.Nanosecond,
			TRTRS:  2 * tck,
			TWL:    11 * tck,
			TRL:    14 * tck,
			REFM:   1,
		})
}

func ddr5Preset() *MemSpec {
	tck := time.Nanosecond // DDR5-3200-class cycle counts; the 625ps tCK is rounded up to time.Duration's 1ns resolution
	return New("DDR5-generic", DDR5,
		Topology{
			Channels: 1, Ranks: 1, BankGroups: 8, Banks: 4, Devices: 4,
			Rows: 1 << 17, Columns: 1 << 10, DeviceWidth: 4, BurstLength: 16, DataRate: 2,
		},
		Timing{
			TCK:    tck,
			TRCD:   24 * tck,
			TRCDWR: 24 * tck,
			TRP:    24 * tck,
			TRAS:   52 * tck,
			TRC:    76 * tck,
			TRRD_S: 4 * tck,
			TRRD_L: 8 * tck,
			TCCD_S: 8 * tck,
			TCCD_L: 8 * tck,
			TRTP:   12 * tck,
			TWR:    30 * tck,
			TWTR_S: 4 * tck,
			TWTR_L: 10 * tck,
			TREFI:  3900 * time.Nanosecond,
			TRFC:   295 * time.Nanosecond,
			TRFCPB: 130 * time.Nanosecond,
			TRFCSB: 0,
			TRREFD: 5 * tck,
			TFAW:   32 * tck,
			T32AW:  0,
			TCKE:   8 * tck,
			TCKESR: 12 * tck,
			TXP:    10 * tck,
			TXS:    300 * time.Nanosecond,
			TRTRS:  2 * tck,
			TWL:    20 * tck,
			TRL:    24 * tck,
			REFM:   1,
			RAAIMT: 8,
			RAAMMT: 12,
		})
}

func lpddr4Preset() *MemSpec {
	tck := time.Nanosecond // LPDDR4-1866-class cycle counts; the 1071ps tCK is rounded down to time.Duration's 1ns resolution
	return New("LPDDR4-generic", LPDDR4,
		Topology{
			Channels: 2, Ranks: 1, BankGroups: 1, Banks: 8, Devices: 1,
			Rows: 1 << 16, Columns: 1 << 10, DeviceWidth: 16, BurstLength: 16, DataRate: 2,
		},
		Timing{
			TCK:    tck,
			TRCD:   18 * tck,
			TRCDWR: 18 * tck,
			TRP:    18 * tck,
			TRAS:   42 * tck,
			TRC:    60 * tck,
			TRRD_S: 6 * tck,
			TRRD_L: 6 * tck,
			TCCD_S: 4 * tck,
			TCCD_L: 4 * tck,
			TRTP:   8 * tck,
			TWR:    18 * tck,
			TWTR_S: 8 * tck,
			TWTR_L: 8 * tck,
			TREFI:  3900 * time.Nanosecond,
			TRFC:   180 * time.Nanosecond,
			TRFCPB: 90 * time.Nanosecond,
			TFAW:   20 * tck,
			TCKE:   7 * tck,
			TCKESR: 7 * tck,
			TXP:    7 * tck,
			TXS:    140 * time.Nanosecond,
			TRTRS:  time.Duration(0),
			TWL:    10 * tck,
			TRL:    18 * tck,
			REFM:   1,
		})
}

func gddr5Preset() *MemSpec {
	tck := time.Nanosecond // GDDR5-6000-class cycle counts (quarter-rate command clock); the 333ps tCK is rounded up to time.Duration's 1ns resolution
	return New("GDDR5-generic", GDDR5,
		Topology{
			Channels: 1, Ranks: 1, BankGroups: 4, Banks: 4, Devices: 1,
			Rows: 1 << 14, Columns: 1 << 9, DeviceWidth: 32, BurstLength: 8, DataRate: 4,
		},
		Timing{
			TCK:    tck,
			TRCD:   12 * tck,
			TRCDWR: 12 * tck,
			TRP:    12 * tck,
			TRAS:   28 * tck,
			TRC:    40 * tck,
			TRRD_S: 5 * tck,
			TRRD_L: 6 * tck,
			TCCD_S: 2 * tck,
			TCCD_L: 3 * tck,
			TRTP:   5 * tck,
			TWR:    12 * tck,
			TWTR_S: 4 * tck,
			TWTR_L: 5 * tck,
			TREFI:  3900 * time.Nanosecond,
			TRFC:   295 * time.Nanosecond,
			TFAW:   23 * tck,
			T32AW:  184 * tck,
			TCKE:   5 * tck,
			TCKESR: 5 * tck,
			TXP:    5 * tck,
			TXS:    250 * time.Nanosecond,
			TRTRS:  2 * tck,
			TWL:    8 * tck,
			TRL:    12 * tck,
			REFM:   1,
		})
}
