package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dramsim/dramsim/internal/addr"
	"github.com/dramsim/dramsim/internal/config"
)

var decodeAddressCmd = &cobra.Command{
	Use:   "decode-address <config> <address>",
	Short: "Decode a byte address into DRAM coordinates using a configuration's address mapping",
	Long: `decode-address prints the Coordinates a flat byte address decodes to under
the given configuration's address mapping (spec.md §2.2). <address> accepts
either decimal or 0x-prefixed hex.`,
	Args: cobra.ExactArgs(2),
	RunE: runDecodeAddress,
}

func init() {
	rootCmd.AddCommand(decodeAddressCmd)
}

func runDecodeAddress(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		return err
	}

	address, err := parseAddress(args[1])
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	dec, err := addr.NewDecoder(cfg.AddressMapping)
	if err != nil {
		return fmt.Errorf("building address decoder: %w", err)
	}

	coords, err := dec.Decode(address)
	if err != nil {
		return err
	}

	fmt.Printf("channel=%d rank=%d bankgroup=%d bank=%d row=%d column=%d byte=%d pseudochannel=%d stack=%d\n",
		coords.Channel, coords.Rank, coords.BankGroup, coords.Bank, coords.Row, coords.Column, coords.Byte, coords.PseudoChannel, coords.Stack)
	return nil
}

func parseAddress(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
