package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dramsim/dramsim/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config <path>",
	Short: "Load and validate a configuration document without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateConfig,
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		return err
	}

	fmt.Printf("config ok: %s, %d tracesetup initiator(s), %d rank(s) x %d bank(s)\n",
		cfg.MemSpec.ID, len(cfg.TraceSetup), cfg.MemSpec.Topo.Ranks, cfg.MemSpec.Topo.TotalBanksPerRank())
	return nil
}
