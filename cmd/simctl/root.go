// Package main implements simctl, the command-line driver for this
// repository's DRAM controller/device simulation core. It is the one place
// spec.md §7's TimingViolation panic is recovered into a diagnostic, and
// the one place spec.md §6.4's exit-status contract is enforced.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simctl",
	Short: "Drive the DRAM controller/device timing simulator",
	Long: `simctl loads a simulation configuration (address mapping, memory
timing, controller policy, initiator traces), builds the controller graph,
and runs it to completion or reports the first configuration or runtime
fault it hits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
