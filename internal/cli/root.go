// Package cli implements the watt command-line interface using Cobra.
// Subcommands fall in two groups: one-shot mutators that wrap a single
// HAL write, and the long-running daemon.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/watt-tools/watt/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "watt",
	Short: "watt — CPU power management for Linux",
	Long: `Watt governs CPU frequency scaling, turbo boost, energy hints and
battery charge thresholds through a policy-driven daemon, and offers
one-shot subcommands for direct control.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps errors to the exit-code
// contract: 0 success, 1 permission, 2 unsupported, 3 invalid argument,
// 4 hardware or i/o failure.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(domain.ExitCode(err))
	}
}
