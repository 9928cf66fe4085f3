package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watt-tools/watt/internal/daemon"
	"github.com/watt-tools/watt/internal/domain"
)

var (
	daemonVerbose bool
	daemonForce   string
)

func init() {
	daemonCmd.Flags().BoolVar(&daemonVerbose, "verbose", false, "Log every policy operation, not just failures")
	daemonCmd.Flags().StringVar(&daemonForce, "force", "", "Pin profile selection: performance or powersave")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the power management daemon",
	Long: `Run the supervised control loop: sample telemetry, decide turbo state,
apply the active profile and sleep for the scheduler-computed interval.
SIGHUP reloads configuration; SIGINT/SIGTERM shut down cleanly.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		// Config errors are fatal for the daemon, soft for one-shots.
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if daemonVerbose {
		cfg.Daemon.Verbose = true
	}

	d, err := daemon.New(cfg, rootCmd.Version)
	if err != nil {
		return err
	}
	defer d.Close()

	switch daemonForce {
	case "":
	case "performance":
		src := domain.PowerAC
		d.ForceMode = &src
	case "powersave":
		src := domain.PowerBattery
		d.ForceMode = &src
	default:
		return fmt.Errorf("%w: --force wants performance or powersave, got %q",
			domain.ErrInvalidArgument, daemonForce)
	}

	return d.Run(context.Background())
}
