package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/watt-tools/watt/internal/daemon"
	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/hal"
)

// coreID is shared by the per-CPU one-shot setters; -1 means all CPUs.
var coreID int

func init() {
	for _, c := range []*cobra.Command{setGovernorCmd, setMinFreqCmd, setMaxFreqCmd} {
		c.Flags().IntVar(&coreID, "core-id", -1, "Apply to a single logical CPU instead of all")
	}
	rootCmd.AddCommand(
		setGovernorCmd, forceGovernorCmd, unsetGovernorCmd,
		setTurboCmd, setEppCmd, setEpbCmd, setPlatformProfileCmd,
		setMinFreqCmd, setMaxFreqCmd, setBatteryThresholdsCmd,
	)
}

// openHAL discovers hardware for a one-shot write.
func openHAL() (*hal.HAL, error) {
	return hal.New("/")
}

// perCPU applies fn to one core or all of them.
func perCPU(hw *hal.HAL, fn func(cpu int) error) error {
	if coreID >= 0 {
		return fn(coreID)
	}
	var firstErr error
	for _, c := range hw.Topology().CPUs {
		if err := fn(c.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var setGovernorCmd = &cobra.Command{
	Use:   "set-governor <name>",
	Short: "Set the CPU scaling governor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hw, err := openHAL()
		if err != nil {
			return err
		}
		return perCPU(hw, func(cpu int) error { return hw.SetGovernor(cpu, args[0]) })
	},
}

var forceGovernorCmd = &cobra.Command{
	Use:   "force-governor <name>",
	Short: "Set the governor and persist it as an override for the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hw, err := openHAL()
		if err != nil {
			return err
		}
		if err := hw.SetGovernorAll(args[0]); err != nil {
			return err
		}
		if err := daemon.WriteGovernorOverride(args[0]); err != nil {
			return fmt.Errorf("%w: persist override: %v", domain.ErrIO, err)
		}
		fmt.Printf("Governor forced to %s (persisted; run unset-governor to release)\n", args[0])
		return nil
	},
}

var unsetGovernorCmd = &cobra.Command{
	Use:   "unset-governor",
	Short: "Remove the persisted governor override",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemon.ClearGovernorOverride(); err != nil {
			return fmt.Errorf("%w: remove override: %v", domain.ErrIO, err)
		}
		fmt.Println("Governor override cleared.")
		return nil
	},
}

var setTurboCmd = &cobra.Command{
	Use:   "set-turbo {always|never|auto}",
	Short: "Set turbo boost behavior",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting, err := domain.ParseTurboSetting(args[0])
		if err != nil {
			return err
		}
		hw, err := openHAL()
		if err != nil {
			return err
		}
		switch setting {
		case domain.TurboAlways:
			return hw.SetTurbo(domain.TurboOn)
		case domain.TurboNever:
			return hw.SetTurbo(domain.TurboOff)
		default:
			return hw.SetTurbo(domain.TurboSystemDefault)
		}
	},
}

var setEppCmd = &cobra.Command{
	Use:   "set-epp <name>",
	Short: "Set the energy performance preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hw, err := openHAL()
		if err != nil {
			return err
		}
		var firstErr error
		for _, c := range hw.Topology().CPUs {
			if err := hw.SetEPP(c.ID, args[0]); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	},
}

var setEpbCmd = &cobra.Command{
	Use:   "set-epb <0-15|name>",
	Short: "Set the energy performance bias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := hal.ParseEPB(args[0])
		if err != nil {
			return err
		}
		hw, err := openHAL()
		if err != nil {
			return err
		}
		var firstErr error
		for _, c := range hw.Topology().CPUs {
			if err := hw.SetEPB(c.ID, value); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	},
}

var setPlatformProfileCmd = &cobra.Command{
	Use:   "set-platform-profile <name>",
	Short: "Set the ACPI platform profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hw, err := openHAL()
		if err != nil {
			return err
		}
		return hw.SetPlatformProfile(args[0])
	},
}

var setMinFreqCmd = &cobra.Command{
	Use:   "set-min-freq <MHz>",
	Short: "Set the minimum scaling frequency",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFreq(args[0], true) },
}

var setMaxFreqCmd = &cobra.Command{
	Use:   "set-max-freq <MHz>",
	Short: "Set the maximum scaling frequency",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFreq(args[0], false) },
}

func setFreq(arg string, isMin bool) error {
	mhz, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || mhz == 0 {
		return fmt.Errorf("%w: frequency must be a positive MHz value, got %q", domain.ErrInvalidArgument, arg)
	}
	hw, err := openHAL()
	if err != nil {
		return err
	}
	khz := mhz * 1000
	return perCPU(hw, func(cpu int) error {
		if isMin {
			return hw.SetFreqLimitsKHz(cpu, khz, 0)
		}
		return hw.SetFreqLimitsKHz(cpu, 0, khz)
	})
}

var setBatteryThresholdsCmd = &cobra.Command{
	Use:   "set-battery-thresholds <start> <stop>",
	Short: "Set battery charge start/stop thresholds",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err1 := strconv.ParseUint(args[0], 10, 8)
		stop, err2 := strconv.ParseUint(args[1], 10, 8)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: thresholds must be integers 0-100", domain.ErrInvalidArgument)
		}
		hw, err := openHAL()
		if err != nil {
			return err
		}
		return hw.SetBatteryThresholds(domain.ChargeThresholds{
			Start: uint8(start),
			Stop:  uint8(stop),
		})
	},
}
