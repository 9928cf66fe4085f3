package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watt-tools/watt/internal/hal"
)

func init() {
	rootCmd.AddCommand(infoCmd, debugCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a summary of the system's power management state",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return printReport(false) },
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show the full system report including raw probe results",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return printReport(true) },
}

func printReport(debug bool) error {
	hw, err := hal.New("/")
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	src, err := hw.PowerSource(nil)
	if err == nil {
		fmt.Fprintf(w, "Power source:\t%s\n", src)
	}

	topo := hw.Topology()
	fmt.Fprintf(w, "Logical CPUs:\t%d\n", topo.LogicalCount())
	if len(topo.CPUs) > 0 {
		c := topo.CPUs[0]
		fmt.Fprintf(w, "Scaling driver:\t%s\n", orDash(c.ScalingDriver))
		fmt.Fprintf(w, "Available governors:\t%s\n", orDash(strings.Join(c.AvailableGovernors, " ")))
		fmt.Fprintf(w, "Available EPP:\t%s\n", orDash(strings.Join(c.AvailableEPP, " ")))
		if gov, err := hw.CurrentGovernor(c.ID); err == nil {
			fmt.Fprintf(w, "Current governor:\t%s\n", gov)
		}
		if epp, err := hw.CurrentEPP(c.ID); err == nil {
			fmt.Fprintf(w, "Current EPP:\t%s\n", epp)
		}
		if epb, err := hw.CurrentEPB(c.ID); err == nil {
			fmt.Fprintf(w, "Current EPB:\t%d\n", epb)
		}
	}

	if hw.TurboSupported() {
		if ts, err := hw.CurrentTurbo(); err == nil {
			fmt.Fprintf(w, "Turbo boost:\t%s\n", ts)
		}
	} else {
		fmt.Fprintf(w, "Turbo boost:\tunsupported\n")
	}

	if hw.PlatformProfileSupported() {
		if pp, err := hw.CurrentPlatformProfile(); err == nil {
			fmt.Fprintf(w, "Platform profile:\t%s\n", pp)
		}
	}

	if t, ok := hw.MaxTemperatureC(); ok {
		fmt.Fprintf(w, "Max temperature:\t%.1f°C\n", t)
	}

	bats, err := hw.ReadBatteries(nil)
	if err == nil {
		for _, b := range bats {
			line := fmt.Sprintf("%s (%s, %s", b.Name, b.Vendor, b.Status)
			if b.ChargePct != nil {
				line += fmt.Sprintf(", %.0f%%", *b.ChargePct)
			}
			if b.RateW != nil {
				line += fmt.Sprintf(", %.1f W", *b.RateW)
			}
			fmt.Fprintf(w, "Battery:\t%s)\n", line)
		}
	}
	if th, err := hw.CurrentBatteryThresholds(); err == nil {
		fmt.Fprintf(w, "Charge thresholds:\t%d-%d%%\n", th.Start, th.Stop)
	}

	if !debug {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per-CPU detail:")
	for _, c := range topo.CPUs {
		gov, _ := hw.CurrentGovernor(c.ID)
		minK, maxK, _ := hw.CurrentFreqLimitsKHz(c.ID)
		fmt.Fprintf(w, "  cpu%d:\tdriver=%s governor=%s range=%d-%d kHz limits=%d-%d kHz\n",
			c.ID, orDash(c.ScalingDriver), orDash(gov), c.MinFreqKHz, c.MaxFreqKHz, minK, maxK)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capability probes:")
	fmt.Fprintf(w, "  turbo control:\t%v\n", hw.TurboSupported())
	fmt.Fprintf(w, "  platform profile:\t%v\n", hw.PlatformProfileSupported())
	fmt.Fprintf(w, "  battery thresholds:\t%v\n", hw.BatteryThresholdsSupported())

	supplies, err := hw.ReadPowerSupplies(nil)
	if err == nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Power supplies:")
		for _, ps := range supplies {
			kind := "mains"
			if ps.IsBat {
				kind = "battery"
			}
			fmt.Fprintf(w, "  %s:\t%s online=%v (%s)\n", ps.Name, kind, ps.Online, ps.Dir)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
