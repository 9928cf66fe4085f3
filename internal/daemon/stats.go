package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/watt-tools/watt/internal/telemetry"
)

// statsWriter appends one tab-separated record per tick to the configured
// stats file. The file is truncated once at daemon start; fields without
// a value are written as "-".
type statsWriter struct {
	path string
}

func newStatsWriter(path string) (*statsWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &statsWriter{path: path}, nil
}

// Append writes one record: timestamp, power_source, avg_usage,
// max_temp_c, battery_pct, battery_rate_w, turbo_state, poll_interval_sec.
func (w *statsWriter) Append(snap telemetry.Snapshot, turboState string, intervalSec uint) error {
	fields := []string{
		strconv.FormatInt(snap.Time.Unix(), 10),
		snap.Source.String(),
		optFmt(avgUsage(snap), "%.3f"),
		optFmt(maxTemp(snap), "%.1f"),
		optFmt(snap.BatteryPct(), "%.1f"),
		optFmt(snap.BatteryRateW(), "%.2f"),
		turboState,
		strconv.FormatUint(uint64(intervalSec), 10),
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

func avgUsage(snap telemetry.Snapshot) *float64 {
	if snap.CPU == nil {
		return nil
	}
	return &snap.CPU.AvgUsage
}

func maxTemp(snap telemetry.Snapshot) *float64 {
	if snap.CPU == nil {
		return nil
	}
	return snap.CPU.MaxTempC
}

func optFmt(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
