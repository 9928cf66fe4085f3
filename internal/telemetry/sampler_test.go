package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/hal"
)

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func fakeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "sys/devices/system/cpu/cpu0")
	writeTestFile(t, filepath.Join(dir, "cpufreq/scaling_governor"), "schedutil\n")
	writeTestFile(t, filepath.Join(dir, "cpufreq/scaling_available_governors"), "performance powersave schedutil\n")
	writeTestFile(t, filepath.Join(dir, "cpufreq/cpuinfo_min_freq"), "400000\n")
	writeTestFile(t, filepath.Join(dir, "cpufreq/cpuinfo_max_freq"), "4800000\n")
	return root
}

// writeStat writes a two-CPU /proc/stat with the given busy/idle jiffies.
func writeStat(t *testing.T, root string, busy0, idle0, busy1, idle1 uint64) {
	t.Helper()
	line := func(id int, busy, idle uint64) string {
		// user nice system idle iowait irq softirq steal
		return fmt.Sprintf("cpu%d %d 0 0 %d 0 0 0 0 0 0\n", id, busy, idle)
	}
	writeTestFile(t, filepath.Join(root, "proc/stat"),
		"cpu  0 0 0 0 0 0 0 0 0 0\n"+line(0, busy0, idle0)+line(1, busy1, idle1))
}

func fakeBattery(t *testing.T, root string, pct int, status string, powerUW uint64) {
	t.Helper()
	dir := filepath.Join(root, "sys/class/power_supply/BAT0")
	writeTestFile(t, filepath.Join(dir, "type"), "Battery\n")
	writeTestFile(t, filepath.Join(dir, "present"), "1\n")
	writeTestFile(t, filepath.Join(dir, "capacity"), strconv.Itoa(pct)+"\n")
	writeTestFile(t, filepath.Join(dir, "status"), status+"\n")
	if powerUW > 0 {
		writeTestFile(t, filepath.Join(dir, "power_now"), strconv.FormatUint(powerUW, 10)+"\n")
	}
}

func newTestSampler(t *testing.T, root string) *Sampler {
	t.Helper()
	hw, err := hal.New(root)
	if err != nil {
		t.Fatalf("hal.New: %v", err)
	}
	s := New(hw, nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestSample_FirstTickHasNoCPUData(t *testing.T) {
	root := fakeTree(t)
	writeStat(t, root, 100, 900, 100, 900)

	s := newTestSampler(t, root)
	snap, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if snap.CPU != nil {
		t.Error("first tick should carry no utilization")
	}
}

func TestSample_UsageFromJiffyDelta(t *testing.T) {
	root := fakeTree(t)
	writeStat(t, root, 100, 900, 100, 900)

	s := newTestSampler(t, root)
	if _, err := s.Sample(); err != nil {
		t.Fatal(err)
	}

	// cpu0: +75 busy, +25 idle → 75%; cpu1: +10 busy, +90 idle → 10%.
	writeStat(t, root, 175, 925, 110, 990)
	snap, err := s.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if snap.CPU == nil {
		t.Fatal("second tick should have utilization")
	}
	if len(snap.CPU.PerCPUUsage) != 2 {
		t.Fatalf("PerCPUUsage len = %d, want 2", len(snap.CPU.PerCPUUsage))
	}
	if got := snap.CPU.PerCPUUsage[0]; got < 0.74 || got > 0.76 {
		t.Errorf("cpu0 usage = %.3f, want ~0.75", got)
	}
	if got := snap.CPU.PerCPUUsage[1]; got < 0.09 || got > 0.11 {
		t.Errorf("cpu1 usage = %.3f, want ~0.10", got)
	}
	want := (0.75 + 0.10) / 2
	if got := snap.CPU.AvgUsage; got < want-0.01 || got > want+0.01 {
		t.Errorf("AvgUsage = %.3f, want ~%.3f", got, want)
	}
}

func TestSample_UsageClampedOnCounterReset(t *testing.T) {
	root := fakeTree(t)
	writeStat(t, root, 1000, 1000, 1000, 1000)

	s := newTestSampler(t, root)
	if _, err := s.Sample(); err != nil {
		t.Fatal(err)
	}

	// Counters went backwards (resume glitch).
	writeStat(t, root, 10, 10, 10, 10)
	snap, err := s.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if snap.CPU == nil {
		t.Fatal("want a sample")
	}
	for i, u := range snap.CPU.PerCPUUsage {
		if u < 0 || u > 1 {
			t.Errorf("cpu%d usage %.3f outside [0,1]", i, u)
		}
	}
}

func TestSample_TemperatureAttached(t *testing.T) {
	root := fakeTree(t)
	writeStat(t, root, 100, 900, 100, 900)
	writeTestFile(t, filepath.Join(root, "sys/class/thermal/thermal_zone0/temp"), "65000\n")

	s := newTestSampler(t, root)
	s.Sample()
	writeStat(t, root, 200, 950, 150, 950)
	snap, err := s.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if snap.CPU == nil || snap.CPU.MaxTempC == nil {
		t.Fatal("want temperature on second tick")
	}
	if *snap.CPU.MaxTempC != 65 {
		t.Errorf("MaxTempC = %.1f, want 65", *snap.CPU.MaxTempC)
	}
}

func TestSample_BatteryRateEMA(t *testing.T) {
	root := fakeTree(t)
	writeStat(t, root, 100, 900, 100, 900)
	fakeBattery(t, root, 80, "Discharging", 10_000_000) // 10 W

	s := newTestSampler(t, root)
	snap, err := s.Sample()
	if err != nil {
		t.Fatal(err)
	}
	rate := snap.BatteryRateW()
	if rate == nil || *rate != -10 {
		t.Fatalf("first rate = %v, want -10 (seeded from raw)", rate)
	}

	// Jump to 20 W: EMA = 0.3*-20 + 0.7*-10 = -13.
	writeTestFile(t, filepath.Join(root, "sys/class/power_supply/BAT0/power_now"), "20000000\n")
	writeStat(t, root, 150, 950, 150, 950)
	snap, err = s.Sample()
	if err != nil {
		t.Fatal(err)
	}
	rate = snap.BatteryRateW()
	if rate == nil {
		t.Fatal("want a rate")
	}
	if *rate < -13.01 || *rate > -12.99 {
		t.Errorf("smoothed rate = %.2f, want -13.00", *rate)
	}
}

func TestSample_PowerSourceFollowsMains(t *testing.T) {
	root := fakeTree(t)
	writeStat(t, root, 100, 900, 100, 900)
	fakeBattery(t, root, 80, "Discharging", 0)
	acOnline := filepath.Join(root, "sys/class/power_supply/AC/online")
	writeTestFile(t, filepath.Join(root, "sys/class/power_supply/AC/type"), "Mains\n")
	writeTestFile(t, acOnline, "0\n")

	s := newTestSampler(t, root)
	snap, _ := s.Sample()
	if snap.Source != domain.PowerBattery {
		t.Errorf("Source = %v, want battery", snap.Source)
	}

	writeTestFile(t, acOnline, "1\n")
	snap, _ = s.Sample()
	if snap.Source != domain.PowerAC {
		t.Errorf("Source = %v, want ac after plug-in", snap.Source)
	}
}
