package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/watt-tools/watt/internal/domain"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Charger.Governor == nil || *cfg.Charger.Governor != "schedutil" {
		t.Errorf("default charger governor = %v, want schedutil", cfg.Charger.Governor)
	}
	if cfg.Battery.Turbo == nil || *cfg.Battery.Turbo != "auto" {
		t.Errorf("default battery turbo = %v, want auto", cfg.Battery.Turbo)
	}
	if cfg.Daemon.PollIntervalSec != 5 || cfg.Daemon.MinPollIntervalSec != 1 || cfg.Daemon.MaxPollIntervalSec != 30 {
		t.Errorf("default poll bounds = %d/%d/%d, want 5/1/30",
			cfg.Daemon.PollIntervalSec, cfg.Daemon.MinPollIntervalSec, cfg.Daemon.MaxPollIntervalSec)
	}
	if !cfg.Daemon.ThrottleOnBattery {
		t.Error("throttle_on_battery should default on")
	}
	if cfg.BatteryChargeThresholds != nil {
		t.Error("thresholds should default to unmanaged")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadConfigFile_FullFile(t *testing.T) {
	path := writeConfig(t, `
battery_charge_thresholds = [40, 80]

[charger]
governor = "performance"
turbo = "auto"
enable_auto_turbo = true
epp = "performance"
min_freq_mhz = 800
max_freq_mhz = 5000

  [charger.turbo_auto_settings]
  load_threshold_high = 65.0
  load_threshold_low = 25.0
  temp_threshold_high = 70.0
  initial_turbo_state = true

[battery]
governor = "powersave"
turbo = "never"
battery_charge_thresholds = { start = 50, stop = 85 }

[daemon]
poll_interval_sec = 10
adaptive_interval = true
min_poll_interval_sec = 2
max_poll_interval_sec = 60
stats_file_path = "/tmp/watt-stats"

[power_supply_ignore_list]
names = ["hidpp_battery_0"]
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if *cfg.Charger.Governor != "performance" {
		t.Errorf("charger governor = %q", *cfg.Charger.Governor)
	}
	if cfg.Charger.TurboAuto == nil || cfg.Charger.TurboAuto.LoadHighPct != 65 {
		t.Errorf("charger turbo_auto = %+v, want load_hi 65", cfg.Charger.TurboAuto)
	}
	if !cfg.Charger.TurboAuto.InitialOn {
		t.Error("initial_turbo_state should parse true")
	}
	if cfg.BatteryChargeThresholds == nil || cfg.BatteryChargeThresholds.Start != 40 || cfg.BatteryChargeThresholds.Stop != 80 {
		t.Errorf("global thresholds = %+v, want 40-80 (array form)", cfg.BatteryChargeThresholds)
	}
	if cfg.Battery.Thresholds == nil || cfg.Battery.Thresholds.Start != 50 || cfg.Battery.Thresholds.Stop != 85 {
		t.Errorf("battery thresholds = %+v, want 50-85 (table form)", cfg.Battery.Thresholds)
	}
	if cfg.Daemon.PollIntervalSec != 10 || !cfg.Daemon.AdaptiveInterval {
		t.Errorf("daemon = %+v", cfg.Daemon)
	}
	if names := cfg.IgnoreNames(); len(names) != 1 || names[0] != "hidpp_battery_0" {
		t.Errorf("IgnoreNames = %v", names)
	}
}

func TestLoadConfigFile_UnknownKeysIgnored(t *testing.T) {
	path := writeConfig(t, `
[charger]
governor = "performance"
frobnicate = true
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unknown keys must not fail the parse: %v", err)
	}
	if *cfg.Charger.Governor != "performance" {
		t.Error("known keys must still decode")
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad turbo":           "[charger]\nturbo = \"sometimes\"\n",
		"thresholds reversed": "battery_charge_thresholds = [80, 40]\n",
		"poll out of bounds":  "[daemon]\npoll_interval_sec = 50\nmin_poll_interval_sec = 1\nmax_poll_interval_sec = 30\n",
		"min above max":       "[daemon]\nmin_poll_interval_sec = 20\nmax_poll_interval_sec = 10\n",
		"freq reversed":       "[charger]\nmin_freq_mhz = 4000\nmax_freq_mhz = 800\n",
		"turbo auto reversed": "[charger]\n[charger.turbo_auto_settings]\nload_threshold_high = 20.0\nload_threshold_low = 60.0\n",
	}
	for name, body := range cases {
		path := writeConfig(t, body)
		if _, err := LoadConfigFile(path); err == nil {
			t.Errorf("%s: config accepted:\n%s", name, body)
		}
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "[battery]\ngovernor = \"powersave\"\n")
	t.Setenv("WATT_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if *cfg.Battery.Governor != "powersave" {
		t.Errorf("governor = %q, want powersave from $WATT_CONFIG", *cfg.Battery.Governor)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("WATT_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if *cfg.Charger.Governor != "schedutil" {
		t.Error("missing file should fall back to defaults")
	}
}

func TestProfileFor_ResolvesPerSource(t *testing.T) {
	perf, save := "performance", "powersave"
	auto := "auto"
	cfg := DefaultConfig()
	cfg.Charger.Governor = &perf
	cfg.Charger.Turbo = &auto
	cfg.Battery.Governor = &save

	ac := cfg.ProfileFor(domain.PowerAC)
	if *ac.Governor != "performance" {
		t.Errorf("AC governor = %q", *ac.Governor)
	}
	if ac.Turbo == nil || *ac.Turbo != domain.TurboAuto {
		t.Errorf("AC turbo = %v, want auto", ac.Turbo)
	}
	if !ac.EnableAutoTurbo {
		t.Error("enable_auto_turbo should default true")
	}
	if ac.TurboAuto.LoadHighPct != 70 {
		t.Errorf("turbo auto defaults = %+v", ac.TurboAuto)
	}

	bat := cfg.ProfileFor(domain.PowerBattery)
	if *bat.Governor != "powersave" {
		t.Errorf("battery governor = %q", *bat.Governor)
	}
}

func TestProfileFor_ThresholdOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatteryChargeThresholds = &ThresholdPair{Start: 40, Stop: 80}
	cfg.Battery.Thresholds = &ThresholdPair{Start: 50, Stop: 85}

	ac := cfg.ProfileFor(domain.PowerAC)
	if ac.Thresholds == nil || ac.Thresholds.Start != 40 || ac.Thresholds.Stop != 80 {
		t.Errorf("AC thresholds = %+v, want global 40-80", ac.Thresholds)
	}
	bat := cfg.ProfileFor(domain.PowerBattery)
	if bat.Thresholds == nil || bat.Thresholds.Start != 50 || bat.Thresholds.Stop != 85 {
		t.Errorf("battery thresholds = %+v, want per-profile 50-85", bat.Thresholds)
	}
}

func TestProfileFor_NoThresholdsMeansUnmanaged(t *testing.T) {
	cfg := DefaultConfig()
	if prof := cfg.ProfileFor(domain.PowerAC); prof.Thresholds != nil {
		t.Errorf("thresholds = %+v, want nil (do not manage)", prof.Thresholds)
	}
}
