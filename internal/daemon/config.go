// Package daemon manages the Watt daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/watt-tools/watt/internal/domain"
)

// Config holds all daemon configuration: one profile per power source,
// daemon loop settings and the power-supply ignore list.
type Config struct {
	Charger ProfileConfig `toml:"charger"`
	Battery ProfileConfig `toml:"battery"`
	Daemon  DaemonConfig  `toml:"daemon"`

	// BatteryChargeThresholds is the global pair; per-profile values
	// override it. Absent means "do not manage".
	BatteryChargeThresholds *ThresholdPair `toml:"battery_charge_thresholds"`

	PowerSupplyIgnoreList IgnoreList `toml:"power_supply_ignore_list"`

	// IgnoredPowerSupplies is the legacy top-level spelling of the
	// ignore list; both forms are merged.
	IgnoredPowerSupplies []string `toml:"ignored_power_supplies"`
}

// ProfileConfig is one power source's declarative profile. Nil means
// "leave the setting alone".
type ProfileConfig struct {
	Governor        *string                   `toml:"governor" validate:"omitempty,printascii,max=32"`
	Turbo           *string                   `toml:"turbo" validate:"omitempty,oneof=always never auto"`
	EnableAutoTurbo *bool                     `toml:"enable_auto_turbo"`
	TurboAuto       *domain.TurboAutoSettings `toml:"turbo_auto_settings"`
	EPP             *string                   `toml:"epp" validate:"omitempty,printascii,max=32"`
	EPB             *string                   `toml:"epb" validate:"omitempty,printascii,max=24"`
	PlatformProfile *string                   `toml:"platform_profile" validate:"omitempty,printascii,max=32"`
	MinFreqMHz      *uint                     `toml:"min_freq_mhz" validate:"omitempty,gt=0,lte=10000"`
	MaxFreqMHz      *uint                     `toml:"max_freq_mhz" validate:"omitempty,gt=0,lte=10000"`
	Thresholds      *ThresholdPair            `toml:"battery_charge_thresholds"`
}

// DaemonConfig controls the loop itself.
type DaemonConfig struct {
	PollIntervalSec      uint   `toml:"poll_interval_sec" validate:"gte=1,lte=3600"`
	AdaptiveInterval     bool   `toml:"adaptive_interval"`
	MinPollIntervalSec   uint   `toml:"min_poll_interval_sec" validate:"gte=1,lte=3600"`
	MaxPollIntervalSec   uint   `toml:"max_poll_interval_sec" validate:"gte=1,lte=3600"`
	ThrottleOnBattery    bool   `toml:"throttle_on_battery"`
	StatsFilePath        string `toml:"stats_file_path"`
	JournalPath          string `toml:"journal_path"`
	JournalRetentionDays uint   `toml:"journal_retention_days" validate:"lte=3650"`
	ListenAddr           string `toml:"listen_addr" validate:"omitempty,hostname_port"`
	Verbose              bool   `toml:"verbose"`
}

// IgnoreList is the [power_supply_ignore_list] table.
type IgnoreList struct {
	Names []string `toml:"names"`
}

// DefaultConfig returns the built-in defaults used when no config file
// exists: schedutil everywhere, turbo auto, no clamps, no thresholds.
func DefaultConfig() Config {
	// Each profile gets its own pointers: the TOML decoder writes through
	// non-nil pointers, so shared ones would leak one table into the other.
	str := func(s string) *string { return &s }
	return Config{
		Charger: ProfileConfig{Governor: str("schedutil"), Turbo: str("auto")},
		Battery: ProfileConfig{Governor: str("schedutil"), Turbo: str("auto")},
		Daemon: DaemonConfig{
			PollIntervalSec:      5,
			AdaptiveInterval:     false,
			MinPollIntervalSec:   1,
			MaxPollIntervalSec:   30,
			ThrottleOnBattery:    true,
			JournalRetentionDays: 30,
		},
	}
}

// configSearchPath returns candidate config locations in priority order.
func configSearchPath() []string {
	if env := os.Getenv("WATT_CONFIG"); env != "" {
		return []string{env}
	}
	return []string{"/etc/xdg/watt/config.toml", "/etc/watt.toml"}
}

// LoadConfig reads the first config file found on the search path,
// falling back to defaults when none exists. Unknown keys are warned and
// ignored; structural errors are returned to the caller.
func LoadConfig() (Config, error) {
	for _, path := range configSearchPath() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadConfigFile(path)
	}
	return DefaultConfig(), nil
}

// LoadConfigFile loads and validates one specific config file.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Printf("[config] %s: unknown key %q ignored", path, key.String())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	d := c.Daemon
	if d.MinPollIntervalSec > d.MaxPollIntervalSec {
		return fmt.Errorf("%w: min_poll_interval_sec (%d) exceeds max_poll_interval_sec (%d)",
			domain.ErrInvalidArgument, d.MinPollIntervalSec, d.MaxPollIntervalSec)
	}
	if d.PollIntervalSec < d.MinPollIntervalSec || d.PollIntervalSec > d.MaxPollIntervalSec {
		return fmt.Errorf("%w: poll_interval_sec (%d) outside [%d, %d]",
			domain.ErrInvalidArgument, d.PollIntervalSec, d.MinPollIntervalSec, d.MaxPollIntervalSec)
	}

	for name, p := range map[string]ProfileConfig{"charger": c.Charger, "battery": c.Battery} {
		if p.TurboAuto != nil {
			if err := p.TurboAuto.Validate(); err != nil {
				return fmt.Errorf("[%s] turbo_auto_settings: %w", name, err)
			}
		}
		if p.Thresholds != nil {
			if err := p.Thresholds.Domain().Validate(); err != nil {
				return fmt.Errorf("[%s] battery_charge_thresholds: %w", name, err)
			}
		}
		if p.MinFreqMHz != nil && p.MaxFreqMHz != nil && *p.MinFreqMHz > *p.MaxFreqMHz {
			return fmt.Errorf("%w: [%s] min_freq_mhz (%d) exceeds max_freq_mhz (%d)",
				domain.ErrInvalidArgument, name, *p.MinFreqMHz, *p.MaxFreqMHz)
		}
	}
	if c.BatteryChargeThresholds != nil {
		if err := c.BatteryChargeThresholds.Domain().Validate(); err != nil {
			return fmt.Errorf("battery_charge_thresholds: %w", err)
		}
	}
	return nil
}

// IgnoreNames merges both spellings of the power-supply ignore list.
func (c *Config) IgnoreNames() []string {
	out := append([]string(nil), c.PowerSupplyIgnoreList.Names...)
	return append(out, c.IgnoredPowerSupplies...)
}

// ProfileFor resolves the active profile for a power source, applying
// the global threshold fallback and auto-turbo defaults.
func (c *Config) ProfileFor(src domain.PowerSource) domain.Profile {
	p := c.Charger
	if src == domain.PowerBattery {
		p = c.Battery
	}

	prof := domain.Profile{
		Governor:        p.Governor,
		EPP:             p.EPP,
		EPB:             p.EPB,
		PlatformProfile: p.PlatformProfile,
		MinFreqMHz:      p.MinFreqMHz,
		MaxFreqMHz:      p.MaxFreqMHz,
		EnableAutoTurbo: true,
		TurboAuto:       domain.DefaultTurboAutoSettings(),
	}
	if p.Turbo != nil {
		if t, err := domain.ParseTurboSetting(*p.Turbo); err == nil {
			prof.Turbo = &t
		}
	}
	if p.EnableAutoTurbo != nil {
		prof.EnableAutoTurbo = *p.EnableAutoTurbo
	}
	if p.TurboAuto != nil {
		prof.TurboAuto = *p.TurboAuto
	}

	thresholds := c.BatteryChargeThresholds
	if p.Thresholds != nil {
		thresholds = p.Thresholds
	}
	if thresholds != nil {
		t := thresholds.Domain()
		prof.Thresholds = &t
	}
	return prof
}

// ThresholdPair accepts both TOML spellings of a charge threshold pair:
// the array form `[40, 80]` and the table form `{ start = 40, stop = 80 }`.
type ThresholdPair struct {
	Start uint8
	Stop  uint8
}

// Domain converts to the domain value type.
func (t ThresholdPair) Domain() domain.ChargeThresholds {
	return domain.ChargeThresholds{Start: t.Start, Stop: t.Stop}
}

// UnmarshalTOML implements toml.Unmarshaler.
func (t *ThresholdPair) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case []any:
		if len(val) != 2 {
			return fmt.Errorf("battery_charge_thresholds wants [start, stop], got %d values", len(val))
		}
		start, ok1 := asUint8(val[0])
		stop, ok2 := asUint8(val[1])
		if !ok1 || !ok2 {
			return fmt.Errorf("battery_charge_thresholds values must be integers 0-100")
		}
		t.Start, t.Stop = start, stop
		return nil
	case map[string]any:
		start, ok1 := asUint8(val["start"])
		stop, ok2 := asUint8(val["stop"])
		if !ok1 || !ok2 {
			return fmt.Errorf("battery_charge_thresholds wants start and stop integers")
		}
		t.Start, t.Stop = start, stop
		return nil
	default:
		return fmt.Errorf("battery_charge_thresholds: unsupported TOML shape %T", v)
	}
}

func asUint8(v any) (uint8, bool) {
	i, ok := v.(int64)
	if !ok || i < 0 || i > 100 {
		return 0, false
	}
	return uint8(i), true
}

// overridePath is where force-governor persists its choice.
const overridePath = "/etc/xdg/watt/governor-override"

// ReadGovernorOverride returns the persisted override governor, "" when
// none is set.
func ReadGovernorOverride() string {
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WriteGovernorOverride persists an override governor.
func WriteGovernorOverride(name string) error {
	if err := os.MkdirAll("/etc/xdg/watt", 0o755); err != nil {
		return err
	}
	return os.WriteFile(overridePath, []byte(name+"\n"), 0o644)
}

// ClearGovernorOverride removes the override; a missing file is fine.
func ClearGovernorOverride() error {
	err := os.Remove(overridePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
