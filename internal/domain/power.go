// Package domain holds the shared value types of the Watt daemon: power
// sources, turbo settings, battery state, CPU topology and telemetry
// samples. Types here are pure — no sysfs access, no logging.
package domain

import (
	"fmt"
	"strings"
)

// PowerSource is where the machine currently draws power from.
type PowerSource int

const (
	PowerAC PowerSource = iota
	PowerBattery
)

// String returns the stats-file / log spelling of the power source.
func (p PowerSource) String() string {
	if p == PowerBattery {
		return "battery"
	}
	return "ac"
}

// TurboSetting is the configured turbo policy for a profile.
type TurboSetting int

const (
	TurboAlways TurboSetting = iota
	TurboNever
	TurboAuto
)

func (t TurboSetting) String() string {
	switch t {
	case TurboAlways:
		return "always"
	case TurboNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseTurboSetting parses the config/CLI spelling of a turbo setting.
func ParseTurboSetting(s string) (TurboSetting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return TurboAlways, nil
	case "never":
		return TurboNever, nil
	case "auto":
		return TurboAuto, nil
	default:
		return TurboAuto, fmt.Errorf("%w: turbo must be always, never or auto, got %q", ErrInvalidArgument, s)
	}
}

// TurboState is what the auto-turbo controller asks the HAL to apply.
type TurboState int

const (
	TurboOn TurboState = iota
	TurboOff
	// TurboSystemDefault clears any prior override so the driver's own
	// automatic behavior takes over.
	TurboSystemDefault
)

func (t TurboState) String() string {
	switch t {
	case TurboOn:
		return "on"
	case TurboOff:
		return "off"
	default:
		return "default"
	}
}

// BatteryStatus mirrors /sys/class/power_supply/*/status.
type BatteryStatus int

const (
	BatteryUnknown BatteryStatus = iota
	BatteryCharging
	BatteryDischarging
	BatteryFull
	BatteryNotCharging
)

func (s BatteryStatus) String() string {
	switch s {
	case BatteryCharging:
		return "charging"
	case BatteryDischarging:
		return "discharging"
	case BatteryFull:
		return "full"
	case BatteryNotCharging:
		return "not-charging"
	default:
		return "unknown"
	}
}

// ParseBatteryStatus parses the kernel's status spelling ("Charging",
// "Not charging", ...). Unrecognized strings map to BatteryUnknown.
func ParseBatteryStatus(s string) BatteryStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charging":
		return BatteryCharging
	case "discharging":
		return BatteryDischarging
	case "full":
		return BatteryFull
	case "not charging":
		return BatteryNotCharging
	default:
		return BatteryUnknown
	}
}

// BatteryVendor selects the charge-threshold quirk path.
type BatteryVendor int

const (
	VendorStandard BatteryVendor = iota
	VendorThinkPad
	VendorAsus
	VendorHuawei
	VendorOther
)

func (v BatteryVendor) String() string {
	switch v {
	case VendorStandard:
		return "standard"
	case VendorThinkPad:
		return "thinkpad"
	case VendorAsus:
		return "asus"
	case VendorHuawei:
		return "huawei"
	default:
		return "other"
	}
}

// ChargeThresholds is a start/stop charge-control pair in percent.
// Valid pairs satisfy 0 <= Start < Stop <= 100.
type ChargeThresholds struct {
	Start uint8 `toml:"start" json:"start"`
	Stop  uint8 `toml:"stop" json:"stop"`
}

// Validate checks the pair against the allowed range.
func (c ChargeThresholds) Validate() error {
	if c.Stop == 0 {
		return fmt.Errorf("%w: stop threshold must be greater than 0%%", ErrInvalidArgument)
	}
	if c.Start >= c.Stop {
		return fmt.Errorf("%w: start threshold (%d) must be less than stop threshold (%d)", ErrInvalidArgument, c.Start, c.Stop)
	}
	if c.Stop > 100 {
		return fmt.Errorf("%w: stop threshold (%d) cannot exceed 100%%", ErrInvalidArgument, c.Stop)
	}
	return nil
}

// BatteryState is one battery's view for a tick. ChargePct and RateW are
// nil when the kernel does not expose them. RateW is EMA-smoothed by the
// sampler; negative means discharging.
type BatteryState struct {
	Name      string
	Present   bool
	ChargePct *float64
	Status    BatteryStatus
	RateW     *float64
	Vendor    BatteryVendor
	ACOnline  bool
}
