package domain

import "fmt"

// TurboAutoSettings are the hysteresis thresholds for auto-turbo. Loads
// are in percent to match the config file; temperature is in Celsius.
type TurboAutoSettings struct {
	LoadHighPct float64 `toml:"load_threshold_high"`
	LoadLowPct  float64 `toml:"load_threshold_low"`
	TempHighC   float64 `toml:"temp_threshold_high"`
	InitialOn   bool    `toml:"initial_turbo_state"`
}

// DefaultTurboAutoSettings mirrors the built-in configuration defaults.
func DefaultTurboAutoSettings() TurboAutoSettings {
	return TurboAutoSettings{
		LoadHighPct: 70.0,
		LoadLowPct:  30.0,
		TempHighC:   75.0,
		InitialOn:   false,
	}
}

// Validate rejects threshold sets the controller cannot act on.
func (t TurboAutoSettings) Validate() error {
	if t.LoadHighPct <= t.LoadLowPct || t.LoadLowPct < 0 || t.LoadHighPct > 100 {
		return fmt.Errorf("%w: load thresholds must satisfy 0 <= low < high <= 100 (got low=%.1f high=%.1f)",
			ErrInvalidArgument, t.LoadLowPct, t.LoadHighPct)
	}
	if t.TempHighC <= 0 || t.TempHighC > 110 {
		return fmt.Errorf("%w: temperature threshold must be in (0, 110] °C (got %.1f)",
			ErrInvalidArgument, t.TempHighC)
	}
	return nil
}

// Profile is the resolved configuration for one power source. Nil fields
// mean "do not manage": the engine never touches a setting the operator
// did not configure.
type Profile struct {
	Governor        *string
	Turbo           *TurboSetting
	EnableAutoTurbo bool
	TurboAuto       TurboAutoSettings
	EPP             *string
	EPB             *string // 0-15 or symbolic, parsed at apply time
	PlatformProfile *string
	MinFreqMHz      *uint
	MaxFreqMHz      *uint
	Thresholds      *ChargeThresholds
}
