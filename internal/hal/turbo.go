package hal

import (
	"fmt"

	"github.com/watt-tools/watt/internal/domain"
)

// turboKind identifies which driver toggle controls turbo boost.
type turboKind int

const (
	turboNone turboKind = iota
	turboIntelNoTurbo    // intel_pstate/no_turbo, inverted sense
	turboCpufreqBoost    // cpufreq/boost
	turboAMDCpbBoost     // amd_pstate/cpb_boost
)

type turboEndpoint struct {
	kind turboKind
	path string
}

// probeTurbo resolves the turbo toggle once at startup. Probe order
// matters: intel_pstate wins over the generic boost file when both exist.
func (h *HAL) probeTurbo() turboEndpoint {
	candidates := []turboEndpoint{
		{turboIntelNoTurbo, h.path(cpuBase, "intel_pstate/no_turbo")},
		{turboCpufreqBoost, h.path(cpuBase, "cpufreq/boost")},
		{turboAMDCpbBoost, h.path(cpuBase, "amd_pstate/cpb_boost")},
	}
	for _, c := range candidates {
		if h.exists(c.path) {
			return c
		}
	}
	return turboEndpoint{kind: turboNone}
}

// TurboSupported reports whether any turbo toggle exists.
func (h *HAL) TurboSupported() bool { return h.turbo.kind != turboNone }

// CurrentTurbo reads the effective turbo state. SystemDefault is never
// observed — the kernel only reports on or off.
func (h *HAL) CurrentTurbo() (domain.TurboState, error) {
	if h.turbo.kind == turboNone {
		return domain.TurboOff, fmt.Errorf("%w: no turbo control endpoint", domain.ErrUnsupported)
	}
	v, err := readUint(h.turbo.path)
	if err != nil {
		return domain.TurboOff, err
	}
	on := v != 0
	if h.turbo.kind == turboIntelNoTurbo {
		on = !on // no_turbo=1 means turbo disabled
	}
	if on {
		return domain.TurboOn, nil
	}
	return domain.TurboOff, nil
}

// SetTurbo applies a turbo decision. TurboSystemDefault removes any prior
// override: for intel_pstate that is writing no_turbo=0, for boost files
// it is re-enabling boost.
func (h *HAL) SetTurbo(state domain.TurboState) error {
	if h.turbo.kind == turboNone {
		return fmt.Errorf("%w: no turbo control endpoint", domain.ErrUnsupported)
	}

	var value string
	switch h.turbo.kind {
	case turboIntelNoTurbo:
		if state == domain.TurboOff {
			value = "1"
		} else {
			value = "0" // On and SystemDefault both clear no_turbo
		}
	default:
		if state == domain.TurboOff {
			value = "0"
		} else {
			value = "1"
		}
	}
	return writeVerified(h.turbo.path, value)
}
