package hal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
)

// CurrentGovernor reads a CPU's active scaling governor.
func (h *HAL) CurrentGovernor(cpu int) (string, error) {
	return readString(h.cpuPath(cpu, scalingGovFile))
}

// SetGovernor writes name to one CPU's scaling_governor. Names not listed
// in scaling_available_governors are rejected as unsupported without
// touching the file.
func (h *HAL) SetGovernor(cpu int, name string) error {
	info := h.topo.ByID(cpu)
	if info == nil {
		return fmt.Errorf("%w: no such cpu %d", domain.ErrInvalidArgument, cpu)
	}
	if len(info.AvailableGovernors) > 0 && !info.SupportsGovernor(name) {
		return fmt.Errorf("%w: governor %q not in %v for cpu%d",
			domain.ErrUnsupported, name, info.AvailableGovernors, cpu)
	}
	return writeVerified(h.cpuPath(cpu, scalingGovFile), name)
}

// SetGovernorAll applies the governor to every CPU, returning the first
// error encountered. Per-CPU unsupported values are reported
// by the caller; a desync between CPUs is possible on hybrid parts.
func (h *HAL) SetGovernorAll(name string) error {
	var firstErr error
	for _, c := range h.topo.CPUs {
		if err := h.SetGovernor(c.ID, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CurrentEPP reads a CPU's energy_performance_preference.
func (h *HAL) CurrentEPP(cpu int) (string, error) {
	return readString(h.cpuPath(cpu, eppFile))
}

// SetEPP writes the energy performance preference for one CPU.
func (h *HAL) SetEPP(cpu int, name string) error {
	info := h.topo.ByID(cpu)
	if info == nil {
		return fmt.Errorf("%w: no such cpu %d", domain.ErrInvalidArgument, cpu)
	}
	path := h.cpuPath(cpu, eppFile)
	if !h.exists(path) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupported, path)
	}
	if len(info.AvailableEPP) > 0 && !info.SupportsEPP(name) {
		return fmt.Errorf("%w: epp %q not in %v for cpu%d",
			domain.ErrUnsupported, name, info.AvailableEPP, cpu)
	}
	return writeVerified(path, name)
}

// epbAliases maps the kernel's documented symbolic EPB names to values.
var epbAliases = map[string]int{
	"performance":         0,
	"balance-performance": 4,
	"balance_performance": 4,
	"normal":              6,
	"default":             6,
	"balance-power":       8,
	"balance_power":       8,
	"power":               15,
}

// ParseEPB accepts 0-15 or a symbolic alias.
func ParseEPB(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := epbAliases[s]; ok {
		return v, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 15 {
		return 0, fmt.Errorf("%w: epb must be 0-15 or one of performance, balance-performance, normal, balance-power, power; got %q",
			domain.ErrInvalidArgument, s)
	}
	return v, nil
}

// CurrentEPB reads a CPU's energy_perf_bias value.
func (h *HAL) CurrentEPB(cpu int) (int, error) {
	v, err := readUint(h.cpuPath(cpu, epbFile))
	return int(v), err
}

// SetEPB writes the energy performance bias (0-15) for one CPU.
func (h *HAL) SetEPB(cpu, value int) error {
	if value < 0 || value > 15 {
		return fmt.Errorf("%w: epb %d out of range 0-15", domain.ErrInvalidArgument, value)
	}
	path := h.cpuPath(cpu, epbFile)
	if !h.exists(path) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupported, path)
	}
	return writeVerified(path, strconv.Itoa(value))
}

// CurrentFreqLimitsKHz reads a CPU's scaling_min_freq/scaling_max_freq.
func (h *HAL) CurrentFreqLimitsKHz(cpu int) (minKHz, maxKHz uint64, err error) {
	minKHz, err = readUint(h.cpuPath(cpu, scalingMinFile))
	if err != nil {
		return 0, 0, err
	}
	maxKHz, err = readUint(h.cpuPath(cpu, scalingMaxFile))
	if err != nil {
		return 0, 0, err
	}
	return minKHz, maxKHz, nil
}

// SetFreqLimitsKHz clamps the requested window into the hardware range
// and writes both limits. The write that widens the window goes first so
// the kernel never sees a transient min > max. A zero min or max leaves
// that side untouched.
func (h *HAL) SetFreqLimitsKHz(cpu int, minKHz, maxKHz uint64) error {
	info := h.topo.ByID(cpu)
	if info == nil {
		return fmt.Errorf("%w: no such cpu %d", domain.ErrInvalidArgument, cpu)
	}
	minPath := h.cpuPath(cpu, scalingMinFile)
	maxPath := h.cpuPath(cpu, scalingMaxFile)
	if !h.exists(minPath) || !h.exists(maxPath) {
		return fmt.Errorf("%w: cpu%d has no scaling freq files", domain.ErrUnsupported, cpu)
	}

	if minKHz > 0 {
		minKHz = info.ClampFreqKHz(minKHz)
	}
	if maxKHz > 0 {
		maxKHz = info.ClampFreqKHz(maxKHz)
	}
	if minKHz > 0 && maxKHz > 0 && minKHz > maxKHz {
		return fmt.Errorf("%w: min %d kHz exceeds max %d kHz after clamping",
			domain.ErrInvalidArgument, minKHz, maxKHz)
	}

	curMin, curMax, err := h.CurrentFreqLimitsKHz(cpu)
	if err != nil {
		return err
	}

	writeMin := func() error {
		if minKHz == 0 || minKHz == curMin {
			return nil
		}
		return writeString(minPath, strconv.FormatUint(minKHz, 10))
	}
	writeMax := func() error {
		if maxKHz == 0 || maxKHz == curMax {
			return nil
		}
		return writeString(maxPath, strconv.FormatUint(maxKHz, 10))
	}

	// Raising max widens the window; lowering min widens it too.
	if maxKHz >= curMax {
		if err := writeMax(); err != nil {
			return err
		}
		return writeMin()
	}
	if err := writeMin(); err != nil {
		return err
	}
	return writeMax()
}
