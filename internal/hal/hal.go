// Package hal is the hardware abstraction layer over Linux sysfs/procfs.
// It exposes capability-typed probe/apply pairs for CPU frequency scaling,
// turbo boost, energy hints, platform profiles and battery charge control,
// and encapsulates the vendor quirks behind battery thresholds.
//
// Every path is resolved under a configurable filesystem root (default "/")
// so the whole layer runs against a fake tree in tests. Nothing is cached
// except read-only topology and startup capability probes.
package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
)

const (
	cpuBase        = "sys/devices/system/cpu"
	powerSupplyDir = "sys/class/power_supply"

	scalingGovFile   = "cpufreq/scaling_governor"
	availGovFile     = "cpufreq/scaling_available_governors"
	scalingDrvFile   = "cpufreq/scaling_driver"
	scalingMinFile   = "cpufreq/scaling_min_freq"
	scalingMaxFile   = "cpufreq/scaling_max_freq"
	cpuinfoMinFile   = "cpufreq/cpuinfo_min_freq"
	cpuinfoMaxFile   = "cpufreq/cpuinfo_max_freq"
	eppFile          = "cpufreq/energy_performance_preference"
	availEppFile     = "cpufreq/energy_performance_available_preferences"
	epbFile          = "power/energy_perf_bias"
	platformProfile = "sys/firmware/acpi/platform_profile"
	platformChoices = "sys/firmware/acpi/platform_profile_choices"
	dmiVendorFile   = "sys/class/dmi/id/sys_vendor"
)

// HAL provides probe/apply access to the power-management surfaces of the
// running kernel. Construct with New; the zero value is not usable.
type HAL struct {
	root string
	topo domain.CPUTopology

	turbo turboEndpoint // resolved once at startup
}

// New discovers CPU topology and probes capabilities under root
// (normally "/"). A missing cpufreq tree is fatal: without it the daemon
// has nothing to manage.
func New(root string) (*HAL, error) {
	h := &HAL{root: root}

	topo, err := h.discoverTopology()
	if err != nil {
		return nil, err
	}
	h.topo = topo
	h.turbo = h.probeTurbo()
	return h, nil
}

// Topology returns the immutable CPU topology discovered at startup.
func (h *HAL) Topology() domain.CPUTopology { return h.topo }

// RefreshTopology re-reads per-CPU entries. The daemon calls it when the
// CPU count in /proc/stat no longer matches the discovered topology.
func (h *HAL) RefreshTopology() error {
	topo, err := h.discoverTopology()
	if err != nil {
		return err
	}
	h.topo = topo
	return nil
}

// path joins elem under the HAL's filesystem root.
func (h *HAL) path(elem ...string) string {
	return filepath.Join(append([]string{h.root}, elem...)...)
}

func (h *HAL) cpuPath(cpu int, file string) string {
	return h.path(cpuBase, fmt.Sprintf("cpu%d", cpu), file)
}

func (h *HAL) exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// discoverTopology enumerates cpu[0-9]* directories and reads each CPU's
// scaling driver, governor list, EPP list and hardware frequency range.
func (h *HAL) discoverTopology() (domain.CPUTopology, error) {
	entries, err := filepath.Glob(h.path(cpuBase, "cpu[0-9]*"))
	if err != nil || len(entries) == 0 {
		return domain.CPUTopology{}, fmt.Errorf("%w: no CPUs under %s", domain.ErrIO, h.path(cpuBase))
	}
	sort.Slice(entries, func(i, j int) bool {
		return cpuDirID(entries[i]) < cpuDirID(entries[j])
	})

	var topo domain.CPUTopology
	for _, dir := range entries {
		id := cpuDirID(dir)
		if id < 0 {
			continue
		}
		info := domain.CPUInfo{ID: id}
		info.ScalingDriver, _ = readString(filepath.Join(dir, scalingDrvFile))
		if govs, err := readString(filepath.Join(dir, availGovFile)); err == nil {
			info.AvailableGovernors = strings.Fields(govs)
		}
		if epps, err := readString(filepath.Join(dir, availEppFile)); err == nil {
			info.AvailableEPP = strings.Fields(epps)
		}
		info.MinFreqKHz, _ = readUint(filepath.Join(dir, cpuinfoMinFile))
		info.MaxFreqKHz, _ = readUint(filepath.Join(dir, cpuinfoMaxFile))
		topo.CPUs = append(topo.CPUs, info)
	}
	if len(topo.CPUs) == 0 {
		return domain.CPUTopology{}, fmt.Errorf("%w: cpu directories unreadable", domain.ErrIO)
	}
	return topo, nil
}

// cpuDirID extracts N from a .../cpuN directory, -1 for cpufreq/cpuidle etc.
func cpuDirID(dir string) int {
	base := strings.TrimPrefix(filepath.Base(dir), "cpu")
	id, err := strconv.Atoi(base)
	if err != nil {
		return -1
	}
	return id
}
