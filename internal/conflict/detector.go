// Package conflict probes for other active power managers before Watt
// starts fighting them over the same sysfs files. The policy is warn-only:
// the operator decides who wins, the daemon never aborts.
package conflict

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// knownManager names a competing power manager and the sysfs surfaces it
// is known to write.
type knownManager struct {
	comm      string
	contested string
}

var knownManagers = []knownManager{
	{"tlp", "cpufreq scaling_governor, energy_performance_preference, battery charge_control_*_threshold"},
	{"auto-cpufreq", "cpufreq scaling_governor, intel_pstate/no_turbo, cpufreq/boost"},
	{"cpupower", "cpufreq scaling_governor, scaling_min_freq, scaling_max_freq"},
	{"thermald", "intel_pstate limits, thermal cooling devices"},
	{"power-profiles-daemon", "platform_profile, energy_performance_preference"},
	{"tuned", "cpufreq scaling_governor, energy_perf_bias"},
}

// Conflict is one detected competitor.
type Conflict struct {
	Process   string
	PID       int
	Contested string
}

// Detector scans the process list (and optionally the system D-Bus) for
// known managers. procRoot defaults to "/proc" and is a test seam.
type Detector struct {
	procRoot string
	busNames func() []string // nil disables the D-Bus probe
}

// New creates a detector over the real /proc and the system bus.
func New() *Detector {
	return &Detector{procRoot: "/proc", busNames: listSystemBusNames}
}

// Scan enumerates /proc/*/comm and reports every known manager found.
// Run once at startup and again on SIGHUP.
func (d *Detector) Scan() []Conflict {
	var found []Conflict

	entries, err := os.ReadDir(d.procRoot)
	if err != nil {
		log.Printf("[conflict] cannot read %s: %v", d.procRoot, err)
		return nil
	}
	for _, e := range entries {
		pid := parsePID(e.Name())
		if pid <= 0 {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.procRoot, e.Name(), "comm"))
		if err != nil {
			continue // process exited mid-scan
		}
		comm := strings.TrimSpace(string(data))
		for _, m := range knownManagers {
			if comm == m.comm {
				found = append(found, Conflict{Process: comm, PID: pid, Contested: m.contested})
			}
		}
	}

	found = append(found, d.scanBus(found)...)
	return found
}

// Warn logs one warning per detected manager, naming the contested files.
func Warn(conflicts []Conflict) {
	for _, c := range conflicts {
		if c.PID > 0 {
			log.Printf("[conflict] %s (pid %d) is running and may contest: %s",
				c.Process, c.PID, c.Contested)
		} else {
			log.Printf("[conflict] %s is active on the system bus and may contest: %s",
				c.Process, c.Contested)
		}
	}
}

func parsePID(name string) int {
	pid := 0
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0
		}
		pid = pid*10 + int(r-'0')
	}
	return pid
}
