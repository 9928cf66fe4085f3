package domain

// CPUInfo describes one logical CPU, discovered once at startup.
type CPUInfo struct {
	ID                 int
	ScalingDriver      string
	AvailableGovernors []string
	AvailableEPP       []string
	MinFreqKHz         uint64 // cpuinfo_min_freq
	MaxFreqKHz         uint64 // cpuinfo_max_freq
}

// SupportsGovernor reports whether name is offered by this CPU's driver.
func (c CPUInfo) SupportsGovernor(name string) bool {
	for _, g := range c.AvailableGovernors {
		if g == name {
			return true
		}
	}
	return false
}

// SupportsEPP reports whether the EPP name is offered. An empty available
// list means the driver does not publish the set; callers treat that as
// "try and see".
func (c CPUInfo) SupportsEPP(name string) bool {
	for _, e := range c.AvailableEPP {
		if e == name {
			return true
		}
	}
	return false
}

// ClampFreqKHz clamps a requested frequency into the hardware range.
func (c CPUInfo) ClampFreqKHz(khz uint64) uint64 {
	if c.MinFreqKHz > 0 && khz < c.MinFreqKHz {
		return c.MinFreqKHz
	}
	if c.MaxFreqKHz > 0 && khz > c.MaxFreqKHz {
		return c.MaxFreqKHz
	}
	return khz
}

// CPUTopology is the immutable set of logical CPUs.
type CPUTopology struct {
	CPUs []CPUInfo
}

// LogicalCount returns the number of logical CPUs.
func (t CPUTopology) LogicalCount() int { return len(t.CPUs) }

// ByID returns the CPUInfo for a logical id, or nil if out of range.
func (t CPUTopology) ByID(id int) *CPUInfo {
	for i := range t.CPUs {
		if t.CPUs[i].ID == id {
			return &t.CPUs[i]
		}
	}
	return nil
}

// CPUSample is one tick's utilization view derived from two consecutive
// jiffy snapshots. MaxTempC is nil when no thermal sensor is readable.
type CPUSample struct {
	PerCPUUsage []float64 // each in [0,1]
	AvgUsage    float64   // in [0,1]
	MaxTempC    *float64
}

// JiffyCounts is one CPU's row from /proc/stat.
type JiffyCounts struct {
	User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal uint64
}

// Total returns the sum of all accounted jiffies.
func (j JiffyCounts) Total() uint64 {
	return j.User + j.Nice + j.System + j.Idle + j.IOWait + j.IRQ + j.SoftIRQ + j.Steal
}

// IdleTotal returns idle plus iowait, the "not doing work" share.
func (j JiffyCounts) IdleTotal() uint64 {
	return j.Idle + j.IOWait
}
