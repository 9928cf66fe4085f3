package hal

import (
	"path/filepath"
)

// MaxTemperatureC scans thermal zones and hwmon sensors and returns the
// hottest reading in degrees Celsius. The second return is false when no
// sensor was readable; callers must not treat that as 0°C.
func (h *HAL) MaxTemperatureC() (float64, bool) {
	patterns := []string{
		h.path("sys/class/thermal/thermal_zone*/temp"),
		h.path("sys/class/hwmon/hwmon*/temp*_input"),
	}

	var maxC float64
	found := false
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		for _, path := range matches {
			milli, err := readUint(path)
			if err != nil || milli == 0 {
				continue
			}
			c := float64(milli) / 1000.0
			// Sensors occasionally report garbage; skip implausible values.
			if c < -40 || c > 150 {
				continue
			}
			if !found || c > maxC {
				maxC = c
				found = true
			}
		}
	}
	return maxC, found
}
