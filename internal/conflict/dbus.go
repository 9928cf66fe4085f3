package conflict

import (
	"github.com/godbus/dbus/v5"
)

// wellKnownBusNames maps D-Bus names of power managers to what they
// contest. Catches managers whose process name did not match the comm
// scan (renamed binaries, containers).
var wellKnownBusNames = map[string]knownManager{
	"org.freedesktop.UPower.PowerProfiles": {"power-profiles-daemon", "platform_profile, energy_performance_preference"},
	"net.hadess.PowerProfiles":             {"power-profiles-daemon", "platform_profile, energy_performance_preference"},
	"com.system76.PowerDaemon":             {"system76-power", "platform_profile, cpufreq scaling_governor"},
}

// listSystemBusNames returns the currently owned names on the system bus,
// or nil when the bus is unreachable (headless, container, tests).
func listSystemBusNames() []string {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil
	}
	defer conn.Close()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil
	}
	return names
}

// scanBus reports managers visible only through their bus name; already
// reported processes are not duplicated.
func (d *Detector) scanBus(already []Conflict) []Conflict {
	if d.busNames == nil {
		return nil
	}
	seen := make(map[string]bool, len(already))
	for _, c := range already {
		seen[c.Process] = true
	}

	var found []Conflict
	for _, name := range d.busNames() {
		m, ok := wellKnownBusNames[name]
		if !ok || seen[m.comm] {
			continue
		}
		seen[m.comm] = true
		found = append(found, Conflict{Process: m.comm, Contested: m.contested})
	}
	return found
}
