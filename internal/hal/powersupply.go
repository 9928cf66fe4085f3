package hal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
)

// PowerSupply is one entry under /sys/class/power_supply.
type PowerSupply struct {
	Name   string
	IsBat  bool // type == Battery (excluding Device-scoped peripherals)
	Online bool // mains only
	Dir    string
}

// ReadPowerSupplies enumerates power supplies, filtering exact name
// matches against ignore. Peripheral batteries (scope "Device", e.g.
// wireless mice) are dropped — they must never influence the power source.
func (h *HAL) ReadPowerSupplies(ignore map[string]struct{}) ([]PowerSupply, error) {
	dir := h.path(powerSupplyDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		// No power_supply class at all: a desktop without the module.
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, mapReadErr(dir, err)
	}

	var out []PowerSupply
	for _, e := range entries {
		name := e.Name()
		if _, skip := ignore[name]; skip {
			continue
		}
		psDir := filepath.Join(dir, name)
		typ, err := readString(filepath.Join(psDir, "type"))
		if err != nil {
			continue
		}
		ps := PowerSupply{Name: name, Dir: psDir}
		switch typ {
		case "Battery":
			if scope, err := readString(filepath.Join(psDir, "scope")); err == nil && scope == "Device" {
				continue
			}
			ps.IsBat = true
		case "Mains", "USB", "UPS":
			if v, err := readUint(filepath.Join(psDir, "online")); err == nil {
				ps.Online = v != 0
			}
		default:
			continue
		}
		out = append(out, ps)
	}
	return out, nil
}

// PowerSource aggregates the non-ignored supplies: AC is present if any
// mains-class supply is online; with no batteries at all (desktops) the
// machine is treated as on AC.
func (h *HAL) PowerSource(ignore map[string]struct{}) (domain.PowerSource, error) {
	supplies, err := h.ReadPowerSupplies(ignore)
	if err != nil {
		return domain.PowerAC, err
	}
	hasBattery := false
	for _, ps := range supplies {
		if ps.IsBat {
			hasBattery = true
		} else if ps.Online {
			return domain.PowerAC, nil
		}
	}
	if !hasBattery {
		return domain.PowerAC, nil
	}
	return domain.PowerBattery, nil
}

// ReadBatteries returns the state of every non-ignored battery. RateW is
// the instantaneous power draw, negative while discharging; the sampler
// owns rate smoothing across ticks.
func (h *HAL) ReadBatteries(ignore map[string]struct{}) ([]domain.BatteryState, error) {
	supplies, err := h.ReadPowerSupplies(ignore)
	if err != nil {
		return nil, err
	}

	acOnline := false
	for _, ps := range supplies {
		if !ps.IsBat && ps.Online {
			acOnline = true
		}
	}

	var out []domain.BatteryState
	for _, ps := range supplies {
		if !ps.IsBat {
			continue
		}
		b := domain.BatteryState{
			Name:     ps.Name,
			Present:  true,
			Vendor:   h.detectVendor(ps.Dir),
			ACOnline: acOnline,
		}
		if v, err := readUint(filepath.Join(ps.Dir, "present")); err == nil {
			b.Present = v != 0
		}
		if v, err := readUint(filepath.Join(ps.Dir, "capacity")); err == nil {
			pct := float64(v)
			b.ChargePct = &pct
		}
		if s, err := readString(filepath.Join(ps.Dir, "status")); err == nil {
			b.Status = domain.ParseBatteryStatus(s)
		}
		if w, ok := h.instantRateW(ps.Dir); ok {
			if b.Status == domain.BatteryDischarging {
				w = -w
			}
			b.RateW = &w
		}
		out = append(out, b)
	}
	return out, nil
}

// instantRateW reads the battery's unsigned power draw in watts, from
// power_now or, when firmware omits it, voltage_now * current_now.
// The value is instantaneous; ReadBatteries applies the sign and the
// sampler owns smoothing.
func (h *HAL) instantRateW(dir string) (float64, bool) {
	if uw, err := readUint(filepath.Join(dir, "power_now")); err == nil && uw > 0 {
		return float64(uw) / 1e6, true
	}
	uv, errV := readUint(filepath.Join(dir, "voltage_now"))
	ua, errC := readUint(filepath.Join(dir, "current_now"))
	if errV == nil && errC == nil && uv > 0 && ua > 0 {
		return (float64(uv) / 1e6) * (float64(ua) / 1e6), true
	}
	return 0, false
}

// detectVendor classifies the charge-threshold quirk path for a battery.
// Endpoint presence is the primary signal; DMI breaks the tie between
// the standard pair and ThinkPad's stop-before-start requirement.
func (h *HAL) detectVendor(batDir string) domain.BatteryVendor {
	for _, p := range huaweiThresholdCandidates(h) {
		if h.exists(p) {
			return domain.VendorHuawei
		}
	}
	hasStart := h.exists(filepath.Join(batDir, "charge_control_start_threshold"))
	hasEnd := h.exists(filepath.Join(batDir, "charge_control_end_threshold"))
	switch {
	case hasStart && hasEnd:
		if vendor, err := readString(h.path(dmiVendorFile)); err == nil {
			v := strings.ToLower(vendor)
			if strings.Contains(v, "lenovo") || strings.Contains(v, "thinkpad") {
				return domain.VendorThinkPad
			}
		}
		return domain.VendorStandard
	case hasEnd:
		return domain.VendorAsus
	default:
		return domain.VendorOther
	}
}
