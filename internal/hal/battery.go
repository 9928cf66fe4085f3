package hal

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"github.com/watt-tools/watt/internal/domain"
)

// huaweiThresholdCandidates lists the known locations of the Huawei
// combined threshold file; the path moved between kernel releases.
func huaweiThresholdCandidates(h *HAL) []string {
	return []string{
		h.path(powerSupplyDir, "huawei-charge_control_thresholds"),
		h.path("sys/devices/platform/huawei-wmi/charge_control_thresholds"),
	}
}

// BatteryThresholdsSupported reports whether any battery offers a charge
// control endpoint the HAL knows how to drive.
func (h *HAL) BatteryThresholdsSupported() bool {
	bats, err := h.batteryDirs()
	if err != nil {
		return false
	}
	for _, dir := range bats {
		if h.detectVendor(dir) != domain.VendorOther {
			return true
		}
	}
	return false
}

// ThresholdStartStored reports whether the first battery's vendor path
// stores a start threshold at all. Asus firmware keeps only the stop
// value; unknown vendors store nothing.
func (h *HAL) ThresholdStartStored() bool {
	bats, err := h.batteryDirs()
	if err != nil || len(bats) == 0 {
		return false
	}
	switch h.detectVendor(bats[0]) {
	case domain.VendorAsus, domain.VendorOther:
		return false
	default:
		return true
	}
}

// CurrentBatteryThresholds probes the first battery's stored thresholds.
// Vendors that store only the stop value report start as 0.
func (h *HAL) CurrentBatteryThresholds() (domain.ChargeThresholds, error) {
	bats, err := h.batteryDirs()
	if err != nil || len(bats) == 0 {
		return domain.ChargeThresholds{}, fmt.Errorf("%w: no battery", domain.ErrUnsupported)
	}
	dir := bats[0]
	switch h.detectVendor(dir) {
	case domain.VendorHuawei:
		for _, p := range huaweiThresholdCandidates(h) {
			if !h.exists(p) {
				continue
			}
			s, err := readString(p)
			if err != nil {
				return domain.ChargeThresholds{}, err
			}
			var start, stop uint8
			if _, err := fmt.Sscanf(s, "%d %d", &start, &stop); err != nil {
				return domain.ChargeThresholds{}, fmt.Errorf("%w: parse %q from %s", domain.ErrIO, s, p)
			}
			return domain.ChargeThresholds{Start: start, Stop: stop}, nil
		}
		return domain.ChargeThresholds{}, fmt.Errorf("%w: huawei threshold file vanished", domain.ErrIO)
	case domain.VendorAsus:
		stop, err := readUint(filepath.Join(dir, "charge_control_end_threshold"))
		if err != nil {
			return domain.ChargeThresholds{}, err
		}
		return domain.ChargeThresholds{Start: 0, Stop: uint8(stop)}, nil
	case domain.VendorStandard, domain.VendorThinkPad:
		start, err := readUint(filepath.Join(dir, "charge_control_start_threshold"))
		if err != nil {
			return domain.ChargeThresholds{}, err
		}
		stop, err := readUint(filepath.Join(dir, "charge_control_end_threshold"))
		if err != nil {
			return domain.ChargeThresholds{}, err
		}
		return domain.ChargeThresholds{Start: uint8(start), Stop: uint8(stop)}, nil
	default:
		return domain.ChargeThresholds{}, fmt.Errorf("%w: battery charge control", domain.ErrUnsupported)
	}
}

// SetBatteryThresholds applies a start/stop pair to every battery,
// dispatching on the detected vendor quirk. The pair is atomic in intent:
// if the second write of a pair fails, the first is rolled back so no
// half-applied state persists.
func (h *HAL) SetBatteryThresholds(t domain.ChargeThresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	bats, err := h.batteryDirs()
	if err != nil {
		return err
	}
	if len(bats) == 0 {
		return fmt.Errorf("%w: no battery present", domain.ErrUnsupported)
	}

	var firstErr error
	applied := false
	for _, dir := range bats {
		var err error
		switch h.detectVendor(dir) {
		case domain.VendorStandard:
			err = h.writeThresholdPair(dir, t, false)
		case domain.VendorThinkPad:
			err = h.writeThresholdPair(dir, t, true)
		case domain.VendorAsus:
			log.Printf("[hal] battery %s stores only a stop threshold; start=%d ignored",
				filepath.Base(dir), t.Start)
			err = writeVerified(filepath.Join(dir, "charge_control_end_threshold"),
				strconv.Itoa(int(t.Stop)))
		case domain.VendorHuawei:
			err = h.writeHuaweiThresholds(t)
		default:
			err = fmt.Errorf("%w: battery %s offers no known charge control",
				domain.ErrUnsupported, filepath.Base(dir))
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied = true
	}
	if !applied {
		return firstErr
	}
	return nil
}

// writeThresholdPair writes start/stop to the standard endpoints.
// ThinkPad firmware rejects start >= current stop, so when that would
// happen the stop value goes first.
func (h *HAL) writeThresholdPair(dir string, t domain.ChargeThresholds, stopFirstOnConflict bool) error {
	startPath := filepath.Join(dir, "charge_control_start_threshold")
	stopPath := filepath.Join(dir, "charge_control_end_threshold")

	prevStart, errA := readUint(startPath)
	prevStop, errB := readUint(stopPath)
	if errA != nil || errB != nil {
		return fmt.Errorf("%w: threshold endpoints unreadable on %s", domain.ErrUnsupported, filepath.Base(dir))
	}

	stopFirst := stopFirstOnConflict && uint64(t.Start) >= prevStop

	first, second := startPath, stopPath
	firstVal, secondVal := int(t.Start), int(t.Stop)
	firstPrev := prevStart
	if stopFirst {
		first, second = stopPath, startPath
		firstVal, secondVal = int(t.Stop), int(t.Start)
		firstPrev = prevStop
	}

	if err := writeVerified(first, strconv.Itoa(firstVal)); err != nil {
		return err
	}
	if err := writeVerified(second, strconv.Itoa(secondVal)); err != nil {
		// Roll back so the pair never persists half-applied.
		if rbErr := writeString(first, strconv.FormatUint(firstPrev, 10)); rbErr != nil {
			log.Printf("[hal] rollback of %s failed: %v", first, rbErr)
		}
		return err
	}
	return nil
}

// writeHuaweiThresholds writes the combined "start stop\n" file.
func (h *HAL) writeHuaweiThresholds(t domain.ChargeThresholds) error {
	for _, p := range huaweiThresholdCandidates(h) {
		if !h.exists(p) {
			continue
		}
		return writeString(p, fmt.Sprintf("%d %d\n", t.Start, t.Stop))
	}
	return fmt.Errorf("%w: huawei charge control", domain.ErrUnsupported)
}

// batteryDirs lists the sysfs directories of all Battery-class supplies.
func (h *HAL) batteryDirs() ([]string, error) {
	supplies, err := h.ReadPowerSupplies(nil)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, ps := range supplies {
		if ps.IsBat {
			dirs = append(dirs, ps.Dir)
		}
	}
	return dirs, nil
}
