// Package engine is the policy engine: each tick it resolves the active
// profile for the current power source, diffs desired state against what
// the hardware reports, and issues the remaining writes through the HAL
// in a fixed dependency order.
package engine

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/hal"
	"github.com/watt-tools/watt/internal/telemetry"
	"github.com/watt-tools/watt/internal/turbo"
)

// Outcome classifies one operation's result within a tick.
type Outcome int

const (
	Applied Outcome = iota
	Skipped
	Unsupported
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Unsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

// OpResult records one operation's identity and outcome. CPU is -1 for
// system-wide operations.
type OpResult struct {
	Op      string
	CPU     int
	Target  string
	Outcome Outcome
	Err     error
}

// Engine owns the per-power-source auto-turbo controllers and the
// "system default emitted" latches. It never aborts a tick on a single
// operation failure.
type Engine struct {
	hw *hal.HAL

	autoAC  *turbo.Controller
	autoBat *turbo.Controller

	// defaultEmitted latches, per power source, that the one-shot
	// SystemDefault write for turbo=auto with managed turbo disabled
	// has already been issued.
	defaultEmitted map[domain.PowerSource]bool

	verbose bool
}

// New creates a policy engine over hw.
func New(hw *hal.HAL, verbose bool) *Engine {
	return &Engine{
		hw:             hw,
		autoAC:         turbo.New(),
		autoBat:        turbo.New(),
		defaultEmitted: make(map[domain.PowerSource]bool),
		verbose:        verbose,
	}
}

// ResetAutoTurbo drops hysteresis state on both controllers. Called when
// a SIGHUP reload changes the configuration.
func (e *Engine) ResetAutoTurbo() {
	e.autoAC.Reset()
	e.autoBat.Reset()
	e.defaultEmitted = make(map[domain.PowerSource]bool)
}

// TurboEmitting reports the active controller's last output for the
// given power source, for stats and /status.
func (e *Engine) TurboEmitting(src domain.PowerSource) bool {
	return e.controllerFor(src).Emitting()
}

func (e *Engine) controllerFor(src domain.PowerSource) *turbo.Controller {
	if src == domain.PowerBattery {
		return e.autoBat
	}
	return e.autoAC
}

// Apply runs one tick of policy: governor, frequency limits, EPP, EPB,
// platform profile, turbo, battery thresholds — strictly in that order.
// overrideGovernor, when non-empty, replaces the profile governor.
// It returns every operation's outcome and logs a one-line summary.
func (e *Engine) Apply(snap telemetry.Snapshot, prof domain.Profile, overrideGovernor string) []OpResult {
	var results []OpResult
	add := func(r OpResult) {
		results = append(results, r)
		if r.Outcome == Unsupported {
			log.Printf("[engine] %s: %s not supported (target %q)", cpuLabel(r), r.Op, r.Target)
		} else if r.Outcome == Failed {
			log.Printf("[engine] %s: %s failed (target %q): %v", cpuLabel(r), r.Op, r.Target, r.Err)
		} else if e.verbose {
			log.Printf("[engine] %s: %s %s (target %q)", cpuLabel(r), r.Op, r.Outcome, r.Target)
		}
	}

	governor := prof.Governor
	if overrideGovernor != "" {
		governor = &overrideGovernor
	}
	if governor != nil {
		for _, r := range e.applyGovernor(*governor) {
			add(r)
		}
	}
	if prof.MinFreqMHz != nil || prof.MaxFreqMHz != nil {
		for _, r := range e.applyFreqLimits(prof.MinFreqMHz, prof.MaxFreqMHz) {
			add(r)
		}
	}
	if prof.EPP != nil {
		for _, r := range e.applyEPP(*prof.EPP) {
			add(r)
		}
	}
	if prof.EPB != nil {
		for _, r := range e.applyEPB(*prof.EPB) {
			add(r)
		}
	}
	if prof.PlatformProfile != nil {
		add(e.applyPlatformProfile(*prof.PlatformProfile))
	}
	if prof.Turbo != nil {
		if r := e.applyTurbo(snap, prof); r != nil {
			add(*r)
		}
	}
	if prof.Thresholds != nil {
		add(e.applyThresholds(*prof.Thresholds))
	}

	e.logSummary(results)
	return results
}

func cpuLabel(r OpResult) string {
	if r.CPU < 0 {
		return "system"
	}
	return fmt.Sprintf("cpu%d", r.CPU)
}

// normEq compares two sysfs value strings after trimming and case folding.
func normEq(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (e *Engine) applyGovernor(name string) []OpResult {
	var out []OpResult
	for _, c := range e.hw.Topology().CPUs {
		r := OpResult{Op: "governor", CPU: c.ID, Target: name}
		cur, err := e.hw.CurrentGovernor(c.ID)
		if err == nil && normEq(cur, name) {
			r.Outcome = Skipped
			out = append(out, r)
			continue
		}
		r.Outcome, r.Err = classify(e.hw.SetGovernor(c.ID, name))
		out = append(out, r)
	}
	return out
}

func (e *Engine) applyFreqLimits(minMHz, maxMHz *uint) []OpResult {
	var out []OpResult
	for _, c := range e.hw.Topology().CPUs {
		var wantMin, wantMax uint64
		if minMHz != nil {
			wantMin = c.ClampFreqKHz(uint64(*minMHz) * 1000)
		}
		if maxMHz != nil {
			wantMax = c.ClampFreqKHz(uint64(*maxMHz) * 1000)
		}
		target := freqTarget(wantMin, wantMax)
		r := OpResult{Op: "freq_limits", CPU: c.ID, Target: target}

		curMin, curMax, err := e.hw.CurrentFreqLimitsKHz(c.ID)
		if err == nil &&
			(wantMin == 0 || curMin == wantMin) &&
			(wantMax == 0 || curMax == wantMax) {
			r.Outcome = Skipped
			out = append(out, r)
			continue
		}
		r.Outcome, r.Err = classify(e.hw.SetFreqLimitsKHz(c.ID, wantMin, wantMax))
		out = append(out, r)
	}
	return out
}

func freqTarget(minKHz, maxKHz uint64) string {
	parts := make([]string, 0, 2)
	if minKHz > 0 {
		parts = append(parts, "min="+strconv.FormatUint(minKHz, 10)+"kHz")
	}
	if maxKHz > 0 {
		parts = append(parts, "max="+strconv.FormatUint(maxKHz, 10)+"kHz")
	}
	return strings.Join(parts, ",")
}

func (e *Engine) applyEPP(name string) []OpResult {
	var out []OpResult
	for _, c := range e.hw.Topology().CPUs {
		r := OpResult{Op: "epp", CPU: c.ID, Target: name}
		cur, err := e.hw.CurrentEPP(c.ID)
		if err == nil && normEq(cur, name) {
			r.Outcome = Skipped
			out = append(out, r)
			continue
		}
		r.Outcome, r.Err = classify(e.hw.SetEPP(c.ID, name))
		out = append(out, r)
	}
	return out
}

func (e *Engine) applyEPB(raw string) []OpResult {
	value, err := hal.ParseEPB(raw)
	if err != nil {
		return []OpResult{{Op: "epb", CPU: -1, Target: raw, Outcome: Failed, Err: err}}
	}
	var out []OpResult
	for _, c := range e.hw.Topology().CPUs {
		r := OpResult{Op: "epb", CPU: c.ID, Target: strconv.Itoa(value)}
		cur, err := e.hw.CurrentEPB(c.ID)
		if err == nil && cur == value {
			r.Outcome = Skipped
			out = append(out, r)
			continue
		}
		r.Outcome, r.Err = classify(e.hw.SetEPB(c.ID, value))
		out = append(out, r)
	}
	return out
}

func (e *Engine) applyPlatformProfile(name string) OpResult {
	r := OpResult{Op: "platform_profile", CPU: -1, Target: name}
	cur, err := e.hw.CurrentPlatformProfile()
	if err == nil && normEq(cur, name) {
		r.Outcome = Skipped
		return r
	}
	r.Outcome, r.Err = classify(e.hw.SetPlatformProfile(name))
	return r
}

// applyTurbo resolves the desired turbo state from the profile and the
// auto controller, then writes only on change. Returns nil when auto
// management already emitted SystemDefault for this mode (nothing to do).
func (e *Engine) applyTurbo(snap telemetry.Snapshot, prof domain.Profile) *OpResult {
	var desired domain.TurboState
	switch *prof.Turbo {
	case domain.TurboAlways:
		delete(e.defaultEmitted, snap.Source)
		desired = domain.TurboOn
	case domain.TurboNever:
		delete(e.defaultEmitted, snap.Source)
		desired = domain.TurboOff
	case domain.TurboAuto:
		if prof.EnableAutoTurbo {
			delete(e.defaultEmitted, snap.Source)
			var loadPct, tempC *float64
			if snap.CPU != nil {
				pct := snap.CPU.AvgUsage * 100
				loadPct = &pct
				tempC = snap.CPU.MaxTempC
			}
			desired = e.controllerFor(snap.Source).Step(prof.TurboAuto, loadPct, tempC)
		} else {
			// Managed auto-turbo is off: clear any prior override once
			// so the driver's own automatic behavior takes over.
			if e.defaultEmitted[snap.Source] {
				return nil
			}
			e.defaultEmitted[snap.Source] = true
			desired = domain.TurboSystemDefault
		}
	}

	r := OpResult{Op: "turbo", CPU: -1, Target: desired.String()}
	cur, err := e.hw.CurrentTurbo()
	if err == nil {
		// SystemDefault clears the override, which at the file level is
		// the same write as On; skip it when turbo already runs free.
		effective := desired
		if effective == domain.TurboSystemDefault {
			effective = domain.TurboOn
		}
		if cur == effective {
			r.Outcome = Skipped
			return &r
		}
	}
	r.Outcome, r.Err = classify(e.hw.SetTurbo(desired))
	return &r
}

func (e *Engine) applyThresholds(t domain.ChargeThresholds) OpResult {
	r := OpResult{Op: "battery_thresholds", CPU: -1, Target: fmt.Sprintf("%d-%d", t.Start, t.Stop)}
	cur, err := e.hw.CurrentBatteryThresholds()
	// Vendors that store only the stop value diff on stop alone.
	if err == nil && cur.Stop == t.Stop &&
		(cur.Start == t.Start || !e.hw.ThresholdStartStored()) {
		r.Outcome = Skipped
		return r
	}
	r.Outcome, r.Err = classify(e.hw.SetBatteryThresholds(t))
	return r
}

// classify maps a HAL error onto an operation outcome.
func classify(err error) (Outcome, error) {
	switch {
	case err == nil:
		return Applied, nil
	case errors.Is(err, domain.ErrUnsupported):
		return Unsupported, err
	default:
		return Failed, err
	}
}

func (e *Engine) logSummary(results []OpResult) {
	var counts [4]int
	for _, r := range results {
		counts[r.Outcome]++
	}
	log.Printf("[engine] tick: %d ops (applied=%d skipped=%d unsupported=%d failed=%d)",
		len(results), counts[Applied], counts[Skipped], counts[Unsupported], counts[Failed])
}
