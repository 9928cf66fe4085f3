// Package sched computes the daemon's next poll interval from telemetry
// history: power source, idleness, sample variance and battery discharge
// rate each contribute a multiplier over the configured base interval.
package sched

import (
	"math"
	"time"

	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/telemetry"
)

const (
	historyLen = 8 // samples considered for the variance gate

	activeUsageThreshold = 0.05 // above this the machine counts as active

	batteryFactor   = 2.0
	calmBonusFactor = 1.25
	dischargeFactor = 0.75

	highVariancePP = 10.0 // σ in percentage points that caps the multiplier
	lowVariancePP  = 2.0  // σ below which the calm bonus applies

	fastDischargeW = 15.0
)

// Config is the scheduler's slice of the daemon configuration.
type Config struct {
	BaseSec           uint
	MinSec            uint
	MaxSec            uint
	Adaptive          bool
	ThrottleOnBattery bool
}

// Scheduler owns the bounded telemetry history and the previous interval
// used for smoothing. Owned by the daemon loop, never shared.
type Scheduler struct {
	cfg Config

	usageHistory []float64 // avg usage, fraction in [0,1], newest last
	lastActive   time.Time
	prevInterval float64

	outlierStreak int
	acceptedRateW *float64

	now func() time.Time // test seam
}

// New creates a scheduler; the base interval seeds both smoothing and the
// idleness clock.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		cfg:          cfg,
		prevInterval: float64(cfg.BaseSec),
		now:          time.Now,
	}
	s.lastActive = s.now()
	return s
}

// SetConfig swaps the configuration without losing telemetry history.
// Used on SIGHUP reloads.
func (s *Scheduler) SetConfig(cfg Config) {
	s.cfg = cfg
	s.prevInterval = clampf(s.prevInterval, float64(cfg.MinSec), float64(cfg.MaxSec))
}

// Next consumes one snapshot and returns the sleep before the next tick.
// With adaptive polling off it always returns the configured base.
func (s *Scheduler) Next(snap telemetry.Snapshot) time.Duration {
	if !s.cfg.Adaptive {
		return time.Duration(s.cfg.BaseSec) * time.Second
	}

	s.observe(snap)

	mult := 1.0
	if snap.Source == domain.PowerBattery && s.cfg.ThrottleOnBattery {
		mult *= batteryFactor
	}
	idleness := s.idlenessFactor(snap.Time)
	mult *= idleness

	// Variance gate: jittery load caps back-off entirely. The calm bonus
	// rewards a steady-but-active machine only; it does not stack on top
	// of the idleness ladder, which already owns the deep back-off.
	if sigma, ok := s.usageSigmaPP(); ok {
		switch {
		case sigma > highVariancePP:
			if mult > 1.0 {
				mult = 1.0
			}
		case sigma < lowVariancePP && idleness == 1.0:
			mult *= calmBonusFactor
		}
	}

	if r := s.acceptedRateW; r != nil && *r < -fastDischargeW {
		mult *= dischargeFactor
	}

	target := clampf(float64(s.cfg.BaseSec)*mult, float64(s.cfg.MinSec), float64(s.cfg.MaxSec))

	// Smooth toward the target: one tick may move the interval by at most
	// half its current value, so a single anomalous sample cannot cause a
	// jump from e.g. 30s straight down to 5s.
	step := target - s.prevInterval
	maxStep := 0.5 * s.prevInterval
	if math.Abs(step) > maxStep {
		step = math.Copysign(maxStep, step)
	}
	eff := clampf(math.Round(s.prevInterval+step), float64(s.cfg.MinSec), float64(s.cfg.MaxSec))
	s.prevInterval = eff

	return time.Duration(eff) * time.Second
}

// observe records this tick's usage and battery rate into the history.
func (s *Scheduler) observe(snap telemetry.Snapshot) {
	if snap.CPU != nil {
		u := snap.CPU.AvgUsage
		s.usageHistory = append(s.usageHistory, u)
		if len(s.usageHistory) > historyLen {
			s.usageHistory = s.usageHistory[len(s.usageHistory)-historyLen:]
		}
		if u > activeUsageThreshold {
			s.lastActive = snap.Time
		}
	}
	s.observeRate(snap.BatteryRateW())
}

// observeRate applies the noise guard: a sample whose delta from the
// previously accepted rate exceeds 50% is ignored unless it repeats.
func (s *Scheduler) observeRate(rate *float64) {
	if rate == nil {
		s.acceptedRateW = nil
		s.outlierStreak = 0
		return
	}
	r := *rate
	if s.acceptedRateW == nil {
		s.acceptedRateW = &r
		s.outlierStreak = 0
		return
	}
	prev := *s.acceptedRateW
	if math.Abs(r-prev) > 0.5*math.Abs(prev) {
		s.outlierStreak++
		if s.outlierStreak < 2 {
			return // one-off spike: keep the previous accepted rate
		}
	}
	s.outlierStreak = 0
	s.acceptedRateW = &r
}

// idlenessFactor maps time since last activity onto the back-off ladder.
func (s *Scheduler) idlenessFactor(now time.Time) float64 {
	idle := now.Sub(s.lastActive)
	switch {
	case idle >= 960*time.Second:
		return 5.0
	case idle >= 480*time.Second:
		return 4.0
	case idle >= 240*time.Second:
		return 3.0
	case idle >= 120*time.Second:
		return 2.0
	case idle >= 60*time.Second:
		return 1.5
	default:
		return 1.0
	}
}

// usageSigmaPP returns the standard deviation of the recent usage history
// in percentage points. Needs at least half a window to be meaningful.
func (s *Scheduler) usageSigmaPP() (float64, bool) {
	if len(s.usageHistory) < historyLen/2 {
		return 0, false
	}
	var sum float64
	for _, u := range s.usageHistory {
		sum += u
	}
	mean := sum / float64(len(s.usageHistory))
	var sq float64
	for _, u := range s.usageHistory {
		d := u - mean
		sq += d * d
	}
	sigma := math.Sqrt(sq/float64(len(s.usageHistory))) * 100
	return sigma, true
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
