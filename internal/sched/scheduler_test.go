package sched

import (
	"testing"
	"time"

	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/telemetry"
)

func f(v float64) *float64 { return &v }

func testConfig() Config {
	return Config{BaseSec: 5, MinSec: 1, MaxSec: 30, Adaptive: true, ThrottleOnBattery: true}
}

// testClock gives the scheduler and snapshots a shared fake time.
type testClock struct{ t time.Time }

func newTestClock() *testClock { return &testClock{t: time.Unix(1700000000, 0)} }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(cfg Config, clk *testClock) *Scheduler {
	s := New(cfg)
	s.now = func() time.Time { return clk.t }
	s.lastActive = clk.t
	return s
}

func snapAt(clk *testClock, src domain.PowerSource, usage float64, rateW *float64) telemetry.Snapshot {
	snap := telemetry.Snapshot{
		Time:   clk.t,
		Source: src,
		CPU:    &domain.CPUSample{AvgUsage: usage, PerCPUUsage: []float64{usage}},
	}
	if rateW != nil {
		snap.Batteries = []domain.BatteryState{{Name: "BAT0", Present: true, RateW: rateW}}
	}
	return snap
}

func TestNext_AdaptiveOffReturnsBase(t *testing.T) {
	cfg := testConfig()
	cfg.Adaptive = false
	clk := newTestClock()
	s := newTestScheduler(cfg, clk)
	for i := 0; i < 5; i++ {
		if got := s.Next(snapAt(clk, domain.PowerBattery, 0.9, nil)); got != 5*time.Second {
			t.Fatalf("Next = %v, want fixed 5s", got)
		}
	}
}

func TestNext_AlwaysWithinBounds(t *testing.T) {
	clk := newTestClock()
	s := newTestScheduler(testConfig(), clk)
	usages := []float64{0, 0.01, 0.5, 1.0, 0.02, 0.9, 0, 0, 0, 0, 0, 0}
	for i, u := range usages {
		got := s.Next(snapAt(clk, domain.PowerBattery, u, f(-30)))
		if got < 1*time.Second || got > 30*time.Second {
			t.Fatalf("tick %d: Next = %v outside [1s, 30s]", i, got)
		}
		clk.advance(got)
	}
}

func TestNext_WholeSeconds(t *testing.T) {
	clk := newTestClock()
	s := newTestScheduler(testConfig(), clk)
	for i := 0; i < 10; i++ {
		got := s.Next(snapAt(clk, domain.PowerBattery, 0.3, nil))
		if got%time.Second != 0 {
			t.Fatalf("Next = %v, want whole seconds", got)
		}
		clk.advance(got)
	}
}

func TestNext_BatteryDoubles(t *testing.T) {
	clk := newTestClock()
	s := newTestScheduler(testConfig(), clk)
	// Busy machine: idleness 1.0, variance window not yet filled.
	got := s.Next(snapAt(clk, domain.PowerBattery, 0.5, nil))
	if got != 8*time.Second {
		// target 10s, smoothing caps the first move at 5+2.5 → 8 rounded
		t.Errorf("Next = %v, want 8s (smoothed toward 10s)", got)
	}
	clk.advance(got)
	got = s.Next(snapAt(clk, domain.PowerBattery, 0.5, nil))
	if got != 10*time.Second {
		t.Errorf("second Next = %v, want 10s", got)
	}
}

func TestNext_SmoothingLimitsStepToHalfPrev(t *testing.T) {
	clk := newTestClock()
	s := newTestScheduler(testConfig(), clk)
	// prev starts at base 5; a huge target cannot exceed 5+2.5 → rounds to 8.
	got := s.Next(snapAt(clk, domain.PowerBattery, 0.01, nil))
	if got > 8*time.Second {
		t.Errorf("first adaptive step = %v, want <= 8s (smoothing)", got)
	}
}

func TestNext_IdleBackoffConverges(t *testing.T) {
	clk := newTestClock()
	cfg := testConfig()
	s := newTestScheduler(cfg, clk)

	// On AC, fully idle for ~970s: ladder reaches ×5 → target 25s.
	var got time.Duration
	elapsed := time.Duration(0)
	for elapsed < 1100*time.Second {
		got = s.Next(snapAt(clk, domain.PowerAC, 0.01, nil))
		clk.advance(got)
		elapsed += got
	}
	if got != 25*time.Second {
		t.Errorf("converged interval = %v, want 25s (5s base × 5; calm bonus does not stack on the idle ladder)", got)
	}
}

func TestNext_ActivityResetsIdleness(t *testing.T) {
	clk := newTestClock()
	s := newTestScheduler(testConfig(), clk)

	// Idle long enough to back off.
	for i := 0; i < 40; i++ {
		clk.advance(s.Next(snapAt(clk, domain.PowerAC, 0.01, nil)))
	}
	// Burst of activity: intervals must come back down. Once the window
	// holds only the steady 90% load, the calm bonus applies: 5 × 1.25 →
	// 6.25 → rounds to 6.
	var got time.Duration
	for i := 0; i < 12; i++ {
		got = s.Next(snapAt(clk, domain.PowerAC, 0.9, nil))
		clk.advance(got)
	}
	if got != 6*time.Second {
		t.Errorf("after activity burst Next = %v, want 6s (base 5s with calm bonus)", got)
	}
}

func TestNext_HighVarianceCapsBackoff(t *testing.T) {
	clk := newTestClock()
	s := newTestScheduler(testConfig(), clk)

	// Alternate 0% and 60%: huge variance. Even while "idle" ticks pass,
	// σ > 10pp caps the multiplier at 1, so the interval stays at base.
	var got time.Duration
	for i := 0; i < 20; i++ {
		u := 0.0
		if i%2 == 0 {
			u = 0.6
		}
		got = s.Next(snapAt(clk, domain.PowerAC, u, nil))
		clk.advance(got)
	}
	if got > 5*time.Second {
		t.Errorf("Next = %v with jittery load, want capped at base 5s", got)
	}
}

func TestNext_FastDischargeShortensInterval(t *testing.T) {
	clk := newTestClock()
	cfg := testConfig()
	cfg.ThrottleOnBattery = false // isolate the discharge factor
	s := newTestScheduler(cfg, clk)

	// Busy enough to stay non-idle, with mild load jitter so neither the
	// variance cap nor the calm bonus fires; discharging at 20 W sustained.
	var got time.Duration
	for i := 0; i < 6; i++ {
		u := 0.45 + 0.1*float64(i%2)
		got = s.Next(snapAt(clk, domain.PowerBattery, u, f(-20)))
		clk.advance(got)
	}
	// base 5 × 0.75 = 3.75 → rounds to 4.
	if got != 4*time.Second {
		t.Errorf("Next = %v under fast discharge, want 4s", got)
	}
}

func TestNext_RateNoiseGuardIgnoresOneOffSpike(t *testing.T) {
	clk := newTestClock()
	cfg := testConfig()
	cfg.ThrottleOnBattery = false
	s := newTestScheduler(cfg, clk)

	// Steady 5 W discharge with mild load jitter: no discharge factor.
	usage := func(i int) float64 { return 0.45 + 0.1*float64(i%2) }
	for i := 0; i < 4; i++ {
		clk.advance(s.Next(snapAt(clk, domain.PowerBattery, usage(i), f(-5))))
	}
	// One-off 40 W spike (delta > 50% of prior): must be ignored.
	got := s.Next(snapAt(clk, domain.PowerBattery, usage(4), f(-40)))
	if got != 5*time.Second {
		t.Errorf("Next = %v after one-off spike, want 5s (spike ignored)", got)
	}
	clk.advance(got)
	// Sustained for a second tick: now accepted.
	got = s.Next(snapAt(clk, domain.PowerBattery, usage(5), f(-40)))
	if got != 4*time.Second {
		t.Errorf("Next = %v after sustained spike, want 4s", got)
	}
}
