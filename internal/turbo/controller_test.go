package turbo

import (
	"testing"

	"github.com/watt-tools/watt/internal/domain"
)

func f(v float64) *float64 { return &v }

func defaults() domain.TurboAutoSettings {
	return domain.TurboAutoSettings{
		LoadHighPct: 70,
		LoadLowPct:  30,
		TempHighC:   75,
		InitialOn:   false,
	}
}

func TestStep_InitialStateFromSettings(t *testing.T) {
	c := New()
	s := defaults()
	s.InitialOn = true
	// Intermediate load on the very first tick: hold the initial state.
	if got := c.Step(s, f(50), f(60)); got != domain.TurboOn {
		t.Errorf("first step = %v, want On (initial on, intermediate load)", got)
	}

	c2 := New()
	if got := c2.Step(defaults(), f(50), f(60)); got != domain.TurboOff {
		t.Errorf("first step = %v, want Off (initial off)", got)
	}
}

func TestStep_HighLoadEnables(t *testing.T) {
	c := New()
	if got := c.Step(defaults(), f(80), f(60)); got != domain.TurboOn {
		t.Errorf("Step(80%%, 60°C) = %v, want On", got)
	}
}

func TestStep_LowLoadDisables(t *testing.T) {
	c := New()
	c.Step(defaults(), f(80), f(60)) // On
	if got := c.Step(defaults(), f(20), f(60)); got != domain.TurboOff {
		t.Errorf("Step(20%%) = %v, want Off", got)
	}
}

func TestStep_HighTempAlwaysDisables(t *testing.T) {
	c := New()
	c.Step(defaults(), f(80), f(60)) // On
	if got := c.Step(defaults(), f(95), f(80)); got != domain.TurboOff {
		t.Errorf("Step(95%%, 80°C) = %v, want Off despite high load", got)
	}
	if c.CurrentState() != StateOff {
		t.Errorf("state = %v, want off", c.CurrentState())
	}
}

func TestStep_IntermediateBandHolds(t *testing.T) {
	// From On, intermediate load keeps emitting On.
	c := New()
	c.Step(defaults(), f(80), f(60))
	if got := c.Step(defaults(), f(50), f(60)); got != domain.TurboOn {
		t.Errorf("hold from On = %v, want On", got)
	}
	if c.CurrentState() != StateHold {
		t.Errorf("state = %v, want hold", c.CurrentState())
	}

	// From Off, intermediate load keeps emitting Off.
	c2 := New()
	c2.Step(defaults(), f(20), f(60))
	if got := c2.Step(defaults(), f(50), f(60)); got != domain.TurboOff {
		t.Errorf("hold from Off = %v, want Off", got)
	}
}

// No flap: any input strictly inside the band repeats the previous emit.
func TestStep_NoFlapProperty(t *testing.T) {
	for _, seed := range []float64{20, 80} { // start Off and On
		c := New()
		c.Step(defaults(), f(seed), f(60))
		prev := c.Emitting()
		for load := 31.0; load < 70.0; load += 1.7 {
			c.Step(defaults(), f(load), f(60))
			if c.Emitting() != prev {
				t.Fatalf("flap at load %.1f after seed %.0f", load, seed)
			}
		}
	}
}

func TestStep_MissingTempDropsThermalConstraint(t *testing.T) {
	c := New()
	if got := c.Step(defaults(), f(90), nil); got != domain.TurboOn {
		t.Errorf("Step(90%%, no temp) = %v, want On", got)
	}
}

func TestStep_MissingLoadHoldsOutput(t *testing.T) {
	c := New()
	c.Step(defaults(), f(80), f(60)) // On
	if got := c.Step(defaults(), nil, nil); got != domain.TurboOn {
		t.Errorf("Step(no data) = %v, want previous On", got)
	}
}

// Thermal cap scenario: (80,70)→On, (80,76)→Off, (40,70)→Off, (20,70)→Off.
func TestStep_ThermalCapSequence(t *testing.T) {
	c := New()
	s := defaults()
	steps := []struct {
		load, temp float64
		want       domain.TurboState
	}{
		{80, 70, domain.TurboOn},
		{80, 76, domain.TurboOff},
		{40, 70, domain.TurboOff}, // intermediate band holds the Off
		{20, 70, domain.TurboOff},
	}
	for i, st := range steps {
		if got := c.Step(s, f(st.load), f(st.temp)); got != st.want {
			t.Fatalf("step %d (%.0f%%, %.0f°C) = %v, want %v", i, st.load, st.temp, got, st.want)
		}
	}
}

func TestReset_Reseeds(t *testing.T) {
	c := New()
	c.Step(defaults(), f(80), f(60)) // On
	c.Reset()
	s := defaults() // initial off
	if got := c.Step(s, f(50), f(60)); got != domain.TurboOff {
		t.Errorf("after reset = %v, want Off from initial state", got)
	}
}

func TestValidate(t *testing.T) {
	bad := []domain.TurboAutoSettings{
		{LoadHighPct: 30, LoadLowPct: 70, TempHighC: 75},
		{LoadHighPct: 120, LoadLowPct: 30, TempHighC: 75},
		{LoadHighPct: 70, LoadLowPct: -5, TempHighC: 75},
		{LoadHighPct: 70, LoadLowPct: 30, TempHighC: 0},
		{LoadHighPct: 70, LoadLowPct: 30, TempHighC: 150},
	}
	for i, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: Validate() accepted %+v", i, s)
		}
	}
	if err := defaults().Validate(); err != nil {
		t.Errorf("defaults rejected: %v", err)
	}
}
