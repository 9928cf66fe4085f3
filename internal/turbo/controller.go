// Package turbo implements the auto-turbo hysteresis controller: a small
// state machine that drives turbo boost on and off from CPU load and
// temperature without flapping in the intermediate band.
package turbo

import (
	"github.com/watt-tools/watt/internal/domain"
)

// State is the controller's internal three-state machine. Hold keeps the
// last emitted output while load sits between the two thresholds.
type State int

const (
	StateOff State = iota
	StateOn
	StateHold
)

func (s State) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateHold:
		return "hold"
	default:
		return "off"
	}
}

// Controller holds hysteresis state for one power source. The daemon
// keeps one per source so an AC/battery flip re-enters each side where
// it left off. Step is deterministic over (state, inputs); all mutation
// is local to the struct.
type Controller struct {
	state       State
	emit        bool // last projected output
	initialized bool
}

// New returns an uninitialized controller; the first Step seeds it from
// the profile's configured initial state.
func New() *Controller { return &Controller{} }

// Reset drops the state so the next Step re-seeds from the thresholds.
// Used when the active profile changes under SIGHUP.
func (c *Controller) Reset() { *c = Controller{} }

// CurrentState returns the current machine state.
func (c *Controller) CurrentState() State { return c.state }

// Emitting reports the last projected output (true = turbo on).
func (c *Controller) Emitting() bool { return c.emit }

// Step advances the machine with one tick's observations and returns the
// turbo state to apply. avgUsagePct and tempC are nil when the sampler
// had no data: a missing temperature removes the thermal constraint, and
// missing load holds the previous output.
func (c *Controller) Step(t domain.TurboAutoSettings, avgUsagePct, tempC *float64) domain.TurboState {
	if !c.initialized {
		c.initialized = true
		c.emit = t.InitialOn
		if t.InitialOn {
			c.state = StateOn
		} else {
			c.state = StateOff
		}
	}

	tooHot := tempC != nil && *tempC >= t.TempHighC

	switch {
	case tooHot:
		c.state = StateOff
		c.emit = false
	case avgUsagePct == nil:
		// No load data: keep prior output, no transition.
	case *avgUsagePct >= t.LoadHighPct:
		c.state = StateOn
		c.emit = true
	case *avgUsagePct <= t.LoadLowPct:
		c.state = StateOff
		c.emit = false
	default:
		// Intermediate band: hold whatever we emitted last.
		c.state = StateHold
	}

	if c.emit {
		return domain.TurboOn
	}
	return domain.TurboOff
}
