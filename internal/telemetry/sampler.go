// Package telemetry periodically gathers CPU utilization deltas, thermal
// readings, battery state and AC presence into one per-tick snapshot.
package telemetry

import (
	"time"

	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/hal"
)

// rateAlpha is the EMA smoothing factor for the battery discharge rate.
const rateAlpha = 0.3

// Snapshot is everything one tick observed. CPU is nil on the first tick,
// before a jiffy delta exists.
type Snapshot struct {
	Time      time.Time
	CPU       *domain.CPUSample
	Batteries []domain.BatteryState
	Source    domain.PowerSource
}

// BatteryPct returns the first battery's charge, nil when none report it.
func (s Snapshot) BatteryPct() *float64 {
	for _, b := range s.Batteries {
		if b.ChargePct != nil {
			return b.ChargePct
		}
	}
	return nil
}

// BatteryRateW returns the first battery's smoothed rate in watts.
func (s Snapshot) BatteryRateW() *float64 {
	for _, b := range s.Batteries {
		if b.RateW != nil {
			return b.RateW
		}
	}
	return nil
}

// Sampler holds the cross-tick state: the previous jiffy snapshot and the
// per-battery EMA of the power rate. It is owned by the daemon loop and
// never accessed concurrently.
type Sampler struct {
	hw     *hal.HAL
	ignore map[string]struct{}

	prevJiffies map[int]domain.JiffyCounts
	emaRateW    map[string]float64

	now func() time.Time // test seam
}

// New creates a sampler over hw, ignoring the named power supplies.
func New(hw *hal.HAL, ignore []string) *Sampler {
	ig := make(map[string]struct{}, len(ignore))
	for _, n := range ignore {
		ig[n] = struct{}{}
	}
	return &Sampler{
		hw:       hw,
		ignore:   ig,
		emaRateW: make(map[string]float64),
		now:      time.Now,
	}
}

// Sample reads all telemetry sources once. On the first call it records
// the jiffy baseline and returns a snapshot without CPU utilization.
func (s *Sampler) Sample() (Snapshot, error) {
	snap := Snapshot{Time: s.now()}

	jiffies, err := s.hw.ReadCPUJiffies()
	if err != nil {
		return snap, err
	}
	if s.prevJiffies != nil {
		snap.CPU = s.usageDelta(s.prevJiffies, jiffies)
	}
	s.prevJiffies = jiffies

	if snap.CPU != nil {
		if t, ok := s.hw.MaxTemperatureC(); ok {
			snap.CPU.MaxTempC = &t
		}
	}

	snap.Source, err = s.hw.PowerSource(s.ignore)
	if err != nil {
		return snap, err
	}

	bats, err := s.hw.ReadBatteries(s.ignore)
	if err == nil {
		for i := range bats {
			s.smoothRate(&bats[i])
		}
		snap.Batteries = bats
	}
	return snap, nil
}

// usageDelta turns two jiffy snapshots into per-CPU usage fractions.
// CPUs present in only one snapshot (hotplug between ticks) are skipped.
func (s *Sampler) usageDelta(prev, cur map[int]domain.JiffyCounts) *domain.CPUSample {
	sample := &domain.CPUSample{}
	var sum float64
	maxID := -1
	for id := range cur {
		if id > maxID {
			maxID = id
		}
	}
	usage := make([]float64, 0, len(cur))
	for id := 0; id <= maxID; id++ {
		c, okC := cur[id]
		p, okP := prev[id]
		if !okC || !okP {
			continue
		}
		dTotal := c.Total() - p.Total()
		if dTotal == 0 || c.Total() < p.Total() {
			usage = append(usage, 0)
			continue
		}
		dIdle := c.IdleTotal() - p.IdleTotal()
		u := 1 - float64(dIdle)/float64(dTotal)
		if u < 0 {
			u = 0
		}
		if u > 1 {
			u = 1
		}
		usage = append(usage, u)
		sum += u
	}
	if len(usage) == 0 {
		return nil
	}
	sample.PerCPUUsage = usage
	sample.AvgUsage = sum / float64(len(usage))
	return sample
}

// smoothRate folds a battery's instantaneous rate into its EMA.
// Convention: negative means discharging (the HAL already signs it).
func (s *Sampler) smoothRate(b *domain.BatteryState) {
	if b.RateW == nil {
		delete(s.emaRateW, b.Name)
		return
	}
	raw := *b.RateW
	prev, ok := s.emaRateW[b.Name]
	if !ok {
		s.emaRateW[b.Name] = raw
		return
	}
	ema := rateAlpha*raw + (1-rateAlpha)*prev
	s.emaRateW[b.Name] = ema
	b.RateW = &ema
}
