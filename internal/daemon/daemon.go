package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/watt-tools/watt/internal/api"
	"github.com/watt-tools/watt/internal/conflict"
	"github.com/watt-tools/watt/internal/domain"
	"github.com/watt-tools/watt/internal/engine"
	"github.com/watt-tools/watt/internal/hal"
	"github.com/watt-tools/watt/internal/infra/journal"
	"github.com/watt-tools/watt/internal/infra/metrics"
	"github.com/watt-tools/watt/internal/sched"
	"github.com/watt-tools/watt/internal/telemetry"
)

// Daemon binds sampler, auto-turbo, policy engine and scheduler into a
// single-threaded supervised cycle. All mutable state is owned by Run;
// the only concurrent reader is the optional HTTP server, which sees an
// atomically swapped status snapshot.
type Daemon struct {
	Config  Config
	RunID   string
	Version string

	// ForceMode pins profile selection regardless of the observed power
	// source; nil follows AC/battery state.
	ForceMode *domain.PowerSource

	hw       *hal.HAL
	sampler  *telemetry.Sampler
	policy   *engine.Engine
	schedule *sched.Scheduler
	detector *conflict.Detector
	server   *api.Server
	journal  *journal.DB
	stats    *statsWriter

	tick uint64
}

// New discovers hardware and wires all components from cfg.
func New(cfg Config, version string) (*Daemon, error) {
	hw, err := hal.New("/")
	if err != nil {
		return nil, fmt.Errorf("hardware discovery: %w", err)
	}
	return newWithHAL(cfg, version, hw)
}

func newWithHAL(cfg Config, version string, hw *hal.HAL) (*Daemon, error) {
	d := &Daemon{
		Config:   cfg,
		RunID:    uuid.NewString(),
		Version:  version,
		hw:       hw,
		sampler:  telemetry.New(hw, cfg.IgnoreNames()),
		policy:   engine.New(hw, cfg.Daemon.Verbose),
		schedule: sched.New(schedConfig(cfg)),
		detector: conflict.New(),
		server:   api.NewServer(),
	}

	if path := cfg.Daemon.StatsFilePath; path != "" {
		w, err := newStatsWriter(path)
		if err != nil {
			return nil, fmt.Errorf("stats file: %w", err)
		}
		d.stats = w
	}
	if path := cfg.Daemon.JournalPath; path != "" {
		j, err := journal.Open(path)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		d.journal = j
	}
	return d, nil
}

func schedConfig(cfg Config) sched.Config {
	return sched.Config{
		BaseSec:           cfg.Daemon.PollIntervalSec,
		MinSec:            cfg.Daemon.MinPollIntervalSec,
		MaxSec:            cfg.Daemon.MaxPollIntervalSec,
		Adaptive:          cfg.Daemon.AdaptiveInterval,
		ThrottleOnBattery: cfg.Daemon.ThrottleOnBattery,
	}
}

// Close releases the journal. The stats writer opens its file per record
// and holds nothing open between ticks.
func (d *Daemon) Close() {
	if d.journal != nil {
		d.journal.Close()
	}
}

// Run executes the daemon loop until a termination signal arrives.
// SIGHUP reloads configuration and re-runs the conflict scan without
// losing telemetry history.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log.Printf("[daemon] watt %s starting (run %s), %d cpus",
		d.Version, d.RunID, d.hw.Topology().LogicalCount())
	conflict.Warn(d.detector.Scan())

	if addr := d.Config.Daemon.ListenAddr; addr != "" {
		go func() {
			if err := d.server.Serve(ctx, addr); err != nil {
				log.Printf("[daemon] http server: %v", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[daemon] shutting down")
			return nil
		case <-hup:
			d.reload()
		default:
		}

		interval := d.runTick()

		select {
		case <-ctx.Done():
			log.Printf("[daemon] shutting down")
			return nil
		case <-hup:
			d.reload()
		case <-time.After(interval):
		}
	}
}

// runTick performs one sample → decide → apply → schedule cycle and
// returns the sleep before the next one.
func (d *Daemon) runTick() time.Duration {
	d.tick++

	snap, err := d.sampler.Sample()
	if err != nil {
		log.Printf("[daemon] telemetry: %v", err)
		return time.Duration(d.Config.Daemon.PollIntervalSec) * time.Second
	}

	// Hotplug: when /proc/stat disagrees with the discovered topology,
	// re-read the affected cpufreq entries before applying policy.
	if snap.CPU != nil && len(snap.CPU.PerCPUUsage) != d.hw.Topology().LogicalCount() {
		log.Printf("[daemon] cpu count changed (%d -> %d), re-reading topology",
			d.hw.Topology().LogicalCount(), len(snap.CPU.PerCPUUsage))
		if err := d.hw.RefreshTopology(); err != nil {
			log.Printf("[daemon] topology refresh: %v", err)
		}
	}

	src := snap.Source
	if d.ForceMode != nil {
		src = *d.ForceMode
		snap.Source = src
	}
	prof := d.Config.ProfileFor(src)

	results := d.policy.Apply(snap, prof, ReadGovernorOverride())

	interval := d.schedule.Next(snap)
	d.publish(snap, results, interval)
	return interval
}

// reload re-reads configuration and re-runs the conflict scan. Telemetry
// history (jiffy baseline, EMA, scheduler window) is preserved.
func (d *Daemon) reload() {
	log.Printf("[daemon] SIGHUP: reloading configuration")
	cfg, err := LoadConfig()
	if err != nil {
		log.Printf("[daemon] reload failed, keeping previous config: %v", err)
	} else {
		d.Config = cfg
		d.schedule.SetConfig(schedConfig(cfg))
		d.policy.ResetAutoTurbo()
	}
	conflict.Warn(d.detector.Scan())
}

// publish fans the tick out to metrics, stats file, journal and /status.
func (d *Daemon) publish(snap telemetry.Snapshot, results []engine.OpResult, interval time.Duration) {
	turboOn := d.policy.TurboEmitting(snap.Source)
	intervalSec := uint(interval / time.Second)

	metrics.PollInterval.Set(interval.Seconds())
	if snap.Source == domain.PowerBattery {
		metrics.OnBattery.Set(1)
	} else {
		metrics.OnBattery.Set(0)
	}
	if turboOn {
		metrics.TurboEnabled.Set(1)
	} else {
		metrics.TurboEnabled.Set(0)
	}

	st := api.Status{
		RunID:           d.RunID,
		Version:         d.Version,
		Time:            snap.Time,
		Tick:            d.tick,
		PowerSource:     snap.Source.String(),
		TurboEnabled:    turboOn,
		PollIntervalSec: intervalSec,
	}
	if snap.CPU != nil {
		metrics.CPUUsageAvg.Set(snap.CPU.AvgUsage)
		u := snap.CPU.AvgUsage
		st.AvgUsage = &u
		if snap.CPU.MaxTempC != nil {
			metrics.CPUTempMax.Set(*snap.CPU.MaxTempC)
			st.MaxTempC = snap.CPU.MaxTempC
		}
	}
	if pct := snap.BatteryPct(); pct != nil {
		metrics.BatteryPercent.Set(*pct)
		st.BatteryPct = pct
	}
	if rate := snap.BatteryRateW(); rate != nil {
		metrics.BatteryRateW.Set(*rate)
		st.BatteryRateW = rate
	}
	for _, r := range results {
		metrics.PolicyWrites.WithLabelValues(r.Outcome.String()).Inc()
	}
	d.server.SetStatus(st)

	turboState := "off"
	if turboOn {
		turboState = "on"
	}
	if d.stats != nil {
		if err := d.stats.Append(snap, turboState, intervalSec); err != nil {
			log.Printf("[daemon] stats file: %v", err)
		}
	}
	if d.journal != nil {
		rec := journal.Record{
			Time:        snap.Time,
			RunID:       d.RunID,
			PowerSource: snap.Source.String(),
			AvgUsage:    st.AvgUsage,
			MaxTempC:    st.MaxTempC,
			BatteryPct:  st.BatteryPct,
			BatteryRate: st.BatteryRateW,
			TurboState:  turboState,
			IntervalSec: intervalSec,
		}
		if err := d.journal.Append(rec); err != nil {
			log.Printf("[daemon] journal: %v", err)
		}
		d.maybeTrimJournal(snap.Time)
	}
}

// maybeTrimJournal enforces retention roughly once per thousand ticks.
func (d *Daemon) maybeTrimJournal(now time.Time) {
	if d.tick%1000 != 1 {
		return
	}
	retention := time.Duration(d.Config.Daemon.JournalRetentionDays) * 24 * time.Hour
	if retention == 0 {
		return
	}
	if n, err := d.journal.Trim(retention, now); err != nil {
		log.Printf("[daemon] journal trim: %v", err)
	} else if n > 0 {
		log.Printf("[daemon] journal: trimmed %d old records", n)
	}
}
