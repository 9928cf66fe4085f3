// Package metrics provides Prometheus metrics for the Watt daemon:
// gauges for the last tick's telemetry and a counter for policy writes.
// All values are set once per tick by the daemon loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CPUUsageAvg tracks average CPU utilization across all cores (0-1).
var CPUUsageAvg = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "cpu_usage_avg",
	Help:      "Average CPU utilization across all cores, 0 to 1.",
})

// CPUTempMax tracks the hottest sensor reading in Celsius.
var CPUTempMax = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "cpu_temp_max_celsius",
	Help:      "Maximum core temperature in degrees Celsius.",
})

// BatteryPercent tracks the first battery's charge percentage.
var BatteryPercent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "battery_percent",
	Help:      "Battery charge percentage.",
})

// BatteryRateW tracks the smoothed battery power rate in watts
// (negative while discharging).
var BatteryRateW = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "battery_rate_watts",
	Help:      "EMA-smoothed battery power rate in watts, negative when discharging.",
})

// OnBattery is 1 when the machine runs on battery, 0 on AC.
var OnBattery = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "on_battery",
	Help:      "1 when discharging from battery, 0 on AC power.",
})

// TurboEnabled is 1 while policy keeps turbo boost enabled.
var TurboEnabled = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "turbo_enabled",
	Help:      "1 when turbo boost is enabled by policy.",
})

// PollInterval tracks the scheduler's current interval in seconds.
var PollInterval = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "watt",
	Name:      "poll_interval_seconds",
	Help:      "Current adaptive poll interval in seconds.",
})

// PolicyWrites counts policy engine operations by outcome.
var PolicyWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "watt",
	Name:      "policy_writes_total",
	Help:      "Policy engine operations by outcome.",
}, []string{"outcome"})
