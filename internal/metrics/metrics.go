package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle stages reported through IncCycleError.
const (
	StageList   = "list"
	StageSample = "sample"
	StageSave   = "save"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	appLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playtrack",
			Subsystem: "app",
			Name:      "launches_total",
			Help:      "Number of launches detected under a launcher process.",
		}, []string{"app"},
	)
	appPlaytime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "playtrack",
			Subsystem: "app",
			Name:      "playtime_seconds",
			Help:      "Accumulated playtime credit per application.",
		}, []string{"app"},
	)
	appCPU = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "playtrack",
			Subsystem: "app",
			Name:      "cpu_percent",
			Help:      "Last sampled CPU percent per application.",
		}, []string{"app"},
	)
	appMemory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "playtrack",
			Subsystem: "app",
			Name:      "memory_percent",
			Help:      "Last sampled memory percent per application.",
		}, []string{"app"},
	)
	runningApps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "playtrack",
			Subsystem: "tracker",
			Name:      "running_apps",
			Help:      "Number of applications in the running set.",
		},
	)
	catalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "playtrack",
			Name:      "catalog_entries",
			Help:      "Number of catalog entries found by the last scan.",
		},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "playtrack",
			Subsystem: "tracker",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one aggregation cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	cycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playtrack",
			Subsystem: "tracker",
			Name:      "cycle_errors_total",
			Help:      "Errors encountered during cycles by stage.",
		}, []string{"stage"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{appLaunches, appPlaytime, appCPU, appMemory, runningApps, catalogEntries, cycleDuration, cycleErrors}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncLaunch(app string) {
	if regOK.Load() {
		appLaunches.WithLabelValues(app).Inc()
	}
}

// SetAppStats mirrors one stats entry into the per-app gauges.
func SetAppStats(app string, playtime int64, cpu, mem float64) {
	if regOK.Load() {
		appPlaytime.WithLabelValues(app).Set(float64(playtime))
		appCPU.WithLabelValues(app).Set(cpu)
		appMemory.WithLabelValues(app).Set(mem)
	}
}

func SetRunningApps(n int) {
	if regOK.Load() {
		runningApps.Set(float64(n))
	}
}

func SetCatalogEntries(n int) {
	if regOK.Load() {
		catalogEntries.Set(float64(n))
	}
}

func ObserveCycleDuration(seconds float64) {
	if regOK.Load() {
		cycleDuration.Observe(seconds)
	}
}

func IncCycleError(stage string) {
	if regOK.Load() {
		cycleErrors.WithLabelValues(stage).Inc()
	}
}
