package services

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackguard_request_total",
			Help: "Total HTTP API requests",
		},
		[]string{"handler"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stackguard_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	probeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackguard_probe_failures_total",
			Help: "Liveness probe failures per service",
		},
		[]string{"service"},
	)

	remediations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackguard_remediations_total",
			Help: "Remediation actions launched per service",
		},
		[]string{"service"},
	)

	driftDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackguard_drift_detected_total",
			Help: "Config drift detections per rule",
		},
		[]string{"rule"},
	)

	driftRepaired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackguard_drift_repaired_total",
			Help: "Confirmed drift repairs per rule",
		},
		[]string{"rule"},
	)

	snapshotsTaken = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackguard_snapshots_total",
			Help: "Snapshots taken, by trigger reason",
		},
		[]string{"reason"},
	)

	overallHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stackguard_overall_healthy",
			Help: "1 when every service passed its latest probe, else 0",
		},
	)
)

// Local counters backing the /healthz metrics block; the prometheus client
// offers no cheap read-back of counter values.
var (
	totalRequests  int64
	errorRequests  int64
	totalRepairs   int64
	totalSnapshots int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(probeFailures)
	prometheus.MustRegister(remediations)
	prometheus.MustRegister(driftDetected)
	prometheus.MustRegister(driftRepaired)
	prometheus.MustRegister(snapshotsTaken)
	prometheus.MustRegister(overallHealthy)
}

func IncrementRequestCount(handler string) {
	requestCount.WithLabelValues(handler).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func RecordRequestDuration(handler string, seconds float64) {
	requestDuration.WithLabelValues(handler).Observe(seconds)
}

func IncrementErrorCount(handler string) {
	atomic.AddInt64(&errorRequests, 1)
}

func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&errorRequests)
}

func recordProbeFailure(service string) {
	probeFailures.WithLabelValues(service).Inc()
}

func recordRemediation(service string) {
	remediations.WithLabelValues(service).Inc()
}

func recordDrift(rule string, repaired bool) {
	driftDetected.WithLabelValues(rule).Inc()
	if repaired {
		driftRepaired.WithLabelValues(rule).Inc()
		atomic.AddInt64(&totalRepairs, 1)
	}
}

func recordSnapshot(reason string) {
	snapshotsTaken.WithLabelValues(reason).Inc()
	atomic.AddInt64(&totalSnapshots, 1)
}

func setOverallHealthy(healthy bool) {
	if healthy {
		overallHealthy.Set(1)
	} else {
		overallHealthy.Set(0)
	}
}

func GetTotalRepairCount() int64 {
	return atomic.LoadInt64(&totalRepairs)
}

func GetTotalSnapshotCount() int64 {
	return atomic.LoadInt64(&totalSnapshots)
}
