package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Collector using Prometheus metrics
type Prometheus struct {
	scans        prometheus.Counter
	scansSkipped prometheus.Counter
	scanDuration prometheus.Histogram
	tracked      prometheus.Gauge
	added        prometheus.Counter
	removed      prometheus.Counter

	connectFailures   prometheus.Counter
	propertyRefreshes *prometheus.CounterVec

	attachStarted      prometheus.Counter
	attachOutcomes     *prometheus.CounterVec
	attachLateFailures prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheus creates a new Prometheus metrics collector
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = "vmattach"
	}

	p := &Prometheus{
		registry: prometheus.NewRegistry(),
	}

	p.scans = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Total number of discovery scans",
	})
	p.scansSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_skipped_total",
		Help:      "Total number of ticks skipped by the activity gate",
	})
	p.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of discovery scans",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	p.tracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_processes",
		Help:      "Number of processes currently in the registry",
	})
	p.added = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "processes_added_total",
		Help:      "Total number of processes added to the registry",
	})
	p.removed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "processes_removed_total",
		Help:      "Total number of processes removed from the registry",
	})
	p.connectFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connect_failures_total",
		Help:      "Total number of descriptors that could not be connected",
	})
	p.propertyRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_refreshes_total",
			Help:      "Total number of property cache recomputations",
		},
		[]string{"status"},
	)
	p.attachStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attach_started_total",
		Help:      "Total number of attach attempts",
	})
	p.attachOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attach_outcomes_total",
			Help:      "Total number of reported attach outcomes",
		},
		[]string{"outcome"},
	)
	p.attachLateFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attach_late_failures_total",
		Help:      "Attach failures observed after success was already reported",
	})

	p.registry.MustRegister(
		p.scans,
		p.scansSkipped,
		p.scanDuration,
		p.tracked,
		p.added,
		p.removed,
		p.connectFailures,
		p.propertyRefreshes,
		p.attachStarted,
		p.attachOutcomes,
		p.attachLateFailures,
	)

	return p
}

// ScanCompleted records one reconciliation pass
func (p *Prometheus) ScanCompleted(duration time.Duration, added, removed, tracked int) {
	p.scans.Inc()
	p.scanDuration.Observe(duration.Seconds())
	p.added.Add(float64(added))
	p.removed.Add(float64(removed))
	p.tracked.Set(float64(tracked))
}

// ScanSkipped records a tick suppressed by the activity gate
func (p *Prometheus) ScanSkipped() {
	p.scansSkipped.Inc()
}

// ConnectFailed records a descriptor that could not be connected
func (p *Prometheus) ConnectFailed() {
	p.connectFailures.Inc()
}

// PropertyRefresh records a property cache recomputation
func (p *Prometheus) PropertyRefresh(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.propertyRefreshes.WithLabelValues(status).Inc()
}

// AttachStarted records the start of an attach attempt
func (p *Prometheus) AttachStarted() {
	p.attachStarted.Inc()
}

// AttachFinished records the reported outcome of an attach attempt
func (p *Prometheus) AttachFinished(outcome string) {
	p.attachOutcomes.WithLabelValues(outcome).Inc()
}

// AttachLateFailure records a failure observed after success was reported
func (p *Prometheus) AttachLateFailure() {
	p.attachLateFailures.Inc()
}

// Registry returns the Prometheus registry for HTTP handler setup
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

var _ Collector = (*Prometheus)(nil)
