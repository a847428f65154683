package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics of the fetcher.
type Metrics struct {
	// Counters
	runsStarted  prometheus.Counter
	tasksFetched *prometheus.CounterVec

	// Gauges
	fetchesInFlight prometheus.Gauge
	runActive       prometheus.Gauge

	// Histograms
	fetchDuration *prometheus.HistogramVec
	runDuration   prometheus.Histogram
}

// New creates the metrics and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "photobatch_runs_started_total",
				Help: "Total number of download runs started",
			},
		),
		tasksFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photobatch_tasks_finished_total",
				Help: "Total number of tasks finished, by outcome",
			},
			[]string{"outcome"},
		),
		fetchesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "photobatch_fetches_in_flight",
				Help: "Number of image fetches currently outstanding",
			},
		),
		runActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "photobatch_run_active",
				Help: "1 while a download run is draining, 0 otherwise",
			},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photobatch_fetch_duration_seconds",
				Help:    "Image fetch duration in seconds, by outcome",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photobatch_run_duration_seconds",
				Help:    "Duration of complete download runs",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}

	reg.MustRegister(
		m.runsStarted,
		m.tasksFetched,
		m.fetchesInFlight,
		m.runActive,
		m.fetchDuration,
		m.runDuration,
	)
	return m
}

// Nil-safe recorders: a nil *Metrics records nothing.

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
	m.runActive.Set(1)
}

func (m *Metrics) RunFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.runActive.Set(0)
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) FetchStarted() {
	if m == nil {
		return
	}
	m.fetchesInFlight.Inc()
}

// FetchFinished records one fetch; outcome is "completed" or a failure kind.
func (m *Metrics) FetchFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchesInFlight.Dec()
	m.tasksFetched.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
