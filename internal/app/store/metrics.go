package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors updated by the store. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	linksCreated   prometheus.Counter
	clicksRecorded prometheus.Counter
	collisions     prometheus.Counter
	commitFailures prometheus.Counter
	commitDuration prometheus.Histogram
	linksStored    prometheus.Gauge
}

// NewMetrics registers the store collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		linksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicklink_links_created_total",
			Help: "Total number of short links created",
		}),
		clicksRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicklink_link_clicks_total",
			Help: "Total number of clicks recorded on short links",
		}),
		collisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicklink_shortcode_collisions_total",
			Help: "Short code collisions resolved by regeneration",
		}),
		commitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicklink_store_commit_failures_total",
			Help: "Snapshot commits that failed to reach durable storage",
		}),
		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quicklink_store_commit_duration_seconds",
			Help:    "Time spent serializing and saving the link snapshot",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		linksStored: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quicklink_links_stored",
			Help: "Number of link records held by the store",
		}),
	}
}

func (m *Metrics) linkCreated(total int) {
	if m == nil {
		return
	}
	m.linksCreated.Inc()
	m.linksStored.Set(float64(total))
}

func (m *Metrics) clickRecorded() {
	if m == nil {
		return
	}
	m.clicksRecorded.Inc()
}

func (m *Metrics) collision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *Metrics) hydrated(total int) {
	if m == nil {
		return
	}
	m.linksStored.Set(float64(total))
}

func (m *Metrics) committed(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.commitDuration.Observe(d.Seconds())
	if err != nil {
		m.commitFailures.Inc()
	}
}
