package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the harvesting
// and record-acquisition pipelines.
type Metrics struct {
	EventsHarvested prometheus.Counter
	HarvestTasks    *prometheus.CounterVec // labels: catalog, outcome={completed,failed}
	HarvestDuration prometheus.Histogram

	EventsProcessed *prometheus.CounterVec // labels: outcome={success,failed}
	StationOutcomes *prometheus.CounterVec // labels: status (station process status)
	SamplesStored   prometheus.Counter
	RunActive       prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsHarvested,
		m.HarvestTasks,
		m.HarvestDuration,
		m.EventsProcessed,
		m.StationOutcomes,
		m.SamplesStored,
		m.RunActive,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsHarvested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_harvest",
			Name:      "events_harvested_total",
			Help:      "Total catalog events fetched and upserted.",
		}),
		HarvestTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_harvest",
			Name:      "harvest_tasks_total",
			Help:      "Catalog-year harvest tasks by catalog and outcome.",
		}, []string{"catalog", "outcome"}),
		HarvestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seismic_harvest",
			Name:      "harvest_task_duration_seconds",
			Help:      "Duration of one catalog-year harvest task.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_harvest",
			Name:      "record_events_total",
			Help:      "Events run through the record pipeline by outcome.",
		}, []string{"outcome"}),
		StationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_harvest",
			Name:      "station_outcomes_total",
			Help:      "Per-station processing outcomes by status.",
		}, []string{"status"}),
		SamplesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_harvest",
			Name:      "samples_stored_total",
			Help:      "Total acceleration samples persisted.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seismic_harvest",
			Name:      "run_active",
			Help:      "1 while a harvest or acquisition run is active.",
		}),
	}
}
