package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// vulnerability scoring pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration   prometheus.Histogram
	RunInProgress prometheus.Gauge

	// Per-run zone accounting.
	ZonesProcessed    prometheus.Counter
	ZonesDegraded     prometheus.Counter
	CategoryFallbacks *prometheus.CounterVec // labels: category={physical,socioeconomic}
	JoinMismatches    prometheus.Counter

	// Output side.
	ArtifactsWritten *prometheus.CounterVec // labels: kind={csv,geojson,png}
	ScoresPublished  prometheus.Counter
	PublishErrors    prometheus.Counter
	PublishEnabled   prometheus.Gauge

	// Query API metrics.
	HTTPRequests    *prometheus.CounterVec   // labels: route, code
	HTTPDuration    *prometheus.HistogramVec // labels: route
	ScenarioQueries *prometheus.CounterVec   // labels: scenario
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "runs_total",
			Help:      "Completed scoring runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_vuln",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-score-publish run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_vuln",
			Name:      "run_in_progress",
			Help:      "1 while a scoring run is executing, 0 otherwise.",
		}),
		ZonesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "zones_processed_total",
			Help:      "Total zones scored across all runs.",
		}),
		ZonesDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "zones_degraded_total",
			Help:      "Zones whose elevation statistics fell back to sentinel values.",
		}),
		CategoryFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "category_fallbacks_total",
			Help:      "Zones that substituted the neutral index for a missing category.",
		}, []string{"category"}),
		JoinMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "join_mismatches_total",
			Help:      "Runs whose geometry join violated the 1:1 requirement.",
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "artifacts_written_total",
			Help:      "Output artifacts written by kind.",
		}, []string{"kind"}),
		ScoresPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "scores_published_total",
			Help:      "Per-zone score messages delivered to the broker.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "publish_errors_total",
			Help:      "Broker publish failures.",
		}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_vuln",
			Name:      "publish_enabled",
			Help:      "1 when score publishing is enabled, 0 otherwise.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "http_requests_total",
			Help:      "Query API requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood_vuln",
			Name:      "http_request_duration_seconds",
			Help:      "Query API request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		ScenarioQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_vuln",
			Name:      "scenario_queries_total",
			Help:      "Vulnerability queries by requested scenario.",
		}, []string{"scenario"}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunInProgress,
		m.ZonesProcessed,
		m.ZonesDegraded,
		m.CategoryFallbacks,
		m.JoinMismatches,
		m.ArtifactsWritten,
		m.ScoresPublished,
		m.PublishErrors,
		m.PublishEnabled,
		m.HTTPRequests,
		m.HTTPDuration,
		m.ScenarioQueries,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_vuln", Name: "run_duration_seconds"}),
		RunInProgress:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_vuln", Name: "run_in_progress"}),
		ZonesProcessed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "zones_processed_total"}),
		ZonesDegraded:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "zones_degraded_total"}),
		CategoryFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "category_fallbacks_total"}, []string{"category"}),
		JoinMismatches:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "join_mismatches_total"}),
		ArtifactsWritten:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "artifacts_written_total"}, []string{"kind"}),
		ScoresPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "scores_published_total"}),
		PublishErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "publish_errors_total"}),
		PublishEnabled:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_vuln", Name: "publish_enabled"}),
		HTTPRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "http_requests_total"}, []string{"route", "code"}),
		HTTPDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "flood_vuln", Name: "http_request_duration_seconds"}, []string{"route"}),
		ScenarioQueries:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_vuln", Name: "scenario_queries_total"}, []string{"scenario"}),
	}
}
