package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_analyses_total",
			Help: "Total number of profile analyses",
		},
		[]string{"platform", "outcome"}, // outcome: fake|authentic|failed
	)

	ScoreSources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_score_source_total",
			Help: "Scores by source",
		},
		[]string{"source"}, // source: model|heuristic-fallback
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_stage_failures_total",
			Help: "Per-item failures by pipeline stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	IndicatorFirings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_indicator_firings_total",
			Help: "Number of times each indicator rule fired",
		},
		[]string{"indicator", "severity"},
	)

	FakeProbability = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_fake_probability",
			Help:    "Distribution of P(fake)",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"platform"},
	)

	// Fetch metrics
	FetchCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_fetch_calls_total",
			Help: "Total number of profile fetches",
		},
		[]string{"platform", "status"}, // status: success|not_found|rate_limited|auth_error|transient|...
	)

	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_fetch_latency_seconds",
			Help:    "Profile fetch latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"platform"},
	)

	FetchRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_fetch_retries_total",
			Help: "Fetch retries after transient failures",
		},
		[]string{"platform"},
	)

	// Batch metrics
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_batch_duration_seconds",
			Help:    "Batch execution duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"platform", "status"},
	)

	BatchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_batch_items_total",
			Help: "Batch items by terminal stage",
		},
		[]string{"platform", "stage"}, // stage: done|failed
	)

	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_pipelines_in_flight",
			Help: "Per-profile pipelines currently running",
		},
	)

	// Event metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_published_total",
			Help: "Kafka events published",
		},
		[]string{"topic", "status"},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(Analyses)
		prometheus.MustRegister(ScoreSources)
		prometheus.MustRegister(StageFailures)
		prometheus.MustRegister(IndicatorFirings)
		prometheus.MustRegister(FakeProbability)

		prometheus.MustRegister(FetchCalls)
		prometheus.MustRegister(FetchLatency)
		prometheus.MustRegister(FetchRetries)

		prometheus.MustRegister(BatchDuration)
		prometheus.MustRegister(BatchItems)
		prometheus.MustRegister(InFlight)

		prometheus.MustRegister(EventsPublished)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAnalysis records a completed analysis
func RecordAnalysis(platform, source string, probability float64, isFake bool) {
	outcome := "authentic"
	if isFake {
		outcome = "fake"
	}

	Analyses.WithLabelValues(platform, outcome).Inc()
	ScoreSources.WithLabelValues(source).Inc()
	FakeProbability.WithLabelValues(platform).Observe(probability)
}

// RecordIndicator records one indicator firing
func RecordIndicator(name, severity string) {
	IndicatorFirings.WithLabelValues(name, severity).Inc()
}

// RecordStageFailure records a failed item
func RecordStageFailure(platform, stage, kind string) {
	Analyses.WithLabelValues(platform, "failed").Inc()
	StageFailures.WithLabelValues(stage, kind).Inc()
}

// RecordFetch records a fetch call. status is "success" or an error kind.
func RecordFetch(platform, status string, latency time.Duration) {
	FetchCalls.WithLabelValues(platform, status).Inc()
	FetchLatency.WithLabelValues(platform).Observe(latency.Seconds())
}

// RecordFetchRetry records a retried fetch
func RecordFetchRetry(platform string) {
	FetchRetries.WithLabelValues(platform).Inc()
}

// RecordBatch records a finished batch
func RecordBatch(platform, status string, duration time.Duration, done, failed int) {
	BatchDuration.WithLabelValues(platform, status).Observe(duration.Seconds())
	BatchItems.WithLabelValues(platform, "done").Add(float64(done))
	BatchItems.WithLabelValues(platform, "failed").Add(float64(failed))
}

// RecordEvent records a Kafka publish attempt
func RecordEvent(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublished.WithLabelValues(topic, status).Inc()
}
