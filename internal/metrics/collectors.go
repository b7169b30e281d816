package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"sentinel/pkg/logger"
)

// EngineState reports static engine configuration
type EngineState struct {
	ModelLoaded     bool
	BaselineVersion int
	MaxConcurrency  int
}

// CustomCollector exposes engine state and dependency health on every scrape
type CustomCollector struct {
	log   *logger.Logger
	state EngineState
	redis *redis.Client // optional, set when the distributed limiter is enabled

	// Descriptors
	modelLoaded     *prometheus.Desc
	baselineVersion *prometheus.Desc
	maxConcurrency  *prometheus.Desc
	redisUp         *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, state EngineState, redis *redis.Client) *CustomCollector {
	return &CustomCollector{
		log:   log,
		state: state,
		redis: redis,

		modelLoaded: prometheus.NewDesc(
			"sentinel_model_loaded",
			"Whether a trained model is loaded (0=heuristic only, 1=model)",
			nil, nil,
		),
		baselineVersion: prometheus.NewDesc(
			"sentinel_baseline_version",
			"Version of the baseline comparison table in use",
			nil, nil,
		),
		maxConcurrency: prometheus.NewDesc(
			"sentinel_batch_max_concurrency",
			"Configured per-batch worker count",
			nil, nil,
		),
		redisUp: prometheus.NewDesc(
			"sentinel_redis_up",
			"Whether the rate limiter Redis answers PING",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.modelLoaded
	ch <- c.baselineVersion
	ch <- c.maxConcurrency
	ch <- c.redisUp
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.modelLoaded, prometheus.GaugeValue, boolGauge(c.state.ModelLoaded))
	ch <- prometheus.MustNewConstMetric(c.baselineVersion, prometheus.GaugeValue, float64(c.state.BaselineVersion))
	ch <- prometheus.MustNewConstMetric(c.maxConcurrency, prometheus.GaugeValue, float64(c.state.MaxConcurrency))

	if c.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	up := true
	if err := c.redis.Ping(ctx).Err(); err != nil {
		c.log.Warnw("Redis ping failed during metrics scrape", "error", err)
		up = false
	}
	ch <- prometheus.MustNewConstMetric(c.redisUp, prometheus.GaugeValue, boolGauge(up))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RegisterCustomCollector registers the custom collector with Prometheus
func RegisterCustomCollector(collector *CustomCollector) error {
	return prometheus.Register(collector)
}
