package bootstrap

import (
	"context"
	"net/http"
	"sync"

	"sentinel/internal/adapters/config"
	"sentinel/internal/adapters/kafka"
	redisclient "sentinel/internal/adapters/redis"
	"sentinel/internal/domain/profile"
	"sentinel/internal/metrics"
	"sentinel/internal/ml/authenticity"
	"sentinel/internal/services/engine"
	"sentinel/internal/services/extraction"
	"sentinel/internal/services/indicators"
	"sentinel/internal/services/report"
	"sentinel/internal/services/scoring"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure, only set when the distributed limiter is enabled
	Redis *redisclient.Client

	// External Adapters
	Adapters *Adapters

	// Scoring pipeline
	Services *Services

	// Application Layer
	MetricsServer *http.Server

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer *kafka.Producer // nil when no brokers are configured
	Publisher     engine.Publisher
	Sentiment     extraction.SentimentScorer
	Images        extraction.ImageScorer
	Fetcher       profile.Fetcher
	Model         *authenticity.Classifier // nil in heuristic-only mode
}

// Services groups the scoring pipeline components
type Services struct {
	Baseline  *report.Baseline
	Extractor *extraction.Extractor
	Evaluator *indicators.Evaluator
	Scorer    *scoring.Scorer
	Assembler *report.Assembler
	Engine    *engine.Engine
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Adapters:  &Adapters{},
		Services:  &Services{},
		Lifecycle: NewLifecycle(),
		WG:        &sync.WaitGroup{},
		Context:   ctx,
		Cancel:    cancel,
	}
}

// Init wires every component from cfg. The logger must already be set up
// (MustInitConfig does this); when it is not, the global logger is used.
func (c *Container) Init(cfg *config.Config) error {
	c.Config = cfg
	if c.Log == nil {
		c.Log = logger.Get()
	}
	if c.ErrorTracker == nil {
		c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}
	if err := c.initAdapters(); err != nil {
		return err
	}
	if err := c.initServices(); err != nil {
		return err
	}
	c.initMetrics()
	return nil
}

// Start starts the metrics endpoint, when configured
func (c *Container) Start() error {
	if c.MetricsServer == nil {
		return nil
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		c.Log.Infow("Metrics endpoint listening", "addr", c.MetricsServer.Addr)
		if err := c.MetricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.Log.Errorf("Metrics server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.MetricsServer,
		c.Adapters.KafkaProducer,
		c.Adapters.Model,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}

// EngineState reports what the metrics collector exposes about this process
func (c *Container) EngineState() metrics.EngineState {
	state := metrics.EngineState{MaxConcurrency: c.Config.Engine.MaxConcurrency}
	if c.Services.Baseline != nil {
		state.BaselineVersion = c.Services.Baseline.Version
	}
	state.ModelLoaded = c.Adapters.Model != nil
	return state
}
