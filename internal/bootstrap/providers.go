package bootstrap

import (
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"sentinel/internal/adapters/config"
	errnoop "sentinel/internal/adapters/errors/noop"
	"sentinel/internal/adapters/errors/sentry"
	"sentinel/internal/adapters/fixtures"
	"sentinel/internal/adapters/imagecheck"
	"sentinel/internal/adapters/kafka"
	"sentinel/internal/adapters/ratelimit"
	redisclient "sentinel/internal/adapters/redis"
	"sentinel/internal/adapters/retry"
	"sentinel/internal/adapters/sentiment"
	"sentinel/internal/domain/profile"
	"sentinel/internal/events"
	"sentinel/internal/metrics"
	"sentinel/internal/ml"
	"sentinel/internal/ml/authenticity"
	"sentinel/internal/services/engine"
	"sentinel/internal/services/extraction"
	"sentinel/internal/services/indicators"
	"sentinel/internal/services/report"
	"sentinel/internal/services/scoring"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

func (c *Container) initInfrastructure() error {
	if !c.Config.Fetch.DistributedLimiter {
		return nil
	}

	c.Log.Info("Connecting to Redis...")
	client, err := redisclient.NewClient(c.Context, c.Config.Redis)
	if err != nil {
		return errors.Wrap(err, "distributed limiter enabled but redis is unavailable")
	}
	c.Redis = client
	c.Log.Info("✓ Redis connected")
	return nil
}

// ========================================
// Phase 3: External Adapters
// ========================================

func (c *Container) initAdapters() error {
	var err error

	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.Publisher = providePublisher(c.Config, c.Adapters.KafkaProducer, c.Log)

	c.Adapters.Sentiment, err = provideSentimentScorer(c.Config, c.Log)
	if err != nil {
		return err
	}
	c.Adapters.Images = imagecheck.NewURLScorer()

	c.Adapters.Fetcher, err = provideFetcher(c.Config, c.Redis, c.Log)
	if err != nil {
		return err
	}

	c.Adapters.Model = provideModel(c.Config, c.Log)
	return nil
}

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("Kafka brokers not configured, event publishing disabled")
		return nil
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Async:   cfg.Kafka.PublishAsync,
	}, log)
	log.Infow("✓ Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	return producer
}

func providePublisher(cfg *config.Config, producer *kafka.Producer, log *logger.Logger) engine.Publisher {
	if producer == nil {
		return events.NoopPublisher{}
	}

	topics := events.Topics{
		ProfileAnalyzed: cfg.Kafka.ReportsTopic,
		BatchCompleted:  cfg.Kafka.BatchesTopic,
	}
	if topics.ProfileAnalyzed == "" {
		topics.ProfileAnalyzed = kafka.TopicProfileAnalyzed
	}
	if topics.BatchCompleted == "" {
		topics.BatchCompleted = kafka.TopicBatchCompleted
	}
	return events.NewPublisher(producer, topics, log)
}

func provideSentimentScorer(cfg *config.Config, log *logger.Logger) (extraction.SentimentScorer, error) {
	switch cfg.Sentiment.Provider {
	case "openai":
		scorer, err := sentiment.NewOpenAIScorer(cfg.Sentiment.APIKey, cfg.Sentiment.Model, cfg.Sentiment.Timeout, log)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create openai sentiment scorer")
		}
		log.Infow("✓ Sentiment scoring via OpenAI", "model", cfg.Sentiment.Model)
		return scorer, nil
	default:
		log.Info("✓ Sentiment scoring via built-in lexicon")
		return sentiment.NewLexicon(), nil
	}
}

// provideFetcher layers, from the outside in: retry, rate limit, fixtures
func provideFetcher(cfg *config.Config, redis *redisclient.Client, log *logger.Logger) (profile.Fetcher, error) {
	base, err := fixtures.NewFetcher(cfg.Fetch.FixturesDir, log)
	if err != nil {
		return nil, err
	}

	var fetcher profile.Fetcher = base

	if cfg.Fetch.RequestsPerMinute > 0 {
		var limiter ratelimit.Waiter
		if redis != nil {
			limiter = ratelimit.NewRedisLimiter(redis.Client(), "profiles", cfg.Fetch.RequestsPerMinute, cfg.Fetch.Burst)
			log.Infow("✓ Distributed fetch rate limit", "requests_per_minute", cfg.Fetch.RequestsPerMinute)
		} else {
			limiter = ratelimit.NewLimiter("fetch", cfg.Fetch.RequestsPerMinute, cfg.Fetch.Burst)
			log.Infow("✓ Local fetch rate limit", "requests_per_minute", cfg.Fetch.RequestsPerMinute)
		}
		fetcher = ratelimit.Fetcher(fetcher, limiter)
	}

	if cfg.Fetch.MaxRetries > 0 {
		strategy, err := retry.ParseStrategy(cfg.Fetch.RetryStrategy)
		if err != nil {
			return nil, err
		}
		fetcher = retry.Fetcher(fetcher, retry.New(retry.Config{
			MaxRetries:   cfg.Fetch.MaxRetries,
			InitialDelay: cfg.Fetch.InitialBackoff,
			MaxDelay:     cfg.Fetch.MaxBackoff,
			Strategy:     strategy,
			Multiplier:   cfg.Fetch.RetryMultiplier,
		}))
		log.Infow("✓ Fetch retries", "max_retries", cfg.Fetch.MaxRetries, "strategy", strategy)
	}

	return fetcher, nil
}

// provideModel loads the classifier. Failure is not fatal: the scorer runs
// heuristic-only.
func provideModel(cfg *config.Config, log *logger.Logger) *authenticity.Classifier {
	if cfg.Model.Path == "" {
		log.Info("No model configured, scoring with heuristic fallback only")
		return nil
	}

	model, err := authenticity.NewClassifier(ml.SessionConfig{
		ModelPath:         cfg.Model.Path,
		SharedLibraryPath: cfg.Model.SharedLibrary,
		InputName:         cfg.Model.InputName,
		LabelOutput:       cfg.Model.LabelOutput,
		ProbabilityOutput: cfg.Model.ProbabilityOutput,
	})
	if err != nil {
		log.Warnw("Failed to load model, scoring with heuristic fallback only", "path", cfg.Model.Path, "error", err)
		return nil
	}

	log.Infow("✓ Model loaded", "path", cfg.Model.Path)
	return model
}

// ========================================
// Phase 4: Scoring pipeline
// ========================================

func (c *Container) initServices() error {
	baseline, err := report.LoadBaseline(c.Config.Engine.BaselineFile)
	if err != nil {
		return errors.Wrap(err, "failed to load baseline table")
	}

	s := c.Services
	s.Baseline = baseline
	s.Extractor = extraction.NewExtractor(c.Adapters.Sentiment, c.Adapters.Images, c.Log)
	s.Evaluator = indicators.NewEvaluator()

	// A nil *Classifier must not become a non-nil Model interface
	var model scoring.Model
	if c.Adapters.Model != nil {
		model = c.Adapters.Model
	}
	s.Scorer = scoring.NewScorer(model, s.Evaluator, c.Config.Engine.FakeThreshold, c.Log)
	s.Assembler = report.NewAssembler(baseline, time.Now)

	s.Engine, err = engine.New(engine.Deps{
		Extractor: s.Extractor,
		Evaluator: s.Evaluator,
		Scorer:    s.Scorer,
		Assembler: s.Assembler,
		Publisher: c.Adapters.Publisher,
		Tracker:   c.ErrorTracker,
		Logger:    c.Log,
	}, engine.Config{
		MaxConcurrency: c.Config.Engine.MaxConcurrency,
		TopIndicators:  c.Config.Engine.TopIndicators,
	})
	if err != nil {
		return err
	}

	c.Log.Infow("✓ Scoring engine ready",
		"max_concurrency", s.Engine.MaxConcurrency(),
		"model_loaded", s.Scorer.HasModel(),
		"baseline_version", baseline.Version,
	)
	return nil
}

// ========================================
// Phase 5: Metrics
// ========================================

func (c *Container) initMetrics() {
	metrics.Init()

	var rdb *goredis.Client
	if c.Redis != nil {
		rdb = c.Redis.Client()
	}
	collector := metrics.NewCustomCollector(c.Log, c.EngineState(), rdb)
	if err := metrics.RegisterCustomCollector(collector); err != nil {
		c.Log.Debugw("Custom collector already registered", "error", err)
	}

	if c.Config.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	c.MetricsServer = &http.Server{
		Addr:              c.Config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
