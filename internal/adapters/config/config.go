package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"sentinel/pkg/errors"
)

type Config struct {
	App           AppConfig
	Engine        EngineConfig
	Model         ModelConfig
	Fetch         FetchConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Sentiment     SentimentConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"sentinel"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// EngineConfig tunes the scoring pipeline and the batch worker pool
type EngineConfig struct {
	MaxConcurrency int     `envconfig:"ENGINE_MAX_CONCURRENCY" default:"5"`
	FakeThreshold  float64 `envconfig:"ENGINE_FAKE_THRESHOLD" default:"0.5"`
	TopIndicators  int     `envconfig:"ENGINE_TOP_INDICATORS" default:"5"` // negative disables the list
	BaselineFile   string  `envconfig:"ENGINE_BASELINE_FILE"`             // optional YAML override of the embedded table
}

// ModelConfig locates the trained classifier. Empty path means heuristic-only mode.
type ModelConfig struct {
	Path              string `envconfig:"MODEL_PATH"`
	SharedLibrary     string `envconfig:"MODEL_ONNX_SHARED_LIBRARY"`
	InputName         string `envconfig:"MODEL_INPUT_NAME" default:"input"`
	LabelOutput       string `envconfig:"MODEL_LABEL_OUTPUT" default:"output_label"`
	ProbabilityOutput string `envconfig:"MODEL_PROBABILITY_OUTPUT" default:"output_probability"`
}

type FetchConfig struct {
	FixturesDir        string        `envconfig:"FETCH_FIXTURES_DIR" default:"fixtures"`
	RequestsPerMinute  int           `envconfig:"FETCH_REQUESTS_PER_MINUTE" default:"60"`
	Burst              int           `envconfig:"FETCH_BURST" default:"5"`
	MaxRetries         int           `envconfig:"FETCH_MAX_RETRIES" default:"3"`
	InitialBackoff     time.Duration `envconfig:"FETCH_INITIAL_BACKOFF" default:"500ms"`
	MaxBackoff         time.Duration `envconfig:"FETCH_MAX_BACKOFF" default:"10s"`
	RetryStrategy      string        `envconfig:"FETCH_RETRY_STRATEGY" default:"exponential"` // exponential | linear | fixed
	RetryMultiplier    float64       `envconfig:"FETCH_RETRY_MULTIPLIER" default:"2"`
	DistributedLimiter bool          `envconfig:"FETCH_DISTRIBUTED_LIMITER" default:"false"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig with no brokers disables event publishing
type KafkaConfig struct {
	Brokers      []string `envconfig:"KAFKA_BROKERS"`
	ReportsTopic string   `envconfig:"KAFKA_REPORTS_TOPIC" default:"profile.analyzed"`
	BatchesTopic string   `envconfig:"KAFKA_BATCHES_TOPIC" default:"batch.completed"`
	PublishAsync bool     `envconfig:"KAFKA_PUBLISH_ASYNC" default:"false"`
}

type SentimentConfig struct {
	Provider string        `envconfig:"SENTIMENT_PROVIDER" default:"lexicon"` // lexicon | openai
	APIKey   string        `envconfig:"OPENAI_API_KEY"`
	Model    string        `envconfig:"SENTIMENT_MODEL" default:"gpt-4o-mini"`
	Timeout  time.Duration `envconfig:"SENTIMENT_TIMEOUT" default:"10s"`
}

type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"` // e.g. ":9090"; empty disables the endpoint
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	var errs errors.MultiError

	if c.Engine.MaxConcurrency <= 0 {
		errs.Add(errors.NewValidationError("ENGINE_MAX_CONCURRENCY", "must be positive", c.Engine.MaxConcurrency))
	}
	if c.Engine.FakeThreshold <= 0 || c.Engine.FakeThreshold >= 1 {
		errs.Add(errors.NewValidationError("ENGINE_FAKE_THRESHOLD", "must be within (0, 1)", c.Engine.FakeThreshold))
	}
	if c.Fetch.RequestsPerMinute < 0 {
		errs.Add(errors.NewValidationError("FETCH_REQUESTS_PER_MINUTE", "must not be negative", c.Fetch.RequestsPerMinute))
	}
	switch c.Fetch.RetryStrategy {
	case "", "exponential", "linear", "fixed":
	default:
		errs.Add(errors.NewValidationError("FETCH_RETRY_STRATEGY", "must be exponential, linear or fixed", c.Fetch.RetryStrategy))
	}
	if c.Sentiment.Provider != "lexicon" && c.Sentiment.Provider != "openai" {
		errs.Add(errors.NewValidationError("SENTIMENT_PROVIDER", "must be lexicon or openai", c.Sentiment.Provider))
	}
	if c.Sentiment.Provider == "openai" && c.Sentiment.APIKey == "" {
		errs.Add(errors.NewValidationError("OPENAI_API_KEY", "is required for the openai sentiment provider", ""))
	}

	return errors.Wrap(errs.ToError(), "invalid configuration")
}
