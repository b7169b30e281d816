package events

import (
	"context"
	"time"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/metrics"
	"sentinel/pkg/logger"
)

// Producer is the transport the publisher writes to
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Topics names the destination of each event type
type Topics struct {
	ProfileAnalyzed string
	BatchCompleted  string
}

// ProfileAnalyzedEvent is emitted for every completed report
type ProfileAnalyzedEvent struct {
	BatchID     string             `json:"batch_id,omitempty"`
	Platform    string             `json:"platform"`
	Username    string             `json:"username"`
	Probability float64            `json:"probability"`
	RiskLevel   analysis.RiskLevel `json:"risk_level"`
	IsFake      bool               `json:"is_fake"`
	Source      string             `json:"source"`
	Indicators  []string           `json:"indicators"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// BatchCompletedEvent is emitted once per finished batch
type BatchCompletedEvent struct {
	BatchID    string               `json:"batch_id"`
	Platform   string               `json:"platform"`
	Status     analysis.BatchStatus `json:"status"`
	Summary    analysis.Summary     `json:"summary"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Publisher publishes analysis events to Kafka
type Publisher struct {
	producer Producer
	topics   Topics
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, topics Topics, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Get()
	}
	return &Publisher{
		producer: producer,
		topics:   topics,
		log:      log.With("component", "event_publisher"),
	}
}

// PublishProfileAnalyzed publishes a report summary keyed by platform/username
func (p *Publisher) PublishProfileAnalyzed(ctx context.Context, batchID string, report *analysis.AnalysisReport) error {
	names := make([]string, 0, len(report.Indicators))
	for _, ind := range report.Indicators {
		names = append(names, ind.Name)
	}

	event := ProfileAnalyzedEvent{
		BatchID:     batchID,
		Platform:    report.Profile.Platform.String(),
		Username:    report.Profile.Username,
		Probability: report.Score.Probability,
		RiskLevel:   report.Score.RiskLevel,
		IsFake:      report.Score.IsFake,
		Source:      string(report.Score.Source),
		Indicators:  names,
		GeneratedAt: report.GeneratedAt,
	}
	return p.publish(ctx, p.topics.ProfileAnalyzed, event.Platform+"/"+event.Username, event)
}

// PublishBatchCompleted publishes the batch summary keyed by batch ID
func (p *Publisher) PublishBatchCompleted(ctx context.Context, job *analysis.BatchJob) error {
	event := BatchCompletedEvent{
		BatchID:    job.ID,
		Platform:   job.Platform.String(),
		Status:     job.Status,
		Summary:    job.Summary,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	return p.publish(ctx, p.topics.BatchCompleted, job.ID, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := p.producer.Publish(ctx, topic, key, event)
	metrics.RecordEvent(topic, err)
	if err != nil {
		p.log.Warnw("Event publish failed", "topic", topic, "key", key, "error", err)
	}
	return err
}

// NoopPublisher drops every event, used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishProfileAnalyzed(context.Context, string, *analysis.AnalysisReport) error {
	return nil
}

func (NoopPublisher) PublishBatchCompleted(context.Context, *analysis.BatchJob) error {
	return nil
}
