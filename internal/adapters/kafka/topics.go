package kafka

// Default topic names, overridable through configuration
const (
	TopicProfileAnalyzed = "profile.analyzed"
	TopicBatchCompleted  = "batch.completed"
)
