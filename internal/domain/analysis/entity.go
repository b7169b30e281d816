package analysis

import (
	"time"

	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
)

// Severity of a suspicious indicator
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid checks if severity is valid
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Rank orders severities, higher is worse
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// String returns string representation
func (s Severity) String() string {
	return string(s)
}

// Indicator is one heuristic finding about a profile
type Indicator struct {
	Name         string   `json:"name"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
	Explanation  string   `json:"explanation"`
	Contributing []string `json:"contributing_features"`
}

// RiskLevel buckets a fake probability
type RiskLevel string

const (
	RiskVeryHigh RiskLevel = "Very High"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
	RiskVeryLow  RiskLevel = "Very Low"
)

// RiskLevelFor maps p in [0,1] to its bucket
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p >= 0.9:
		return RiskVeryHigh
	case p >= 0.7:
		return RiskHigh
	case p >= 0.4:
		return RiskMedium
	case p >= 0.2:
		return RiskLow
	default:
		return RiskVeryLow
	}
}

// ScoreSource tells whether the trained model produced the probability
type ScoreSource string

const (
	SourceModel             ScoreSource = "model"
	SourceHeuristicFallback ScoreSource = "heuristic-fallback"
)

// HeuristicFactors is the breakdown of a fallback score
type HeuristicFactors struct {
	AccountAge         float64 `json:"account_age"`
	FollowerRatio      float64 `json:"follower_ratio"`
	HighSeverityCount  int     `json:"high_severity_count"`
	HighSeverityFactor float64 `json:"high_severity_factor"`
}

// ScoreResult holds P(fake) and what it derives
type ScoreResult struct {
	Probability float64           `json:"probability"`
	RiskLevel   RiskLevel         `json:"risk_level"`
	IsFake      bool              `json:"is_fake"`
	Source      ScoreSource       `json:"source"`
	Factors     *HeuristicFactors `json:"factors,omitempty"`
}

// ComparisonMetric compares one feature with the typical authentic profile
type ComparisonMetric struct {
	Feature      string  `json:"feature"`
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	Typical      float64 `json:"typical"`
	DiffPercent  float64 `json:"diff_percent"`
	IsSuspicious bool    `json:"is_suspicious"`
}

// PlatformInsight is a platform-specific observation
type PlatformInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AnalysisReport is the assembled, explainable result for one profile
type AnalysisReport struct {
	Profile          profile.Meta       `json:"profile"`
	Score            ScoreResult        `json:"score"`
	Indicators       []Indicator        `json:"indicators"`
	Comparison       []ComparisonMetric `json:"comparison_metrics"`
	Explanation      string             `json:"explanation"`
	Confidence       string             `json:"confidence"`
	Recommendations  []string           `json:"recommendations"`
	PlatformInsights []PlatformInsight  `json:"platform_insights"`
	Features         *features.Vector   `json:"features"`
	GeneratedAt      time.Time          `json:"generated_at"`
}
