package scoring

import (
	"fmt"
	"math"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
	"sentinel/internal/services/indicators"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// DefaultFakeThreshold is the probability at or above which a profile is called fake
const DefaultFakeThreshold = 0.5

// Fallback weights, summing to 1
const (
	WeightAccountAge   = 0.3
	WeightRatio        = 0.25
	WeightHighSeverity = 0.45

	// accounts older than this contribute nothing to the age factor
	AgeFactorHorizonDays = 180.0
	// ratios at or above this contribute nothing to the ratio factor
	RatioFactorCeiling = 1.0
	// this many high-severity indicators saturate the indicator factor
	HighSeveritySaturation = 3
)

// Model is a trained classifier returning P(fake) for an encoded vector.
// Implementations must be safe for concurrent read-only use.
type Model interface {
	PredictProba(encoded []float32) (float64, error)
}

// Scorer converts feature vectors into ScoreResults, falling back to a
// weighted heuristic whenever the model is missing or misbehaves.
type Scorer struct {
	model     Model
	evaluator *indicators.Evaluator
	threshold float64
	log       *logger.Logger
}

// NewScorer creates a scorer. model may be nil for heuristic-only mode.
func NewScorer(model Model, evaluator *indicators.Evaluator, threshold float64, log *logger.Logger) *Scorer {
	if evaluator == nil {
		evaluator = indicators.NewEvaluator()
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultFakeThreshold
	}
	if log == nil {
		log = logger.Get()
	}
	return &Scorer{
		model:     model,
		evaluator: evaluator,
		threshold: threshold,
		log:       log.With("component", "scorer"),
	}
}

// HasModel reports whether a trained model is configured
func (s *Scorer) HasModel() bool {
	return s.model != nil
}

// Threshold returns the fake threshold in use
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score never fails: model errors are logged and replaced by the heuristic
func (s *Scorer) Score(v *features.Vector) analysis.ScoreResult {
	if s.model != nil {
		p, err := s.predict(v)
		if err == nil {
			return s.result(p, analysis.SourceModel, nil)
		}
		s.log.Warnw("Model inference failed, using heuristic fallback", "error", err)
	}

	p, factors := s.Heuristic(v)
	return s.result(p, analysis.SourceHeuristicFallback, factors)
}

func (s *Scorer) predict(v *features.Vector) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(errors.ErrModelUnavailable, fmt.Sprintf("model panicked: %v", r))
		}
	}()

	p, err = s.model.PredictProba(v.Encode())
	if err != nil {
		return 0, errors.Wrap(errors.ErrModelUnavailable, err.Error())
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, errors.Wrapf(errors.ErrModelUnavailable, "probability %v outside [0,1]", p)
	}
	return p, nil
}

// Heuristic computes the deterministic fallback probability and its breakdown
func (s *Scorer) Heuristic(v *features.Vector) (float64, *analysis.HeuristicFactors) {
	age := valueOr(v, features.AccountAgeDays)
	ratio := valueOr(v, features.FollowerFollowingRatio)

	ageFactor := clamp01(1 - age/AgeFactorHorizonDays)
	ratioFactor := clamp01((RatioFactorCeiling - ratio) / (RatioFactorCeiling - indicators.MinFollowerRatio))

	high := indicators.CountSeverity(s.evaluator.Evaluate(v), analysis.SeverityHigh)
	highFactor := math.Min(1, float64(high)/HighSeveritySaturation)

	p := clamp01(WeightAccountAge*ageFactor + WeightRatio*ratioFactor + WeightHighSeverity*highFactor)

	return p, &analysis.HeuristicFactors{
		AccountAge:         WeightAccountAge * ageFactor,
		FollowerRatio:      WeightRatio * ratioFactor,
		HighSeverityCount:  high,
		HighSeverityFactor: WeightHighSeverity * highFactor,
	}
}

func (s *Scorer) result(p float64, source analysis.ScoreSource, factors *analysis.HeuristicFactors) analysis.ScoreResult {
	return analysis.ScoreResult{
		Probability: p,
		RiskLevel:   analysis.RiskLevelFor(p),
		IsFake:      p >= s.threshold,
		Source:      source,
		Factors:     factors,
	}
}

func valueOr(v *features.Vector, name string) float64 {
	if val, ok := v.Get(name); ok {
		return val
	}
	return features.Defaults[name]
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
