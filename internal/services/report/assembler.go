package report

import (
	"math"
	"sort"
	"time"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
)

// Assembler merges score, indicators and baseline comparison into reports.
// It only reads the baseline and is safe for concurrent use.
type Assembler struct {
	baseline *Baseline
	now      func() time.Time
}

// NewAssembler creates an assembler. now defaults to time.Now.
func NewAssembler(baseline *Baseline, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{baseline: baseline, now: now}
}

// Assemble builds the report. Apart from GeneratedAt, output depends only on the inputs.
func (a *Assembler) Assemble(
	meta profile.Meta,
	v *features.Vector,
	indicators []analysis.Indicator,
	score analysis.ScoreResult,
) *analysis.AnalysisReport {
	ordered := SortIndicators(indicators)

	return &analysis.AnalysisReport{
		Profile:          meta,
		Score:            score,
		Indicators:       ordered,
		Comparison:       a.Compare(meta.Platform, v),
		Explanation:      Explain(meta.Platform, score, ordered),
		Confidence:       ConfidenceLabel(score),
		Recommendations:  Recommend(score, ordered),
		PlatformInsights: Insights(meta.Platform, v),
		Features:         v,
		GeneratedAt:      a.now().UTC(),
	}
}

// SortIndicators orders by descending severity, keeping detection order within a severity
func SortIndicators(indicators []analysis.Indicator) []analysis.Indicator {
	out := append(make([]analysis.Indicator, 0, len(indicators)), indicators...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

// Compare computes signed percentage deviations from the typical profile
func (a *Assembler) Compare(platform profile.Platform, v *features.Vector) []analysis.ComparisonMetric {
	out := make([]analysis.ComparisonMetric, 0)
	if a.baseline == nil {
		return out
	}
	for _, m := range a.baseline.Metrics {
		typical := m.Typical[platform]
		value, ok := v.Get(m.Feature)
		if !ok || typical <= 0 {
			continue
		}
		diff := round2((value - typical) / typical * 100)
		out = append(out, analysis.ComparisonMetric{
			Feature:      m.Feature,
			Label:        m.Label,
			Value:        round2(value),
			Typical:      typical,
			DiffPercent:  diff,
			IsSuspicious: m.Suspicious(diff),
		})
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
