package indicators

import (
	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
)

// Evaluator applies an ordered rule list to feature vectors.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator creates an evaluator over rules, or DefaultRules when none are given
func NewEvaluator(rules ...Rule) *Evaluator {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Evaluator{rules: rules}
}

// Rules returns the rules in evaluation order
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Evaluate returns one indicator per firing rule, in rule order.
// A rule whose features are absent from v, or whose observed features were
// defaulted, is skipped.
func (e *Evaluator) Evaluate(v *features.Vector) []analysis.Indicator {
	out := make([]analysis.Indicator, 0)
	for _, rule := range e.rules {
		values, ok := lookup(v, rule.Features)
		if !ok || anyDefaulted(v, rule.Observed) {
			continue
		}
		if !rule.Fires(values) {
			continue
		}
		out = append(out, analysis.Indicator{
			Name:         rule.Name,
			Severity:     rule.Severity,
			Description:  rule.Describe(values),
			Explanation:  rule.Explanation,
			Contributing: append([]string(nil), rule.Features...),
		})
	}
	return out
}

// CountSeverity counts indicators with the given severity
func CountSeverity(indicators []analysis.Indicator, severity analysis.Severity) int {
	n := 0
	for _, ind := range indicators {
		if ind.Severity == severity {
			n++
		}
	}
	return n
}

func lookup(v *features.Vector, names []string) (Values, bool) {
	snapshot := make(map[string]float64, len(names))
	for _, name := range names {
		val, ok := v.Get(name)
		if !ok {
			return nil, false
		}
		snapshot[name] = val
	}
	return func(name string) float64 { return snapshot[name] }, true
}

func anyDefaulted(v *features.Vector, names []string) bool {
	for _, name := range names {
		if v.IsDefaulted(name) {
			return true
		}
	}
	return false
}
