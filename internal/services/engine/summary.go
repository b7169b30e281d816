package engine

import (
	"sort"

	"sentinel/internal/domain/analysis"
)

// Summarize aggregates terminal outcomes in a single pass. topN bounds the
// most frequent indicators list; ties are broken by name.
func Summarize(outcomes []analysis.ItemOutcome, topN int) analysis.Summary {
	s := analysis.Summary{
		Total:         len(outcomes),
		ErrorsByKind:  make(map[analysis.ErrorKind]int),
		TopIndicators: []analysis.IndicatorCount{},
	}

	counts := make(map[string]int)
	var probSum float64

	for _, out := range outcomes {
		if !out.Done() {
			s.Failed++
			if out.Error != nil {
				s.ErrorsByKind[out.Error.Kind]++
			}
			continue
		}

		s.Done++
		probSum += out.Report.Score.Probability
		if out.Report.Score.IsFake {
			s.FakeCount++
		} else {
			s.AuthenticCount++
		}
		for _, ind := range out.Report.Indicators {
			counts[ind.Name]++
		}
	}

	s.ErrorCount = s.Failed
	if s.Done > 0 {
		s.AverageProbability = probSum / float64(s.Done)
	}

	for name, n := range counts {
		s.TopIndicators = append(s.TopIndicators, analysis.IndicatorCount{Name: name, Count: n})
	}
	sort.Slice(s.TopIndicators, func(i, j int) bool {
		a, b := s.TopIndicators[i], s.TopIndicators[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if topN >= 0 && len(s.TopIndicators) > topN {
		s.TopIndicators = s.TopIndicators[:topN]
	}

	return s
}
