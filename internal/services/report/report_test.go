package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
	"sentinel/internal/services/indicators"
	"sentinel/pkg/errors"
)

func newAssembler(t *testing.T, now func() time.Time) *Assembler {
	t.Helper()
	b, err := DefaultBaseline()
	require.NoError(t, err)
	return NewAssembler(b, now)
}

func botInputs() (profile.Meta, *features.Vector, []analysis.Indicator, analysis.ScoreResult) {
	v := features.New(profile.PlatformTwitter)
	v.Set(features.AccountAgeDays, 4)
	v.Set(features.FollowerFollowingRatio, 0.01)
	v.Set(features.PostsPerDay, 40)
	v.Set(features.BioCompleteness, 0)
	v.Set(features.TwitterCreatedAfterAcquisition, 1)

	inds := []analysis.Indicator{
		{Name: indicators.RuleLowBioCompleteness, Severity: analysis.SeverityLow, Description: "Only 0% of profile fields are filled in"},
		{Name: indicators.RuleExcessivePosting, Severity: analysis.SeverityMedium, Description: "Posts 40.0 times per day on average"},
		{Name: indicators.RuleLowAccountAge, Severity: analysis.SeverityHigh, Description: "Account is only 4 days old"},
		{Name: indicators.RuleExtremeFollowerRatio, Severity: analysis.SeverityHigh, Description: "Follows 4,800 accounts but has only 3 followers (ratio 0.00)"},
		{Name: indicators.RuleMachineLikeUsername, Severity: analysis.SeverityLow, Description: "Username contains a run of 8 digits"},
	}
	score := analysis.ScoreResult{Probability: 0.95, RiskLevel: analysis.RiskVeryHigh, IsFake: true, Source: analysis.SourceModel}
	meta := profile.Meta{Platform: profile.PlatformTwitter, Username: "user84736251", ProfileURL: "https://twitter.com/user84736251"}
	return meta, v, inds, score
}

func TestAssemble_RoundTripIgnoringTimestamp(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newAssembler(t, func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	meta, v, inds, score := botInputs()

	first := a.Assemble(meta, v, inds, score)
	second := a.Assemble(meta, v, inds, score)
	assert.NotEqual(t, first.GeneratedAt, second.GeneratedAt)

	first.GeneratedAt, second.GeneratedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)

	a1, err := json.Marshal(first)
	require.NoError(t, err)
	a2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a1), string(a2))
}

func TestSortIndicators_SeverityThenDetectionOrder(t *testing.T) {
	_, _, inds, _ := botInputs()

	got := SortIndicators(inds)
	var order []string
	for _, ind := range got {
		order = append(order, ind.Name)
	}
	assert.Equal(t, []string{
		indicators.RuleLowAccountAge,
		indicators.RuleExtremeFollowerRatio,
		indicators.RuleExcessivePosting,
		indicators.RuleLowBioCompleteness,
		indicators.RuleMachineLikeUsername,
	}, order)
	assert.Equal(t, indicators.RuleLowBioCompleteness, inds[0].Name, "input must not be reordered")
}

func TestCompare_DirectionalSuspicion(t *testing.T) {
	a := newAssembler(t, nil)
	meta, v, _, _ := botInputs()
	v.Set(features.AverageHashtagsPerPost, 1.5)

	byFeature := map[string]analysis.ComparisonMetric{}
	for _, m := range a.Compare(meta.Platform, v) {
		byFeature[m.Feature] = m
	}
	require.Len(t, byFeature, 4)

	ratio := byFeature[features.FollowerFollowingRatio]
	assert.Equal(t, 1.79, ratio.Typical)
	assert.InDelta(t, -99.44, ratio.DiffPercent, 0.01)
	assert.True(t, ratio.IsSuspicious)

	ppd := byFeature[features.PostsPerDay]
	assert.InDelta(t, 7900, ppd.DiffPercent, 0.01)
	assert.True(t, ppd.IsSuspicious)

	bio := byFeature[features.BioCompleteness]
	assert.Equal(t, -100.0, bio.DiffPercent)
	assert.True(t, bio.IsSuspicious)

	// 50% above typical is different but not in the fake direction
	hashtags := byFeature[features.AverageHashtagsPerPost]
	assert.Equal(t, 50.0, hashtags.DiffPercent)
	assert.False(t, hashtags.IsSuspicious)
}

func TestExplain(t *testing.T) {
	meta, _, inds, score := botInputs()
	ordered := SortIndicators(inds)

	t.Run("fake lists three and counts the rest", func(t *testing.T) {
		got := Explain(meta.Platform, score, ordered)
		assert.Equal(t, "This Twitter account is likely fake (very high confidence, 95% probability of being fake). "+
			"Suspicious indicators: Account is only 4 days old (high); "+
			"Follows 4,800 accounts but has only 3 followers (ratio 0.00) (high); "+
			"Posts 40.0 times per day on average (medium), and 2 other suspicious indicators.", got)
	})

	t.Run("authentic without indicators", func(t *testing.T) {
		clean := analysis.ScoreResult{Probability: 0.1, IsFake: false, Source: analysis.SourceHeuristicFallback}
		got := Explain(profile.PlatformInstagram, clean, nil)
		assert.Contains(t, got, "This Instagram account appears authentic (very high confidence, 10% probability of being fake).")
		assert.Contains(t, got, "No significant suspicious patterns were detected.")
		assert.Contains(t, got, "heuristic rules")
	})

	t.Run("authentic with indicators", func(t *testing.T) {
		borderline := analysis.ScoreResult{Probability: 0.45, Source: analysis.SourceModel}
		got := Explain(profile.PlatformFacebook, borderline, ordered[3:])
		assert.Contains(t, got, "moderate confidence")
		assert.Contains(t, got, "may warrant further investigation.")
	})
}

func TestRecommend(t *testing.T) {
	_, _, inds, score := botInputs()

	recs := Recommend(score, SortIndicators(inds))
	require.Len(t, recs, 3)
	assert.Contains(t, recs[0], "Consider blocking and reporting")
	assert.Contains(t, recs[1], "very new")

	assert.Contains(t, Recommend(analysis.ScoreResult{Probability: 0.6, IsFake: true}, nil)[0], "caution")
	assert.Contains(t, Recommend(analysis.ScoreResult{Probability: 0.45}, nil)[0], "Verify")
	assert.Contains(t, Recommend(analysis.ScoreResult{Probability: 0.05}, nil)[0], "legitimate")
}

func TestInsights_OnlyForOwnPlatform(t *testing.T) {
	_, v, _, _ := botInputs()

	tw := Insights(profile.PlatformTwitter, v)
	require.Len(t, tw, 1)
	assert.Equal(t, "Created after acquisition", tw[0].Title)

	ig := features.New(profile.PlatformInstagram)
	ig.Set(features.InstagramIsBusinessAccount, 1)
	ig.Set(features.AverageHashtagsPerPost, 22)
	assert.Len(t, Insights(profile.PlatformInstagram, ig), 2)
	assert.Empty(t, Insights(profile.PlatformTwitter, ig))
}

func TestLoadBaseline(t *testing.T) {
	b, err := LoadBaseline("")
	require.NoError(t, err)
	assert.Len(t, b.Metrics, 4)

	dir := t.TempDir()
	override := filepath.Join(dir, "baseline.yaml")
	require.NoError(t, os.WriteFile(override, []byte(`
version: 2
metrics:
  - feature: bio_completeness
    label: Bio
    suspicious_below_pct: -25
    typical: {twitter: 0.9, instagram: 0.9, facebook: 0.9}
`), 0o600))

	b, err = LoadBaseline(override)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Version)
	require.Len(t, b.Metrics, 1)
	assert.True(t, b.Metrics[0].Suspicious(-30))
	assert.False(t, b.Metrics[0].Suspicious(30))

	_, err = ParseBaseline([]byte("metrics:\n  - feature: shoe_size\n    suspicious_above_pct: 1\n"))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = LoadBaseline(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
