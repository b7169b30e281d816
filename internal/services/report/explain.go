package report

import (
	"fmt"
	"strings"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
	"sentinel/internal/services/indicators"
)

const (
	fakeListed      = 3
	authenticListed = 2

	insightShareRatio       = 0.8
	insightHashtagsPerPost  = 15
	insightFacebookDetails  = 0.25
	insightFacebookPageLike = 10
)

// ConfidenceLabel words how sure the verdict is
func ConfidenceLabel(score analysis.ScoreResult) string {
	c := score.Probability
	if !score.IsFake {
		c = 1 - c
	}
	switch {
	case c >= 0.9:
		return "very high confidence"
	case c >= 0.7:
		return "high confidence"
	case c >= 0.4:
		return "moderate confidence"
	default:
		return "low confidence"
	}
}

// Explain renders the verdict and the most severe indicators as one paragraph
func Explain(platform profile.Platform, score analysis.ScoreResult, ordered []analysis.Indicator) string {
	var b strings.Builder
	name := platformTitle(platform)

	if score.IsFake {
		fmt.Fprintf(&b, "This %s account is likely fake (%s, %.0f%% probability of being fake).",
			name, ConfidenceLabel(score), score.Probability*100)
		if len(ordered) > 0 {
			b.WriteString(" Suspicious indicators: ")
			b.WriteString(listIndicators(ordered, fakeListed))
			if extra := len(ordered) - fakeListed; extra > 0 {
				fmt.Fprintf(&b, ", and %d other suspicious indicators", extra)
			}
			b.WriteString(".")
		}
	} else {
		fmt.Fprintf(&b, "This %s account appears authentic (%s, %.0f%% probability of being fake).",
			name, ConfidenceLabel(score), score.Probability*100)
		if len(ordered) > 0 {
			b.WriteString(" Some patterns were flagged: ")
			b.WriteString(listIndicators(ordered, authenticListed))
			b.WriteString(". These patterns are not sufficient to classify the account as fake, but may warrant further investigation.")
		} else {
			b.WriteString(" No significant suspicious patterns were detected.")
		}
	}

	if score.Source == analysis.SourceHeuristicFallback {
		b.WriteString(" The score was computed from heuristic rules because the trained model was unavailable.")
	}
	return b.String()
}

func listIndicators(ordered []analysis.Indicator, limit int) string {
	if len(ordered) < limit {
		limit = len(ordered)
	}
	parts := make([]string, 0, limit)
	for _, ind := range ordered[:limit] {
		parts = append(parts, fmt.Sprintf("%s (%s)", ind.Description, ind.Severity))
	}
	return strings.Join(parts, "; ")
}

var indicatorHints = map[string]string{
	indicators.RuleLowAccountAge:            "The account is very new; wait for a longer activity history before trusting it.",
	indicators.RuleSuspiciousProfilePicture: "Run a reverse image search on the profile picture.",
	indicators.RuleRepetitiveContent:        "Review recent posts for spam, scam links or copied content.",
	indicators.RuleExtremeFollowerRatio:     "Check whether the followers are real, active accounts.",
	indicators.RuleSuspiciousContent:        "Do not follow links or offers posted by this account.",
	indicators.RuleIsolatedNetwork:          "Look for mutual connections before accepting requests from this account.",
}

// Recommend returns the verdict recommendation followed by per-indicator hints in indicator order
func Recommend(score analysis.ScoreResult, ordered []analysis.Indicator) []string {
	p := score.Probability
	var recs []string
	switch {
	case score.IsFake && p > 0.9:
		recs = append(recs, "This account is highly likely fake. Consider blocking and reporting it to the platform.")
	case score.IsFake:
		recs = append(recs, "Exercise caution when interacting with this account.")
	case p > 0.4:
		recs = append(recs, "Verify the account's identity through other channels before engaging.")
	default:
		recs = append(recs, "This account appears legitimate based on the available data.")
	}

	seen := make(map[string]bool)
	for _, ind := range ordered {
		hint, ok := indicatorHints[ind.Name]
		if !ok || seen[ind.Name] {
			continue
		}
		seen[ind.Name] = true
		recs = append(recs, hint)
	}
	return recs
}

// Insights returns platform-specific observations for the profile's platform only
func Insights(platform profile.Platform, v *features.Vector) []analysis.PlatformInsight {
	out := make([]analysis.PlatformInsight, 0)
	get := func(name string) float64 {
		val, _ := v.Get(name)
		return val
	}

	switch platform {
	case profile.PlatformTwitter:
		if get(features.TwitterCreatedAfterAcquisition) == 1 {
			out = append(out, analysis.PlatformInsight{
				Title:       "Created after acquisition",
				Description: "The account was created after October 27, 2022, when verification and moderation policies changed.",
			})
		}
		if get(features.RetweetOrShareRatio) > insightShareRatio {
			out = append(out, analysis.PlatformInsight{
				Title:       "High retweet ratio",
				Description: fmt.Sprintf("%.0f%% of recent tweets are retweets, typical of amplification accounts.", get(features.RetweetOrShareRatio)*100),
			})
		}

	case profile.PlatformInstagram:
		if get(features.InstagramIsBusinessAccount) == 1 {
			out = append(out, analysis.PlatformInsight{
				Title:       "Business account",
				Description: "Business accounts are sometimes used for promotion networks and follower farming.",
			})
		}
		if get(features.AverageHashtagsPerPost) > insightHashtagsPerPost {
			out = append(out, analysis.PlatformInsight{
				Title:       "Excessive hashtags",
				Description: fmt.Sprintf("Posts carry %.1f hashtags on average, well above typical usage.", get(features.AverageHashtagsPerPost)),
			})
		}

	case profile.PlatformFacebook:
		if get(features.FacebookProfileDetailsCompleteness) < insightFacebookDetails {
			out = append(out, analysis.PlatformInsight{
				Title:       "Sparse profile details",
				Description: "Work, education, relationship and location fields are mostly empty.",
			})
		}
		if get(features.FacebookPageLikeRatio) > insightFacebookPageLike {
			out = append(out, analysis.PlatformInsight{
				Title:       "High page like ratio",
				Description: fmt.Sprintf("The profile likes %.1f pages per friend.", get(features.FacebookPageLikeRatio)),
			})
		}
	}
	return out
}

func platformTitle(p profile.Platform) string {
	switch p {
	case profile.PlatformTwitter:
		return "Twitter"
	case profile.PlatformInstagram:
		return "Instagram"
	case profile.PlatformFacebook:
		return "Facebook"
	}
	return string(p)
}
