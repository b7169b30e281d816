package indicators

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
)

// Thresholds
const (
	MinAccountAgeDays           = 30
	MinFollowerRatio            = 0.1
	MaxHashtagsPerPost          = 10
	MinBioCompleteness          = 0.4
	MaxShareRatio               = 0.8
	MaxPictureSuspicion         = 0.7
	MaxPostingRegularity        = 0.9
	MaxPostsPerDay              = 20
	MinEngagementRate           = 0.01
	MinFollowersForEngagement   = 100
	MinContentDiversity         = 0.3
	MaxPostingBursts            = 3
	MaxUsernameDigitRatio       = 0.5
	MaxUsernameConsecutiveDigit = 5
	MaxSuspiciousContentScore   = 0.7
	MaxNetworkIsolation         = 0.7

	// minimum sampled posts before activity-based rules apply
	MinSampledPosts = 5
)

// Rule names
const (
	RuleLowAccountAge             = "low_account_age"
	RuleExtremeFollowerRatio      = "extreme_follower_ratio"
	RuleExcessiveHashtags         = "excessive_hashtags"
	RuleLowBioCompleteness        = "low_bio_completeness"
	RuleHighRetweetRatio          = "high_retweet_ratio"
	RuleSuspiciousProfilePicture  = "suspicious_profile_picture"
	RuleAbnormalPostingRegularity = "abnormal_posting_regularity"
	RuleExcessivePosting          = "excessive_posting"
	RuleLowEngagement             = "low_engagement"
	RuleRepetitiveContent         = "repetitive_content"
	RulePostingBursts             = "posting_bursts"
	RuleMachineLikeUsername       = "machine_like_username"
	RuleSuspiciousContent         = "suspicious_content"
	RuleIsolatedNetwork           = "isolated_network"
)

// Values gives rules read access to the features they declared
type Values func(name string) float64

// Rule is one declared heuristic. Fires and Describe only see the features listed in Features.
// The rule is skipped when any feature in Observed holds a default.
type Rule struct {
	Name        string
	Severity    analysis.Severity
	Features    []string
	Observed    []string
	Explanation string
	Fires       func(f Values) bool
	Describe    func(f Values) string
}

func count(x float64) string {
	return humanize.Comma(int64(x))
}

// DefaultRules is the evaluation order
var DefaultRules = []Rule{
	{
		Name:        RuleLowAccountAge,
		Severity:    analysis.SeverityHigh,
		Features:    []string{features.AccountAgeDays},
		Explanation: "Newly created accounts are frequently used for spam, scams and coordinated campaigns.",
		Fires:       func(f Values) bool { return f(features.AccountAgeDays) < MinAccountAgeDays },
		Describe: func(f Values) string {
			return fmt.Sprintf("Account is only %s days old", count(f(features.AccountAgeDays)))
		},
	},
	{
		Name:        RuleExtremeFollowerRatio,
		Severity:    analysis.SeverityHigh,
		Features:    []string{features.FollowerFollowingRatio, features.FollowersCount, features.FollowingCount},
		Observed:    []string{features.FollowersCount, features.FollowingCount},
		Explanation: "Following far more accounts than follow back is typical of follow-for-follow bots.",
		Fires:       func(f Values) bool { return f(features.FollowerFollowingRatio) < MinFollowerRatio },
		Describe: func(f Values) string {
			return fmt.Sprintf("Follows %s accounts but has only %s followers (ratio %.2f)",
				count(f(features.FollowingCount)), count(f(features.FollowersCount)), f(features.FollowerFollowingRatio))
		},
	},
	{
		Name:        RuleExcessiveHashtags,
		Severity:    analysis.SeverityMedium,
		Features:    []string{features.AverageHashtagsPerPost},
		Explanation: "Stuffing posts with hashtags is a common reach-farming and spam technique.",
		Fires:       func(f Values) bool { return f(features.AverageHashtagsPerPost) > MaxHashtagsPerPost },
		Describe: func(f Values) string {
			return fmt.Sprintf("Uses %.1f hashtags per post on average", f(features.AverageHashtagsPerPost))
		},
	},
	{
		Name:        RuleLowBioCompleteness,
		Severity:    analysis.SeverityLow,
		Features:    []string{features.BioCompleteness},
		Explanation: "Fake accounts often leave bio, location and website empty.",
		Fires:       func(f Values) bool { return f(features.BioCompleteness) < MinBioCompleteness },
		Describe: func(f Values) string {
			return fmt.Sprintf("Only %.0f%% of profile fields are filled in", f(features.BioCompleteness)*100)
		},
	},
	{
		Name:        RuleHighRetweetRatio,
		Severity:    analysis.SeverityMedium,
		Features:    []string{features.RetweetOrShareRatio, features.SampledPostCount},
		Explanation: "Accounts that almost only reshare are often amplification bots.",
		Fires: func(f Values) bool {
			return f(features.SampledPostCount) >= MinSampledPosts && f(features.RetweetOrShareRatio) > MaxShareRatio
		},
		Describe: func(f Values) string {
			return fmt.Sprintf("%.0f%% of recent posts are reshares", f(features.RetweetOrShareRatio)*100)
		},
	},
	{
		Name:        RuleSuspiciousProfilePicture,
		Severity:    analysis.SeverityHigh,
		Features:    []string{features.ProfilePictureSuspicion},
		Explanation: "Stock, generated or placeholder pictures are commonly used by fake accounts.",
		Fires:       func(f Values) bool { return f(features.ProfilePictureSuspicion) > MaxPictureSuspicion },
		Describe: func(f Values) string {
			return fmt.Sprintf("Profile picture suspicion score is %.2f", f(features.ProfilePictureSuspicion))
		},
	},
	{
		Name:        RuleAbnormalPostingRegularity,
		Severity:    analysis.SeverityMedium,
		Features:    []string{features.PostingRegularity, features.SampledPostCount},
		Explanation: "Humans post irregularly, evenly spaced posts suggest a scheduler or a bot.",
		Fires: func(f Values) bool {
			return f(features.SampledPostCount) >= MinSampledPosts && f(features.PostingRegularity) > MaxPostingRegularity
		},
		Describe: func(f Values) string {
			return fmt.Sprintf("Posting intervals are unusually regular (%.2f)", f(features.PostingRegularity))
		},
	},
	{
		Name:        RuleExcessivePosting,
		Severity:    analysis.SeverityMedium,
		Features:    []string{features.PostsPerDay},
		Explanation: "Sustained posting volumes this high are rarely achieved by a person.",
		Fires:       func(f Values) bool { return f(features.PostsPerDay) > MaxPostsPerDay },
		Describe: func(f Values) string {
			return fmt.Sprintf("Posts %.1f times per day on average", f(features.PostsPerDay))
		},
	},
	{
		Name:        RuleLowEngagement,
		Severity:    analysis.SeverityMedium,
		Features:    []string{features.EngagementRate, features.FollowersCount, features.SampledPostCount},
		Observed:    []string{features.FollowersCount},
		Explanation: "A large audience that never interacts usually means purchased or fake followers.",
		Fires: func(f Values) bool {
			return f(features.FollowersCount) >= MinFollowersForEngagement &&
				f(features.SampledPostCount) >= MinSampledPosts &&
				f(features.EngagementRate) < MinEngagementRate
		},
		Describe: func(f Values) string {
			return fmt.Sprintf("Engagement rate is %.2f%% with %s followers",
				f(features.EngagementRate)*100, count(f(features.FollowersCount)))
		},
	},
	{
		Name:        RuleRepetitiveContent,
		Severity:    analysis.SeverityMedium,
		Features:    []string{features.ContentDiversity, features.SampledPostCount},
		Explanation: "Posting the same text over and over is characteristic of spam automation.",
		Fires: func(f Values) bool {
			return f(features.SampledPostCount) >= MinSampledPosts && f(features.ContentDiversity) < MinContentDiversity
		},
		Describe: func(f Values) string {
			return fmt.Sprintf("Only %.0f%% of recent posts have distinct text", f(features.ContentDiversity)*100)
		},
	},
	{
		Name:        RulePostingBursts,
		Severity:    analysis.SeverityLow,
		Features:    []string{features.PostingBursts},
		Explanation: "Several posts within minutes, repeatedly, points to scripted activity.",
		Fires:       func(f Values) bool { return f(features.PostingBursts) >= MaxPostingBursts },
		Describe: func(f Values) string {
			return fmt.Sprintf("Detected %s posting bursts", count(f(features.PostingBursts)))
		},
	},
	{
		Name:        RuleMachineLikeUsername,
		Severity:    analysis.SeverityLow,
		Features:    []string{features.UsernameDigitRatio, features.UsernameMaxConsecutiveDigits},
		Explanation: "Auto-generated usernames tend to end in long digit sequences.",
		Fires: func(f Values) bool {
			return f(features.UsernameDigitRatio) > MaxUsernameDigitRatio ||
				f(features.UsernameMaxConsecutiveDigits) >= MaxUsernameConsecutiveDigit
		},
		Describe: func(f Values) string {
			return fmt.Sprintf("Username contains a run of %s digits", count(f(features.UsernameMaxConsecutiveDigits)))
		},
	},
	{
		Name:        RuleSuspiciousContent,
		Severity:    analysis.SeverityHigh,
		Features:    []string{features.SuspiciousContentScore},
		Explanation: "Money offers, calls to action and copy-pasted promotions are hallmarks of spam accounts.",
		Fires:       func(f Values) bool { return f(features.SuspiciousContentScore) > MaxSuspiciousContentScore },
		Describe: func(f Values) string {
			return fmt.Sprintf("Post content scores %.2f for spam patterns", f(features.SuspiciousContentScore))
		},
	},
	{
		Name:        RuleIsolatedNetwork,
		Severity:    analysis.SeverityHigh,
		Features:    []string{features.NetworkIsolationScore, features.FollowersCount},
		Observed:    []string{features.FollowersCount, features.FollowingCount},
		Explanation: "Accounts with almost no audience that follow thousands rarely interact with real users.",
		Fires:       func(f Values) bool { return f(features.NetworkIsolationScore) > MaxNetworkIsolation },
		Describe: func(f Values) string {
			return fmt.Sprintf("Network isolation score is %.2f with %s followers",
				f(features.NetworkIsolationScore), count(f(features.FollowersCount)))
		},
	},
}
