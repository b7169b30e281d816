package features

import (
	"math"
	"sort"

	"sentinel/internal/domain/profile"
)

// SchemaVersion is bumped whenever a feature is added, removed or re-encoded
const SchemaVersion = "v1"

// Feature names of schema v1
const (
	// Core
	AccountAgeDays         = "account_age_days"
	FollowersCount         = "followers_count"
	FollowingCount         = "following_count"
	FollowerFollowingRatio = "follower_following_ratio"
	PostCount              = "post_count"
	SampledPostCount       = "sampled_post_count"
	PostsPerDay            = "posts_per_day"

	// Content
	AverageHashtagsPerPost = "average_hashtags_per_post"
	AverageMentionsPerPost = "average_mentions_per_post"
	URLsPerPost            = "urls_per_post"
	AveragePostLength      = "average_post_length"
	AverageSentiment       = "average_sentiment"
	RetweetOrShareRatio    = "retweet_or_share_ratio"
	EngagementRate         = "engagement_rate"
	SuspiciousContentScore = "suspicious_content_score"

	// Profile
	BioCompleteness         = "bio_completeness"
	BioLength               = "bio_length"
	HasExternalURL          = "has_external_url"
	ProfilePictureSuspicion = "profile_picture_suspicion"
	IsVerified              = "is_verified"

	// Activity
	MediaPostRatio          = "media_post_ratio"
	ContentDiversity        = "content_diversity"
	PostingRegularity       = "posting_regularity"
	PostingTimeEntropy      = "posting_time_entropy"
	TimeConsistency         = "time_consistency"
	PostingBursts           = "posting_bursts"
	MedianHoursBetweenPosts = "median_hours_between_posts"

	// Network
	NetworkIsolationScore = "network_isolation_score"

	// Username
	UsernameDigitRatio           = "username_digit_ratio"
	UsernameMaxConsecutiveDigits = "username_max_consecutive_digits"

	// Platform one-hot
	PlatformTwitter   = "platform_twitter"
	PlatformInstagram = "platform_instagram"
	PlatformFacebook  = "platform_facebook"

	// Platform-specific, neutral on other platforms
	TwitterCreatedAfterAcquisition     = "twitter_created_after_acquisition"
	TwitterDefaultProfileImage         = "twitter_default_profile_image"
	InstagramIsBusinessAccount         = "instagram_is_business_account"
	InstagramPostToFollowerRatio       = "instagram_post_to_follower_ratio"
	FacebookProfileDetailsCompleteness = "facebook_profile_details_completeness"
	FacebookPageLikeRatio              = "facebook_page_like_ratio"
)

// Defaults is the value each feature takes when its source data is missing
var Defaults = map[string]float64{
	AccountAgeDays:         365,
	FollowersCount:         0,
	FollowingCount:         0,
	FollowerFollowingRatio: 1,
	PostCount:              0,
	SampledPostCount:       0,
	PostsPerDay:            0,

	AverageHashtagsPerPost: 0,
	AverageMentionsPerPost: 0,
	URLsPerPost:            0,
	AveragePostLength:      0,
	AverageSentiment:       0,
	RetweetOrShareRatio:    0,
	EngagementRate:         0,
	SuspiciousContentScore: 0,

	BioCompleteness:         0,
	BioLength:               0,
	HasExternalURL:          0,
	ProfilePictureSuspicion: 0,
	IsVerified:              0,

	MediaPostRatio:          0,
	ContentDiversity:        1,
	PostingRegularity:       0.5,
	PostingTimeEntropy:      0,
	TimeConsistency:         0.5,
	PostingBursts:           0,
	MedianHoursBetweenPosts: 24,

	NetworkIsolationScore: 0,

	UsernameDigitRatio:           0,
	UsernameMaxConsecutiveDigits: 0,

	PlatformTwitter:   0,
	PlatformInstagram: 0,
	PlatformFacebook:  0,

	TwitterCreatedAfterAcquisition:     0,
	TwitterDefaultProfileImage:         0,
	InstagramIsBusinessAccount:         0,
	InstagramPostToFollowerRatio:       0,
	FacebookProfileDetailsCompleteness: 0,
	FacebookPageLikeRatio:              0,
}

// ModelInputOrder is the column order the trained classifier expects.
// Order must match the training export; append only.
var ModelInputOrder = []string{
	AccountAgeDays, FollowersCount, FollowingCount, FollowerFollowingRatio,
	PostCount, SampledPostCount, PostsPerDay,
	AverageHashtagsPerPost, AverageMentionsPerPost, URLsPerPost, AveragePostLength,
	AverageSentiment, RetweetOrShareRatio, EngagementRate,
	BioCompleteness, BioLength, HasExternalURL, ProfilePictureSuspicion, IsVerified,
	MediaPostRatio, ContentDiversity, PostingRegularity, PostingTimeEntropy,
	TimeConsistency, PostingBursts, MedianHoursBetweenPosts,
	UsernameDigitRatio, UsernameMaxConsecutiveDigits,
	PlatformTwitter, PlatformInstagram, PlatformFacebook,
	TwitterCreatedAfterAcquisition, TwitterDefaultProfileImage,
	InstagramIsBusinessAccount, InstagramPostToFollowerRatio,
	FacebookProfileDetailsCompleteness, FacebookPageLikeRatio,
	SuspiciousContentScore, NetworkIsolationScore,
}

// Vector is the fixed-schema encoding of one profile
type Vector struct {
	Version  string             `json:"version"`
	Platform profile.Platform   `json:"platform"`
	Values   map[string]float64 `json:"values"`

	// Defaulted lists features whose source data was missing, sorted
	Defaulted []string `json:"defaulted,omitempty"`
}

// New returns a vector pre-filled with every default
func New(platform profile.Platform) *Vector {
	values := make(map[string]float64, len(Defaults))
	for name, def := range Defaults {
		values[name] = def
	}
	return &Vector{
		Version:  SchemaVersion,
		Platform: platform,
		Values:   values,
	}
}

// Get returns a feature value and whether it is present
func (v *Vector) Get(name string) (float64, bool) {
	if v == nil || v.Values == nil {
		return 0, false
	}
	val, ok := v.Values[name]
	return val, ok
}

// Set stores a computed value. Non-finite values fall back to the default.
func (v *Vector) Set(name string, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		v.SetDefault(name)
		return
	}
	v.Values[name] = value
}

// SetDefault stores the documented default and records the substitution
func (v *Vector) SetDefault(name string) {
	v.Values[name] = Defaults[name]
	for _, d := range v.Defaulted {
		if d == name {
			return
		}
	}
	v.Defaulted = append(v.Defaulted, name)
	sort.Strings(v.Defaulted)
}

// IsDefaulted reports whether name holds a default instead of observed data
func (v *Vector) IsDefaulted(name string) bool {
	if v == nil {
		return false
	}
	i := sort.SearchStrings(v.Defaulted, name)
	return i < len(v.Defaulted) && v.Defaulted[i] == name
}

// Encode returns the numeric model input in ModelInputOrder
func (v *Vector) Encode() []float32 {
	out := make([]float32, len(ModelInputOrder))
	for i, name := range ModelInputOrder {
		val, ok := v.Get(name)
		if !ok {
			val = Defaults[name]
		}
		out[i] = float32(val)
	}
	return out
}

// Complete reports whether every schema feature is present
func (v *Vector) Complete() bool {
	for name := range Defaults {
		if _, ok := v.Get(name); !ok {
			return false
		}
	}
	return true
}
