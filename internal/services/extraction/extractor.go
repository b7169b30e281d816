package extraction

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// TwitterAcquisitionDate is the day the platform changed ownership
var TwitterAcquisitionDate = time.Date(2022, time.October, 27, 0, 0, 0, 0, time.UTC)

// SentimentScorer scores free text in [-1, 1]
type SentimentScorer interface {
	ScoreText(ctx context.Context, text string) (float64, error)
}

// ImageScorer scores how likely a profile picture is fake, in [0, 1]
type ImageScorer interface {
	ScoreImage(ctx context.Context, url string) (float64, error)
}

// Extractor turns raw profile records into schema v1 feature vectors.
// Scorers are optional; nil scorers leave their features at the default.
type Extractor struct {
	sentiment SentimentScorer
	images    ImageScorer
	log       *logger.Logger
}

// NewExtractor creates a new feature extractor
func NewExtractor(sentiment SentimentScorer, images ImageScorer, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Get()
	}
	return &Extractor{
		sentiment: sentiment,
		images:    images,
		log:       log.With("component", "feature_extractor"),
	}
}

// Extract computes every schema feature. It fails only on structurally invalid records.
func (e *Extractor) Extract(ctx context.Context, rec *profile.RawProfileRecord) (*features.Vector, error) {
	if err := profile.Validate(rec); err != nil {
		return nil, errors.Wrap(err, "invalid profile record")
	}

	v := features.New(rec.Platform)

	e.extractCore(v, rec)
	e.extractContent(ctx, v, rec)
	e.extractProfile(ctx, v, rec)
	extractActivity(v, rec.Posts)
	extractUsername(v, rec.Username)
	extractPlatform(v, rec)

	if len(v.Defaulted) > 0 {
		e.log.Debugw("Features defaulted",
			"platform", rec.Platform,
			"username", rec.Username,
			"defaulted", v.Defaulted,
		)
	}

	return v, nil
}

func (e *Extractor) extractCore(v *features.Vector, rec *profile.RawProfileRecord) {
	setCount(v, features.AccountAgeDays, rec.AccountAgeDays)
	setCount(v, features.FollowersCount, rec.FollowersCount)
	setCount(v, features.FollowingCount, rec.FollowingCount)

	// both sides must be observed, a ratio against a defaulted count is made up
	if rec.FollowersCount < 0 || rec.FollowingCount < 0 {
		v.SetDefault(features.FollowerFollowingRatio)
		v.SetDefault(features.NetworkIsolationScore)
	} else {
		followers, following := float64(rec.FollowersCount), float64(rec.FollowingCount)
		v.Set(features.FollowerFollowingRatio, followers/(following+1))
		v.Set(features.NetworkIsolationScore, networkIsolation(followers, following))
	}

	switch {
	case rec.PostCount >= 0:
		v.Set(features.PostCount, float64(rec.PostCount))
	case len(rec.Posts) > 0:
		v.Set(features.PostCount, float64(len(rec.Posts)))
	default:
		v.SetDefault(features.PostCount)
	}
	v.Set(features.SampledPostCount, float64(len(rec.Posts)))

	age, _ := v.Get(features.AccountAgeDays)
	posts, _ := v.Get(features.PostCount)
	v.Set(features.PostsPerDay, posts/math.Max(age, 1))
}

func (e *Extractor) extractContent(ctx context.Context, v *features.Vector, rec *profile.RawProfileRecord) {
	posts := rec.Posts
	if len(posts) == 0 {
		for _, name := range []string{
			features.AverageHashtagsPerPost, features.AverageMentionsPerPost, features.URLsPerPost,
			features.AveragePostLength, features.AverageSentiment, features.RetweetOrShareRatio,
			features.EngagementRate, features.MediaPostRatio, features.ContentDiversity,
			features.SuspiciousContentScore,
		} {
			v.SetDefault(name)
		}
		return
	}

	n := float64(len(posts))
	var hashtags, mentions, urls, length, shares, media, interactions int
	for _, p := range posts {
		hashtags += len(hashtagPattern.FindAllString(p.Text, -1))
		mentions += len(mentionPattern.FindAllString(p.Text, -1))
		urls += len(urlPattern.FindAllString(p.Text, -1))
		length += utf8.RuneCountInString(p.Text)
		interactions += nonNegative(p.Likes) + nonNegative(p.Comments) + nonNegative(p.Shares)
		if p.IsShare {
			shares++
		}
		if p.HasMedia {
			media++
		}
	}

	v.Set(features.AverageHashtagsPerPost, float64(hashtags)/n)
	v.Set(features.AverageMentionsPerPost, float64(mentions)/n)
	v.Set(features.URLsPerPost, float64(urls)/n)
	v.Set(features.AveragePostLength, float64(length)/n)
	v.Set(features.RetweetOrShareRatio, float64(shares)/n)
	v.Set(features.MediaPostRatio, float64(media)/n)

	if rec.FollowersCount > 0 {
		v.Set(features.EngagementRate, float64(interactions)/n/float64(rec.FollowersCount))
	} else {
		v.SetDefault(features.EngagementRate)
	}

	if diversity, ok := contentDiversity(posts); ok {
		v.Set(features.ContentDiversity, diversity)
	} else {
		v.SetDefault(features.ContentDiversity)
	}

	if sentiment, ok := e.averageSentiment(ctx, posts); ok {
		v.Set(features.AverageSentiment, sentiment)
	} else {
		v.SetDefault(features.AverageSentiment)
	}

	sentiment, _ := v.Get(features.AverageSentiment)
	diversity, _ := v.Get(features.ContentDiversity)
	if score, ok := suspiciousContent(posts, sentiment, diversity); ok {
		v.Set(features.SuspiciousContentScore, score)
	} else {
		v.SetDefault(features.SuspiciousContentScore)
	}
}

// averageSentiment skips posts the scorer fails on
func (e *Extractor) averageSentiment(ctx context.Context, posts []profile.RawPost) (float64, bool) {
	if e.sentiment == nil {
		return 0, false
	}

	var sum float64
	var scored int
	for _, p := range posts {
		if p.Text == "" {
			continue
		}
		s, err := e.sentiment.ScoreText(ctx, p.Text)
		if err != nil || math.IsNaN(s) {
			e.log.Debugw("Sentiment scoring failed", "error", err)
			continue
		}
		sum += clamp(s, -1, 1)
		scored++
	}
	if scored == 0 {
		return 0, false
	}
	return sum / float64(scored), true
}

func (e *Extractor) extractProfile(ctx context.Context, v *features.Vector, rec *profile.RawProfileRecord) {
	populated := 0
	for _, field := range []string{rec.BioText, rec.DisplayName, rec.Location, rec.Website, rec.ProfilePictureURL} {
		if field != "" {
			populated++
		}
	}
	v.Set(features.BioCompleteness, float64(populated)/5)
	v.Set(features.BioLength, float64(utf8.RuneCountInString(rec.BioText)))
	v.Set(features.HasExternalURL, boolToFloat(rec.Website != "" || urlPattern.MatchString(rec.BioText)))
	v.Set(features.IsVerified, boolToFloat(rec.Verified))

	if e.images == nil || rec.ProfilePictureURL == "" {
		v.SetDefault(features.ProfilePictureSuspicion)
		return
	}
	score, err := e.images.ScoreImage(ctx, rec.ProfilePictureURL)
	if err != nil || math.IsNaN(score) {
		e.log.Debugw("Image analysis failed", "username", rec.Username, "error", err)
		v.SetDefault(features.ProfilePictureSuspicion)
		return
	}
	v.Set(features.ProfilePictureSuspicion, clamp(score, 0, 1))
}

func extractUsername(v *features.Vector, username string) {
	var digits, run, maxRun, total int
	for _, r := range username {
		total++
		if r >= '0' && r <= '9' {
			digits++
			run++
			if run > maxRun {
				maxRun = run
			}
			continue
		}
		run = 0
	}
	if total == 0 {
		v.SetDefault(features.UsernameDigitRatio)
		v.SetDefault(features.UsernameMaxConsecutiveDigits)
		return
	}
	v.Set(features.UsernameDigitRatio, float64(digits)/float64(total))
	v.Set(features.UsernameMaxConsecutiveDigits, float64(maxRun))
}

func extractPlatform(v *features.Vector, rec *profile.RawProfileRecord) {
	v.Set(features.PlatformTwitter, boolToFloat(rec.Platform == profile.PlatformTwitter))
	v.Set(features.PlatformInstagram, boolToFloat(rec.Platform == profile.PlatformInstagram))
	v.Set(features.PlatformFacebook, boolToFloat(rec.Platform == profile.PlatformFacebook))

	// other platforms keep the neutral defaults
	switch rec.Platform {
	case profile.PlatformTwitter:
		if rec.FetchedAt.IsZero() || rec.AccountAgeDays < 0 {
			v.SetDefault(features.TwitterCreatedAfterAcquisition)
		} else {
			created := rec.FetchedAt.AddDate(0, 0, -rec.AccountAgeDays)
			v.Set(features.TwitterCreatedAfterAcquisition, boolToFloat(created.After(TwitterAcquisitionDate)))
		}
		v.Set(features.TwitterDefaultProfileImage,
			boolToFloat(rec.ProfilePictureURL == "" || profile.IsDefaultPictureURL(rec.ProfilePictureURL)))

	case profile.PlatformInstagram:
		v.Set(features.InstagramIsBusinessAccount, boolToFloat(rec.Attributes.IsBusinessAccount))
		if rec.FollowersCount < 0 || v.IsDefaulted(features.PostCount) {
			v.SetDefault(features.InstagramPostToFollowerRatio)
		} else {
			posts, _ := v.Get(features.PostCount)
			v.Set(features.InstagramPostToFollowerRatio, posts/float64(rec.FollowersCount+1))
		}

	case profile.PlatformFacebook:
		filled := 0
		for _, field := range []string{rec.Attributes.Work, rec.Attributes.Education, rec.Attributes.RelationshipStatus, rec.Location} {
			if field != "" {
				filled++
			}
		}
		v.Set(features.FacebookProfileDetailsCompleteness, float64(filled)/4)
		if rec.Attributes.PageLikesCount > 0 && rec.FollowersCount >= 0 {
			v.Set(features.FacebookPageLikeRatio, float64(rec.Attributes.PageLikesCount)/float64(rec.FollowersCount+1))
		} else {
			v.SetDefault(features.FacebookPageLikeRatio)
		}
	}
}

// setCount stores a raw count, substituting the default for Unknown values
func setCount(v *features.Vector, name string, count int) {
	if count < 0 {
		v.SetDefault(name)
		return
	}
	v.Set(name, float64(count))
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
