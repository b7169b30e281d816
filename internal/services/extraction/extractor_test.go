package extraction

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
	"sentinel/internal/services/indicators"
	"sentinel/internal/testsupport"
	"sentinel/pkg/errors"
)

type mockSentiment struct {
	mock.Mock
}

func (m *mockSentiment) ScoreText(ctx context.Context, text string) (float64, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(float64), args.Error(1)
}

type stubImages struct {
	score float64
	err   error
}

func (s stubImages) ScoreImage(context.Context, string) (float64, error) {
	return s.score, s.err
}

func value(t *testing.T, v *features.Vector, name string) float64 {
	t.Helper()
	val, ok := v.Get(name)
	require.True(t, ok, "feature %s missing", name)
	return val
}

func TestExtract_CompleteAndDeterministic(t *testing.T) {
	ex := NewExtractor(nil, stubImages{score: 0.2}, testsupport.Logger(t))
	rec := testsupport.NewRecord(profile.PlatformTwitter, "jamie").DailyPosts(12).Build()

	first, err := ex.Extract(context.Background(), rec)
	require.NoError(t, err)
	second, err := ex.Extract(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, first.Complete())
	assert.Len(t, first.Values, len(features.Defaults))
	assert.Equal(t, first, second)
	assert.Equal(t, features.SchemaVersion, first.Version)

	assert.InDelta(t, 400.0/400.0, value(t, first, features.FollowerFollowingRatio), 1e-9)
	assert.InDelta(t, 365.0/730.0, value(t, first, features.PostsPerDay), 1e-9)
	assert.InDelta(t, 1.0, value(t, first, features.BioCompleteness), 1e-9)
	assert.InDelta(t, 1.0, value(t, first, features.AverageHashtagsPerPost), 1e-9)
	assert.InDelta(t, 0.2, value(t, first, features.ProfilePictureSuspicion), 1e-9)
	assert.Equal(t, 1.0, value(t, first, features.PlatformTwitter))
	assert.Equal(t, 0.0, value(t, first, features.InstagramIsBusinessAccount))
	assert.Equal(t, 0.0, value(t, first, features.TwitterCreatedAfterAcquisition))
	assert.Equal(t, []string{features.AverageSentiment}, first.Defaulted)
}

func TestExtract_RatioFiniteWithZeroFollowing(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))

	for _, counts := range [][2]int{{0, 0}, {1000000, 0}, {0, 5000}} {
		rec := testsupport.NewRecord(profile.PlatformInstagram, "jamie").Followers(counts[0], counts[1]).Build()
		v, err := ex.Extract(context.Background(), rec)
		require.NoError(t, err)

		ratio := value(t, v, features.FollowerFollowingRatio)
		assert.False(t, math.IsInf(ratio, 0) || math.IsNaN(ratio))
		assert.GreaterOrEqual(t, ratio, 0.0)
		assert.InDelta(t, float64(counts[0])/float64(counts[1]+1), ratio, 1e-9)
	}
}

func TestExtract_SparseRecordUsesDefaults(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))
	rec := profile.NewRecord(profile.PlatformFacebook, "100012345")

	v, err := ex.Extract(context.Background(), &rec)
	require.NoError(t, err)

	assert.True(t, v.Complete())
	assert.Equal(t, 365.0, value(t, v, features.AccountAgeDays))
	assert.Equal(t, 1.0, value(t, v, features.FollowerFollowingRatio))
	assert.Equal(t, 0.5, value(t, v, features.PostingRegularity))
	assert.Equal(t, 0.0, value(t, v, features.ProfilePictureSuspicion))
	assert.Equal(t, 1.0, value(t, v, features.PlatformFacebook))
	assert.Contains(t, v.Defaulted, features.AccountAgeDays)
	assert.Contains(t, v.Defaulted, features.FacebookPageLikeRatio)
	assert.NotContains(t, v.Defaulted, features.TwitterCreatedAfterAcquisition)
}

func TestExtract_InvalidRecord(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))
	rec := profile.NewRecord(profile.PlatformTwitter, "")

	_, err := ex.Extract(context.Background(), &rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestExtract_SentimentSkipsFailuresAndClamps(t *testing.T) {
	sentiment := &mockSentiment{}
	sentiment.On("ScoreText", mock.Anything, "great").Return(3.0, nil)
	sentiment.On("ScoreText", mock.Anything, "meh").Return(0.0, errors.ErrTransient)
	sentiment.On("ScoreText", mock.Anything, "awful").Return(-0.5, nil)

	ex := NewExtractor(sentiment, nil, testsupport.Logger(t))
	rec := testsupport.NewRecord(profile.PlatformTwitter, "jamie").Posts(
		profile.RawPost{Text: "great"},
		profile.RawPost{Text: "meh"},
		profile.RawPost{Text: "awful"},
		profile.RawPost{Text: ""},
	).Build()

	v, err := ex.Extract(context.Background(), rec)
	require.NoError(t, err)

	assert.InDelta(t, 0.25, value(t, v, features.AverageSentiment), 1e-9)
	sentiment.AssertNumberOfCalls(t, "ScoreText", 3)
}

func TestExtract_ImageFailureIsZero(t *testing.T) {
	ex := NewExtractor(nil, stubImages{err: errors.ErrTransient}, testsupport.Logger(t))
	rec := testsupport.NewRecord(profile.PlatformInstagram, "jamie").Build()

	v, err := ex.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 0.0, value(t, v, features.ProfilePictureSuspicion))
}

func TestExtract_PlatformSpecific(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))

	tw, err := ex.Extract(context.Background(), testsupport.NewBot(profile.PlatformTwitter, "user84736251").Build())
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, tw, features.TwitterCreatedAfterAcquisition))
	assert.Equal(t, 1.0, value(t, tw, features.TwitterDefaultProfileImage))
	assert.Equal(t, 8.0, value(t, tw, features.UsernameMaxConsecutiveDigits))

	ig, err := ex.Extract(context.Background(), testsupport.NewRecord(profile.PlatformInstagram, "shop").
		Attributes(profile.Attributes{IsBusinessAccount: true}).Build())
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, ig, features.InstagramIsBusinessAccount))
	assert.Equal(t, 0.0, value(t, ig, features.TwitterDefaultProfileImage))

	fb, err := ex.Extract(context.Background(), testsupport.NewRecord(profile.PlatformFacebook, "jamie").
		Attributes(profile.Attributes{Work: "ACME", PageLikesCount: 4010}).Build())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, value(t, fb, features.FacebookProfileDetailsCompleteness), 1e-9)
	assert.InDelta(t, 10.0, value(t, fb, features.FacebookPageLikeRatio), 1e-9)
}

func TestActivityHelpers(t *testing.T) {
	base := testsupport.FixedNow

	t.Run("clockwork posting is fully regular", func(t *testing.T) {
		assert.Equal(t, 1.0, postingRegularity([]float64{3600, 3600, 3600}))
		assert.Equal(t, 1.0, postingRegularity([]float64{0, 0}))
		assert.Less(t, postingRegularity([]float64{60, 7200, 30, 86400}), 0.9)
	})

	t.Run("bursts skip to the end of each run", func(t *testing.T) {
		stamps := []time.Time{
			base, base.Add(2 * time.Minute), base.Add(4 * time.Minute), base.Add(9 * time.Minute),
			base.Add(2 * time.Hour),
			base.Add(5 * time.Hour), base.Add(5*time.Hour + time.Minute), base.Add(5*time.Hour + 2*time.Minute),
		}
		assert.Equal(t, 2, countBursts(stamps))
	})

	t.Run("single hour window is fully consistent", func(t *testing.T) {
		stamps := make([]time.Time, 6)
		for i := range stamps {
			stamps[i] = base.AddDate(0, 0, -i)
		}
		assert.Equal(t, 1.0, timeConsistency(stamps))
		assert.Equal(t, 0.0, hourEntropy(stamps))
	})

	t.Run("repeated text lowers diversity", func(t *testing.T) {
		posts := []profile.RawPost{{Text: "Follow back!"}, {Text: "follow  back!"}, {Text: "new post"}, {Text: "Follow back!"}}
		d, ok := contentDiversity(posts)
		require.True(t, ok)
		assert.InDelta(t, 0.5, d, 1e-9)
	})
}

func TestExtract_RatioNeedsBothCounts(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))

	for _, counts := range [][2]int{{profile.Unknown, 399}, {400, profile.Unknown}} {
		rec := testsupport.NewRecord(profile.PlatformInstagram, "jamie").Followers(counts[0], counts[1]).Build()
		v, err := ex.Extract(context.Background(), rec)
		require.NoError(t, err)

		assert.Equal(t, 1.0, value(t, v, features.FollowerFollowingRatio))
		assert.True(t, v.IsDefaulted(features.FollowerFollowingRatio))
		assert.True(t, v.IsDefaulted(features.NetworkIsolationScore))

		for _, ind := range indicators.NewEvaluator().Evaluate(v) {
			assert.NotEqual(t, indicators.RuleExtremeFollowerRatio, ind.Name, "counts %v", counts)
			assert.NotEqual(t, indicators.RuleIsolatedNetwork, ind.Name, "counts %v", counts)
		}
	}

	rec := testsupport.NewRecord(profile.PlatformInstagram, "jamie").Followers(profile.Unknown, 399).Build()
	v, err := ex.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, v.IsDefaulted(features.InstagramPostToFollowerRatio))
}

func TestExtract_OddOptionalValuesBecomeDefaults(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))

	rec := testsupport.NewRecord(profile.PlatformTwitter, "jamie").
		AgeDays(-3).
		Posts(profile.RawPost{Timestamp: testsupport.FixedNow, Text: "hello", Likes: -1, Comments: 2, Shares: -5}).
		Build()

	v, err := ex.Extract(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, 365.0, value(t, v, features.AccountAgeDays))
	assert.True(t, v.IsDefaulted(features.AccountAgeDays))
	assert.InDelta(t, 2.0/400, value(t, v, features.EngagementRate), 1e-12)
}

func TestExtract_SuspiciousContent(t *testing.T) {
	ex := NewExtractor(nil, nil, testsupport.Logger(t))

	spam := testsupport.NewRecord(profile.PlatformTwitter, "jamie")
	for i := 0; i < 5; i++ {
		spam.Posts(profile.RawPost{Text: "Earn $500 per day! Work from home, click here"})
	}
	v, err := ex.Extract(context.Background(), spam.Build())
	require.NoError(t, err)

	// diversity 1/5, every post matches three spam phrases, keyword share saturates
	assert.InDelta(t, 0.35*0.8+0.35+0.2, value(t, v, features.SuspiciousContentScore), 1e-9)
	assert.Contains(t, names(indicators.NewEvaluator().Evaluate(v)), indicators.RuleSuspiciousContent)

	clean, err := ex.Extract(context.Background(), testsupport.NewRecord(profile.PlatformTwitter, "jamie").
		Posts(profile.RawPost{Text: "Lovely ride along the coast this morning"}).Build())
	require.NoError(t, err)
	assert.Equal(t, 0.0, value(t, clean, features.SuspiciousContentScore))
	assert.False(t, clean.IsDefaulted(features.SuspiciousContentScore))

	empty, err := ex.Extract(context.Background(), testsupport.NewRecord(profile.PlatformTwitter, "jamie").
		Posts(profile.RawPost{Text: "   "}).Build())
	require.NoError(t, err)
	assert.True(t, empty.IsDefaulted(features.SuspiciousContentScore))
}

func TestNetworkIsolation(t *testing.T) {
	cases := []struct {
		followers, following float64
		want                 float64
	}{
		{3, 4800, 0.75},
		{30, 600, 0.55},
		{80, 200, 0.25},
		{400, 399, 0.15},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, networkIsolation(tc.followers, tc.following), 1e-9, "%v/%v", tc.followers, tc.following)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"earn", "500", "today", "dm", "me"}, tokenize("Earn $500 today!! DM me :)"))
}

func names(inds []analysis.Indicator) []string {
	out := make([]string, len(inds))
	for i, ind := range inds {
		out[i] = ind.Name
	}
	return out
}
