package testsupport

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"sentinel/internal/domain/profile"
	"sentinel/pkg/logger"
)

// FixedNow anchors every builder so extracted features are reproducible
var FixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Logger returns a logger that writes through t.Log
func Logger(t *testing.T) *logger.Logger {
	return logger.New(zaptest.NewLogger(t))
}

// RecordBuilder builds RawProfileRecord values for tests
type RecordBuilder struct {
	rec profile.RawProfileRecord
}

// NewRecord starts from an established, unremarkable account
func NewRecord(platform profile.Platform, username string) *RecordBuilder {
	rec := profile.NewRecord(platform, username)
	rec.DisplayName = "Jamie Doe"
	rec.AccountAgeDays = 730
	rec.FollowersCount = 400
	rec.FollowingCount = 399
	rec.PostCount = 365
	rec.BioText = "Coffee, cycling and #photography"
	rec.Location = "Lisbon"
	rec.Website = "https://jamie.example.com"
	rec.ProfilePictureURL = "https://cdn.example.com/u/jamie.jpg"
	rec.FetchedAt = FixedNow
	return &RecordBuilder{rec: rec}
}

// NewBot starts from a textbook fake: new, follows thousands, no bio
func NewBot(platform profile.Platform, username string) *RecordBuilder {
	rec := profile.NewRecord(platform, username)
	rec.AccountAgeDays = 5
	rec.FollowersCount = 3
	rec.FollowingCount = 4800
	rec.PostCount = 150
	rec.ProfilePictureURL = "https://cdn.example.com/default_profile.png"
	rec.FetchedAt = FixedNow
	return &RecordBuilder{rec: rec}
}

func (b *RecordBuilder) AgeDays(days int) *RecordBuilder {
	b.rec.AccountAgeDays = days
	return b
}

func (b *RecordBuilder) Followers(followers, following int) *RecordBuilder {
	b.rec.FollowersCount = followers
	b.rec.FollowingCount = following
	return b
}

func (b *RecordBuilder) PostCount(n int) *RecordBuilder {
	b.rec.PostCount = n
	return b
}

func (b *RecordBuilder) Bio(text string) *RecordBuilder {
	b.rec.BioText = text
	return b
}

func (b *RecordBuilder) Picture(url string) *RecordBuilder {
	b.rec.ProfilePictureURL = url
	return b
}

func (b *RecordBuilder) Attributes(a profile.Attributes) *RecordBuilder {
	b.rec.Attributes = a
	return b
}

func (b *RecordBuilder) Posts(posts ...profile.RawPost) *RecordBuilder {
	b.rec.Posts = append(b.rec.Posts, posts...)
	return b
}

// DailyPosts adds n distinct posts roughly a day apart at varying hours
func (b *RecordBuilder) DailyPosts(n int) *RecordBuilder {
	for i := 0; i < n; i++ {
		b.rec.Posts = append(b.rec.Posts, profile.RawPost{
			Timestamp: FixedNow.Add(-time.Duration(i)*24*time.Hour - time.Duration(i%5)*time.Hour),
			Text:      fmt.Sprintf("day %d: trying a new route #cycling", i),
			Likes:     10 + i%7,
			Comments:  2,
			HasMedia:  i%3 == 0,
		})
	}
	return b
}

// Build returns a copy of the record
func (b *RecordBuilder) Build() *profile.RawProfileRecord {
	rec := b.rec
	rec.Posts = append([]profile.RawPost(nil), b.rec.Posts...)
	return &rec
}
