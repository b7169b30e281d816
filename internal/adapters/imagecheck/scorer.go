package imagecheck

import (
	"context"
	"math"
	"net/url"
	"strings"

	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
)

const (
	baseSuspicion     = 0.3
	defaultImageBoost = 0.2
	stockImageBoost   = 0.3
)

var stockHosts = []string{
	"shutterstock.com",
	"istockphoto.com",
	"gettyimages.com",
	"unsplash.com",
	"pexels.com",
	"thispersondoesnotexist.com",
}

// URLScorer rates profile pictures from their URL alone. It never downloads
// the image, so it is cheap enough to run on every profile.
type URLScorer struct{}

// NewURLScorer creates a URL based image scorer
func NewURLScorer() *URLScorer {
	return &URLScorer{}
}

// ScoreImage returns a suspicion score in [0, 1]
func (s *URLScorer) ScoreImage(_ context.Context, rawURL string) (float64, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return 0, errors.Wrapf(errors.ErrMalformedInput, "picture url %q", rawURL)
	}

	score := baseSuspicion
	if profile.IsDefaultPictureURL(rawURL) {
		score += defaultImageBoost
	}

	host := strings.ToLower(u.Hostname())
	for _, stock := range stockHosts {
		if host == stock || strings.HasSuffix(host, "."+stock) {
			score += stockImageBoost
			break
		}
	}

	return math.Min(1, score), nil
}
