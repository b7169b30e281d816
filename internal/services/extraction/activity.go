package extraction

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"sentinel/internal/domain/features"
	"sentinel/internal/domain/profile"
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
)

const (
	minPostsForRegularity  = 2
	minPostsForConsistency = 5
	consistencyWindowHours = 8
	burstWindow            = 10 * time.Minute
	burstMinPosts          = 3
)

// contentDiversity is the share of distinct normalized post texts
func contentDiversity(posts []profile.RawPost) (float64, bool) {
	seen := make(map[string]struct{}, len(posts))
	texts := 0
	for _, p := range posts {
		norm := strings.Join(strings.Fields(strings.ToLower(p.Text)), " ")
		if norm == "" {
			continue
		}
		texts++
		seen[norm] = struct{}{}
	}
	if texts < 2 {
		return 0, false
	}
	return float64(len(seen)) / float64(texts), true
}

func extractActivity(v *features.Vector, posts []profile.RawPost) {
	stamps := sortedTimestamps(posts)

	if len(stamps) < minPostsForRegularity {
		v.SetDefault(features.PostingRegularity)
		v.SetDefault(features.PostingTimeEntropy)
		v.SetDefault(features.MedianHoursBetweenPosts)
	} else {
		gaps := gapsSeconds(stamps)
		v.Set(features.PostingRegularity, postingRegularity(gaps))
		v.Set(features.PostingTimeEntropy, hourEntropy(stamps))
		v.Set(features.MedianHoursBetweenPosts, median(gaps)/3600)
	}

	if len(stamps) < minPostsForConsistency {
		v.SetDefault(features.TimeConsistency)
	} else {
		v.Set(features.TimeConsistency, timeConsistency(stamps))
	}

	if len(stamps) < burstMinPosts {
		v.SetDefault(features.PostingBursts)
	} else {
		v.Set(features.PostingBursts, float64(countBursts(stamps)))
	}
}

// sortedTimestamps drops zero timestamps and sorts ascending in UTC
func sortedTimestamps(posts []profile.RawPost) []time.Time {
	out := make([]time.Time, 0, len(posts))
	for _, p := range posts {
		if !p.Timestamp.IsZero() {
			out = append(out, p.Timestamp.UTC())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func gapsSeconds(stamps []time.Time) []float64 {
	gaps := make([]float64, 0, len(stamps)-1)
	for i := 1; i < len(stamps); i++ {
		gaps = append(gaps, stamps[i].Sub(stamps[i-1]).Seconds())
	}
	return gaps
}

// postingRegularity maps the coefficient of variation of gaps into [0,1], 1 = clockwork
func postingRegularity(gaps []float64) float64 {
	var sum float64
	for _, g := range gaps {
		sum += g
	}
	mean := sum / float64(len(gaps))
	if mean == 0 {
		return 1
	}

	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	std := math.Sqrt(variance / float64(len(gaps)))
	cv := std / mean
	return clamp(1-cv/2, 0, 1)
}

// hourEntropy is the Shannon entropy of the hour-of-day histogram, normalized to [0,1]
func hourEntropy(stamps []time.Time) float64 {
	var hist [24]int
	for _, ts := range stamps {
		hist[ts.Hour()]++
	}

	n := float64(len(stamps))
	var entropy float64
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(24)
}

// timeConsistency is the largest share of posts inside any circular 8-hour window
func timeConsistency(stamps []time.Time) float64 {
	var hist [24]int
	for _, ts := range stamps {
		hist[ts.Hour()]++
	}

	best := 0
	for start := 0; start < 24; start++ {
		count := 0
		for h := 0; h < consistencyWindowHours; h++ {
			count += hist[(start+h)%24]
		}
		if count > best {
			best = count
		}
	}
	return float64(best) / float64(len(stamps))
}

// countBursts counts runs of 3+ posts within 10 minutes of the run's first post
func countBursts(stamps []time.Time) int {
	bursts := 0
	for i := 0; i < len(stamps); {
		j := i
		for j+1 < len(stamps) && stamps[j+1].Sub(stamps[i]) <= burstWindow {
			j++
		}
		if j-i+1 >= burstMinPosts {
			bursts++
			i = j + 1
			continue
		}
		i++
	}
	return bursts
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
