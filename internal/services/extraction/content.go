package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"sentinel/internal/domain/profile"
)

// Weights of the suspicious content score
const (
	contentWeightSentiment = 0.1
	contentWeightDiversity = 0.35
	contentWeightSpam      = 0.35
	contentWeightKeywords  = 0.2

	// keyword share at which the keyword factor saturates is 1/keywordRatioScale
	keywordRatioScale = 10
)

var spamPatterns = compileAll(
	`(?i)(earn|make)\s*\$\d+\s*(per|a)\s*(day|week|month|hour)`,
	`(?i)free\s+money`,
	`(?i)work\s+from\s+home`,
	`(?i)(click|tap)\s+here`,
	`(?i)(check|see)\s*(my|this)\s*profile`,
	`(?i)follow\s*(me|back)`,
	`(?i)(dm|message)\s*me`,
	`(?i)dating`,
	`(?i)hot\s+(singles|girls|guys)`,
	`(?i)(bitcoin|crypto)\s*(investment|trading)`,
	`(?i)get\s+rich`,
	`(?i)lose\s+weight`,
	`(?i)diet\s+pill`,
	`(?i)miracle\s+cure`,
	`[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9.-]+`,
	`https?://[A-Za-z0-9.-]+\.[A-Za-z]{2,}(/\S*)?`,
)

var suspiciousKeywords = wordSet(
	// money
	"money", "cash", "earn", "income", "rich", "wealthy", "profit", "investment", "invest",
	"bitcoin", "crypto", "cryptocurrency", "forex", "trading", "trader", "stocks", "btc", "eth",
	// offers
	"offer", "free", "discount", "deal", "promo", "promotion", "limited", "exclusive",
	"opportunity", "chance", "lifetime",
	// employment
	"job", "career", "hiring", "remote", "work", "home", "online", "passive", "salary",
	"payday", "loan", "loans",
	// adult
	"hot", "sexy", "dating", "date", "single", "chat", "meet", "hookup", "adult", "cam",
	"webcam", "girl", "girls", "boys",
	// calls to action
	"click", "tap", "join", "register", "sign", "subscribe", "follow", "dm", "pm", "message",
	"contact", "link", "bio",
	// health
	"weight", "loss", "diet", "slim", "fat", "burn", "health", "pill", "supplement",
	"vitamin", "detox", "cleanse", "inches",
	// urgency
	"urgent", "hurry", "quick", "fast", "immediately", "now", "today", "tonight", "soon",
	"act", "action",
)

// suspiciousContent combines extreme sentiment, repetition, spam phrases and
// spam vocabulary into [0, 1]. It reports false when no post has text.
func suspiciousContent(posts []profile.RawPost, sentiment, diversity float64) (float64, bool) {
	var texts, spam, keywords, words int
	for _, p := range posts {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		texts++

		for _, re := range spamPatterns {
			if re.MatchString(p.Text) {
				spam++
			}
		}

		tokens := tokenize(p.Text)
		words += len(tokens)
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := suspiciousKeywords[tok]; ok {
				keywords++
			}
		}
	}
	if texts == 0 {
		return 0, false
	}

	var keywordRatio float64
	if words > 0 {
		keywordRatio = float64(keywords) / float64(words)
	}

	score := contentWeightSentiment*math.Abs(clamp(sentiment, -1, 1)) +
		contentWeightDiversity*(1-clamp(diversity, 0, 1)) +
		contentWeightSpam*math.Min(1, float64(spam)/float64(texts)) +
		contentWeightKeywords*math.Min(1, keywordRatio*keywordRatioScale)
	return clamp(score, 0, 1), true
}

// tokenize lowercases text and splits it into words, dropping punctuation and symbols
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)
	return strings.Fields(cleaned)
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
