package sentiment

import (
	"context"
	"strings"
	"unicode"
)

var positiveWords = wordSet(
	"amazing", "awesome", "beautiful", "best", "brilliant", "congrats", "enjoy",
	"excellent", "excited", "fantastic", "fun", "glad", "good", "great", "happy",
	"incredible", "love", "loved", "lovely", "nice", "perfect", "proud", "thanks",
	"thank", "welcome", "win", "wonderful", "wow",
)

var negativeWords = wordSet(
	"angry", "awful", "bad", "boring", "broken", "disappointed", "disgusting",
	"fail", "fake", "hate", "horrible", "lose", "poor", "sad", "scam", "sick",
	"sorry", "stupid", "terrible", "ugly", "upset", "worst", "wrong",
)

// negators flip the polarity of the word that follows
var negators = wordSet("not", "no", "never", "dont", "don't", "isnt", "isn't", "cant", "can't")

// Lexicon scores text by counting polarity words. It needs no network and is
// safe for concurrent use.
type Lexicon struct{}

// NewLexicon creates a lexicon scorer
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

// ScoreText returns (positive - negative) / matched in [-1, 1], or 0 when no
// polarity word occurs
func (l *Lexicon) ScoreText(_ context.Context, text string) (float64, error) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var pos, neg int
	negate := false
	for _, tok := range tokens {
		if _, ok := negators[tok]; ok {
			negate = true
			continue
		}

		_, isPos := positiveWords[tok]
		_, isNeg := negativeWords[tok]
		if negate {
			isPos, isNeg = isNeg, isPos
			negate = false
		}

		switch {
		case isPos:
			pos++
		case isNeg:
			neg++
		}
	}

	if pos+neg == 0 {
		return 0, nil
	}
	return float64(pos-neg) / float64(pos+neg), nil
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
