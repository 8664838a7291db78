package sentiment

import (
	"math"
	"strings"
	"unicode"

	"github.com/stockpulse/stockpulse/internal/domain"
)

const (
	// normAlpha is the normalization constant: score = x / sqrt(x² + alpha).
	normAlpha = 15.0
	// capsEmphasis is added to a word's valence magnitude when the word is
	// shouted in an otherwise mixed-case text.
	capsEmphasis = 0.733
	// negationDampen scales a valence flipped by a nearby negation.
	negationDampen = -0.74
	// exclamationEmphasis is the per-'!' amplification, capped at 4 marks.
	exclamationEmphasis = 0.292
	maxExclamations     = 4
	modifierLookback    = 3
)

// Scorer implements domain.Scorer. The zero value is not usable; construct
// with NewScorer.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the sentiment of text. Text with no recognizable sentiment
// content (empty, only URLs or emoji, no lexicon hits) scores 0.0 neutral
// rather than failing.
func (s *Scorer) Score(text string) (float64, domain.Bucket) {
	score := scoreText(text)
	return score, domain.BucketFor(score)
}

type token struct {
	raw     string
	lower   string
	allCaps bool
}

func scoreText(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	mixed := hasMixedCase(tokens)

	var sum float64
	anyHit := false
	for i := 0; i < len(tokens); i++ {
		if v, consumed, ok := idiomAt(tokens, i); ok {
			sum += v
			anyHit = true
			i += consumed - 1
			continue
		}

		v, ok := lexicon[tokens[i].lower]
		if !ok {
			continue
		}
		anyHit = true
		sum += adjustValence(tokens, i, v, mixed)
	}

	if !anyHit {
		return 0
	}

	sum += punctuationEmphasis(text, sum)
	return normalize(sum)
}

// adjustValence applies capitalization emphasis, preceding degree modifiers,
// and negation flips to a single word's raw valence.
func adjustValence(tokens []token, i int, v float64, mixedCase bool) float64 {
	if mixedCase && tokens[i].allCaps {
		if v > 0 {
			v += capsEmphasis
		} else {
			v -= capsEmphasis
		}
	}

	for dist := 1; dist <= modifierLookback && i-dist >= 0; dist++ {
		prev := tokens[i-dist]

		if boost, ok := boosters[prev.lower]; ok {
			// Modifier influence fades with distance.
			scalar := boost
			if dist == 2 {
				scalar *= 0.95
			} else if dist == 3 {
				scalar *= 0.9
			}
			if v < 0 {
				scalar = -scalar
			}
			v += scalar
		}

		if isNegation(prev.lower) {
			v *= negationDampen
		}
	}

	return v
}

func idiomAt(tokens []token, i int) (valence float64, consumed int, ok bool) {
	// Longest match first: trigrams, then bigrams.
	for n := 3; n >= 2; n-- {
		if i+n > len(tokens) {
			continue
		}
		parts := make([]string, n)
		for j := 0; j < n; j++ {
			parts[j] = tokens[i+j].lower
		}
		if v, found := idioms[strings.Join(parts, " ")]; found {
			return v, n, true
		}
	}
	return 0, 0, false
}

func isNegation(word string) bool {
	_, ok := negations[word]
	return ok
}

func punctuationEmphasis(text string, sum float64) float64 {
	if sum == 0 {
		return 0
	}

	count := strings.Count(text, "!")
	if count > maxExclamations {
		count = maxExclamations
	}
	emphasis := float64(count) * exclamationEmphasis

	if sum < 0 {
		return -emphasis
	}
	return emphasis
}

func normalize(sum float64) float64 {
	score := sum / math.Sqrt(sum*sum+normAlpha)
	return math.Max(-1, math.Min(1, score))
}

func tokenize(text string) []token {
	fields := strings.Fields(text)
	tokens := make([]token, 0, len(fields))
	for _, f := range fields {
		stripped := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if stripped == "" {
			continue
		}
		// Contractions fold to bare words so "isn't" hits the negation set.
		cleaned := strings.Map(func(r rune) rune {
			if r == '\'' || r == '’' {
				return -1
			}
			return r
		}, stripped)
		if cleaned == "" {
			continue
		}
		tokens = append(tokens, token{
			raw:     cleaned,
			lower:   strings.ToLower(cleaned),
			allCaps: isAllCaps(cleaned),
		})
	}
	return tokens
}

func isAllCaps(word string) bool {
	hasLetter := false
	for _, r := range word {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// hasMixedCase reports whether the text contains both shouted and normal
// words. All-caps emphasis only applies then; a fully shouted post carries no
// per-word signal.
func hasMixedCase(tokens []token) bool {
	caps, lower := 0, 0
	for _, t := range tokens {
		if t.allCaps {
			caps++
		} else {
			lower++
		}
	}
	return caps > 0 && lower > 0
}
