package transcript

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// CorrectorOption is a functional option for configuring a [Corrector].
type CorrectorOption func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched vocabulary word to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) CorrectorOption {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the corrector falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) CorrectorOption {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// Corrector aligns recognized words against a boosted vocabulary.
//
// Candidate selection runs in two stages. Double Metaphone codes are computed
// for the input window and every vocabulary entry; entries sharing at least
// one code are phonetic candidates and are ranked by Jaro-Winkler similarity
// against the phonetic threshold. When no phonetic candidate qualifies, a
// pure Jaro-Winkler pass against the higher fuzzy threshold is tried instead.
//
// Multi-word vocabulary entries are matched via n-gram windows over the
// input, longest window first, so "center well" can replace two spoken
// tokens at once.
//
// A Corrector holds no state and is safe for concurrent use.
type Corrector struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewCorrector returns a Corrector configured with the supplied options.
func NewCorrector(opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct replaces words in text that phonetically align with a vocabulary
// entry by that entry, preserving surrounding punctuation. When vocab is
// empty, text is returned unchanged.
func (c *Corrector) Correct(text string, vocab []string) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(vocab) == 0 {
		return text
	}

	maxWindow := maxWordCount(vocab)
	out := make([]string, 0, len(tokens))

	i := 0
	for i < len(tokens) {
		maxN := maxWindow
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			bare, punct := splitTrailingPunct(window)
			entry, ok := c.match(bare, vocab)
			if !ok {
				continue
			}
			out = append(out, strings.Fields(entry+punct)...)
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	return strings.Join(out, " ")
}

// match finds the vocabulary entry most similar to word, or reports that no
// entry qualifies. Exact matches (case-insensitive) are never "corrected".
func (c *Corrector) match(word string, vocab []string) (string, bool) {
	wordLower := strings.ToLower(strings.TrimSpace(word))
	if wordLower == "" {
		return "", false
	}
	wordTokens := strings.Fields(wordLower)
	inputCodes := codesForTokens(wordTokens)

	var (
		bestEntry    string
		bestScore    float64
		bestPhonetic bool
	)

	for _, entry := range vocab {
		entryLower := strings.ToLower(strings.TrimSpace(entry))
		if entryLower == "" {
			continue
		}
		if entryLower == wordLower {
			return "", false
		}
		entryTokens := strings.Fields(entryLower)

		phonetic := codesOverlap(inputCodes, codesForTokens(entryTokens))
		score := bestSimilarity(wordTokens, entryTokens, wordLower, entryLower)

		if phonetic {
			if score >= c.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				bestEntry, bestScore, bestPhonetic = entry, score, true
			}
		} else if !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore {
			bestEntry, bestScore = entry, score
		}
	}

	return bestEntry, bestEntry != ""
}

// codesForTokens returns the union of Double Metaphone codes over all tokens.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity takes the highest Jaro-Winkler score across full strings,
// space-stripped strings, and token pairs. The pairwise pass covers the case
// where one spoken word maps onto one word of a longer entry; it only runs
// when either side is a single token, so a multi-token window cannot consume
// unrelated neighbours on the strength of one matching word.
func bestSimilarity(inputTokens, entryTokens []string, inputFull, entryFull string) float64 {
	score := matchr.JaroWinkler(inputFull, entryFull, false)

	if len(inputTokens) > 1 || len(entryTokens) > 1 {
		joined1 := strings.Join(inputTokens, "")
		joined2 := strings.Join(entryTokens, "")
		if s := matchr.JaroWinkler(joined1, joined2, false); s > score {
			score = s
		}
	}

	if len(inputTokens) == 1 || len(entryTokens) == 1 {
		for _, it := range inputTokens {
			for _, et := range entryTokens {
				if s := matchr.JaroWinkler(it, et, false); s > score {
					score = s
				}
			}
		}
	}

	return score
}

// maxWordCount returns the largest number of whitespace-separated words in
// any vocabulary entry, at least 1.
func maxWordCount(vocab []string) int {
	max := 1
	for _, v := range vocab {
		if n := len(strings.Fields(v)); n > max {
			max = n
		}
	}
	return max
}
