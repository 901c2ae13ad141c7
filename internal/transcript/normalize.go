// Package transcript post-processes raw speech recognition output before it
// is emitted to clients.
//
// Two kinds of cleanup are applied:
//
//   - Normalization of number-like speech artifacts: clock-style timestamps
//     are collapsed into plain digit runs, "double"/"triple" prefixes are
//     expanded, and a spoken single digit followed by a numeric token is
//     merged into one number.
//
//   - Phonetic correction of domain vocabulary via [Corrector]: recognized
//     words are aligned against a boosted word list using Double Metaphone
//     codes and Jaro-Winkler similarity.
package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

var digitWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

var repeatWords = map[string]int{
	"double": 2,
	"triple": 3,
}

// Normalize applies all number normalization passes in order: timestamps,
// repeat expansion, then spoken-digit merging.
func Normalize(text string) string {
	return mergeSpokenDigits(expandRepeats(collapseTimestamps(text)))
}

var timestampRE = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

// collapseTimestamps turns clock-style readings into digit runs by dropping
// the colon and any leading zeros of each component, so "02:22" becomes "222"
// and "12:05" becomes "125".
func collapseTimestamps(text string) string {
	return timestampRE.ReplaceAllStringFunc(text, func(m string) string {
		parts := timestampRE.FindStringSubmatch(m)
		left, _ := strconv.Atoi(parts[1])
		right, _ := strconv.Atoi(parts[2])
		return strconv.Itoa(left) + strconv.Itoa(right)
	})
}

var repeatRE = regexp.MustCompile(`(?i)\b(double|triple)\s+([0-9]+|[a-zA-Z]+)`)

// expandRepeats rewrites "double"/"triple" prefixes into the repeated digit.
// "triple one" becomes "111" and "triple 123456" becomes "11123456" (only the
// first digit is repeated). Words that are neither digits nor spoken digits
// are left untouched.
func expandRepeats(text string) string {
	return repeatRE.ReplaceAllStringFunc(text, func(m string) string {
		parts := repeatRE.FindStringSubmatch(m)
		count := repeatWords[strings.ToLower(parts[1])]
		operand := parts[2]

		if isDigits(operand) {
			return strings.Repeat(operand[:1], count) + operand[1:]
		}
		if d, ok := digitWords[strings.ToLower(operand)]; ok {
			return strings.Repeat(d, count)
		}
		return m
	})
}

// mergeSpokenDigits joins a spoken single digit that directly precedes a
// numeric token, so "nine 90" becomes "990". Trailing punctuation on the
// numeric token is preserved.
func mergeSpokenDigits(text string) string {
	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		lower := strings.ToLower(words[i])
		d, spoken := digitWords[lower]
		// Only 1-9 merge; a leading zero would change the number's value.
		if spoken && lower != "zero" && i+1 < len(words) {
			num, punct := splitTrailingPunct(words[i+1])
			if isDigits(num) {
				out = append(out, d+num+punct)
				i++
				continue
			}
		}
		out = append(out, words[i])
	}
	return strings.Join(out, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitTrailingPunct separates trailing sentence punctuation from a token.
func splitTrailingPunct(s string) (word, punct string) {
	i := len(s)
	for i > 0 && strings.ContainsRune(".,!?:;", rune(s[i-1])) {
		i--
	}
	return s[:i], s[i:]
}
