package precise

import (
	"strings"
	"unicode"
)

// Words splits text into lowercase runs of letters and digits
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ForwardTokens returns every prefix of every word that is at least
// minLength runes long. "pandoc" with minLength 3 yields pan, pand, pando,
// pandoc.
func ForwardTokens(text string, minLength int) []string {
	if minLength < 1 {
		minLength = 1
	}
	var tokens []string
	seen := make(map[string]bool)
	for _, w := range Words(text) {
		runes := []rune(w)
		for l := minLength; l <= len(runes); l++ {
			tok := string(runes[:l])
			if seen[tok] {
				continue
			}
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
