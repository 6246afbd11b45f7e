package fuzzy

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// minTypoLength is the shortest term that gets typo tolerance
const minTypoLength = 4

// typoPenalty scales typo matches below any subsequence match of the same
// compactness
const typoPenalty = 0.8

// Distance computes the Levenshtein edit distance between two strings,
// counting runes.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// MaxEdits returns the number of edits tolerated for a term of n runes
func MaxEdits(n int, tolerance float64) int {
	if n < minTypoLength {
		return 0
	}
	return int(math.Round(tolerance * float64(n) / 3))
}

// word is a run of letters and digits with its byte offsets in the source
type word struct {
	text  string // Lowercased
	start int
	end   int
}

func splitWords(text string) []word {
	var out []word
	start := -1
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case isWord && start < 0:
			start = i
		case !isWord && start >= 0:
			out = append(out, newWord(text, start, i))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, newWord(text, start, len(text)))
	}
	return out
}

func newWord(text string, start, end int) word {
	return word{text: strings.ToLower(text[start:end]), start: start, end: end}
}

// typoMatch finds the word closest to term within the edit budget. A word
// longer than the term is also compared by its prefix so partially typed
// words still match.
func typoMatch(term, text string, tolerance float64) (float64, types.Span, bool) {
	term = strings.ToLower(term)
	n := utf8.RuneCountInString(term)
	budget := MaxEdits(n, tolerance)
	if budget == 0 {
		return 0, types.Span{}, false
	}

	best := budget + 1
	var span types.Span
	for _, w := range splitWords(text) {
		d := Distance(term, w.text)
		if rw := []rune(w.text); len(rw) > n {
			d = min(d, Distance(term, string(rw[:n])))
		}
		if d < best {
			best = d
			span = types.Span{Start: w.start, End: w.end}
		}
	}
	if best > budget {
		return 0, types.Span{}, false
	}
	return (1 - float64(best)/float64(n)) * typoPenalty, span, true
}
