package fuzzy

import (
	"strings"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Emphasis markers wrapped around matched spans
const (
	MarkOpen  = "<mark>"
	MarkClose = "</mark>"
)

// Highlight wraps every span of text in emphasis markers. Spans outside the
// text are clipped.
func Highlight(text string, spans []types.Span) string {
	spans = MergeSpans(spans)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(MarkOpen)+len(MarkClose)))
	pos := 0
	for _, s := range spans {
		start := clamp(s.Start, pos, len(text))
		end := clamp(s.End, start, len(text))
		if start == end {
			continue
		}
		b.WriteString(text[pos:start])
		b.WriteString(MarkOpen)
		b.WriteString(text[start:end])
		b.WriteString(MarkClose)
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Highlights renders every matched field of a candidate
func Highlights(c types.SearchCandidate) map[types.Field]string {
	if len(c.Spans) == 0 || c.Record == nil {
		return nil
	}
	out := make(map[types.Field]string, len(c.Spans))
	for f, spans := range c.Spans {
		out[f] = Highlight(c.Record.RawFieldText(f), spans)
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
