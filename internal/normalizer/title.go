package normalizer

import (
	"regexp"
	"strconv"
	"strings"
)

// customBonusPattern matches a standalone "+N" token
var customBonusPattern = regexp.MustCompile(`(^|\s)\+(\d+)(\s|$)`)

// ParsedTitle is a raw bookmark title split into its parts
type ParsedTitle struct {
	Title       string
	Tags        []string
	CustomBonus int
}

// ParseTitle splits a raw bookmark title on the first '#'. Everything before
// it is the display title. Every following '#'-delimited segment is a tag.
// A "+N" token before the first tag is the custom bonus.
//
//	"Example +5 #alpha #beta" → {Title: "Example", CustomBonus: 5, Tags: [alpha beta]}
func ParseTitle(raw string) ParsedTitle {
	head, rest, hasTags := strings.Cut(raw, "#")

	var parsed ParsedTitle
	if hasTags {
		parsed.Tags = parseTags(rest)
	}

	if m := customBonusPattern.FindStringSubmatchIndex(head); m != nil {
		digits := head[m[4]:m[5]]
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
			parsed.CustomBonus = int(n)
			head = head[:m[0]] + " " + head[m[1]:]
		}
	}

	parsed.Title = collapseSpaces(head)
	return parsed
}

// FormatTitle is the inverse of ParseTitle. Parsing its output reproduces
// the same title, bonus and tags.
func FormatTitle(title string, customBonus int, tags []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(title))
	if customBonus != 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("+")
		b.WriteString(strconv.Itoa(customBonus))
	}
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimPrefix(t, "#"))
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("#")
		b.WriteString(t)
	}
	return b.String()
}

// parseTags splits on '#', trims each segment and drops empty and repeated
// tags. Repeats are detected case-insensitively; the first casing wins.
func parseTags(s string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, seg := range strings.Split(s, "#") {
		tag := strings.TrimSpace(seg)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
