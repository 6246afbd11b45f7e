package searcher

import (
	"strings"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Mode selects which records a query searches
type Mode int

const (
	ModeAll Mode = iota
	ModeHistory
	ModeBookmarks
	ModeTabs
	ModeSearchEngines
	ModeTags
	ModeFolders
)

// prefixes are checked in order; the first match wins
var prefixes = []struct {
	prefix string
	mode   Mode
}{
	{"h ", ModeHistory},
	{"b ", ModeBookmarks},
	{"t ", ModeTabs},
	{"s ", ModeSearchEngines},
	{"#", ModeTags},
	{"~", ModeFolders},
}

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeHistory:
		return "history"
	case ModeBookmarks:
		return "bookmarks"
	case ModeTabs:
		return "tabs"
	case ModeSearchEngines:
		return "search"
	case ModeTags:
		return "tags"
	case ModeFolders:
		return "folders"
	default:
		return "unknown"
	}
}

// Kinds returns the record kinds a mode searches
func (m Mode) Kinds() []types.Kind {
	switch m {
	case ModeAll:
		return types.IndexedKinds
	case ModeHistory:
		return []types.Kind{types.KindTab, types.KindHistory}
	case ModeBookmarks, ModeTags, ModeFolders:
		return []types.Kind{types.KindBookmark}
	case ModeTabs:
		return []types.Kind{types.KindTab}
	case ModeSearchEngines:
		return nil
	default:
		return nil
	}
}

// Taxonomy reports whether the mode is tag or folder search
func (m Mode) Taxonomy() bool {
	return m == ModeTags || m == ModeFolders
}

// Fallback reports whether search-engine entries are appended
func (m Mode) Fallback() bool {
	return m == ModeAll || m == ModeSearchEngines
}

// Query is a parsed query string
type Query struct {
	Raw  string
	Mode Mode
	Term string // Raw with the mode prefix stripped and trimmed
}

// ParseQuery detects the mode prefix and strips it from the term
func ParseQuery(raw string) Query {
	q := Query{Raw: raw, Mode: ModeAll}
	s := strings.TrimLeft(raw, " \t")
	for _, p := range prefixes {
		if strings.HasPrefix(strings.ToLower(s), p.prefix) {
			q.Mode = p.mode
			s = s[len(p.prefix):]
			break
		}
	}
	q.Term = strings.TrimSpace(s)
	return q
}
