package normalizer

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Options are the config predicates the normalizer applies
type Options struct {
	IgnoreFolders     []string // Bookmark folders whose subtrees are skipped
	HistoryIgnoreList []string // History entries whose URL contains any of these are dropped
	DetectDuplicates  bool
	Now               func() time.Time // Defaults to time.Now
}

// OptionsFromConfig extracts normalizer options from the config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IgnoreFolders:     cfg.BookmarksIgnoreFolders,
		HistoryIgnoreList: cfg.HistoryIgnoreList,
		DetectDuplicates:  cfg.DetectDuplicates,
	}
}

// Result holds the three dense record arrays
type Result struct {
	Bookmarks []*types.Record
	Tabs      []*types.Record
	History   []*types.Record
}

// Records returns the array for a kind
func (r *Result) Records(k types.Kind) []*types.Record {
	switch k {
	case types.KindBookmark:
		return r.Bookmarks
	case types.KindTab:
		return r.Tabs
	case types.KindHistory:
		return r.History
	case types.KindSearchEngine, types.KindDirectURL:
		return nil
	default:
		return nil
	}
}

// Normalizer converts raw platform payloads into records
type Normalizer struct {
	opts          Options
	logger        *slog.Logger
	ignoreHistory *regexp.Regexp
	ignoreFolders map[string]bool
}

// New creates a Normalizer. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	n := &Normalizer{
		opts:          opts,
		logger:        logger,
		ignoreFolders: make(map[string]bool, len(opts.IgnoreFolders)),
	}
	for _, f := range opts.IgnoreFolders {
		n.ignoreFolders[strings.TrimSpace(f)] = true
	}

	var parts []string
	for _, s := range opts.HistoryIgnoreList {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, regexp.QuoteMeta(s))
		}
	}
	if len(parts) > 0 {
		n.ignoreHistory = regexp.MustCompile(strings.Join(parts, "|"))
	}

	return n
}

// Normalize converts all three payloads, merges history into bookmarks and
// tabs sharing a URL, and assigns dense indices per kind.
func (n *Normalizer) Normalize(ds types.Dataset) *Result {
	res := &Result{
		Bookmarks: n.ConvertBookmarks(ds.Bookmarks),
		Tabs:      n.ConvertTabs(ds.Tabs),
		History:   n.ConvertHistory(ds.History),
	}

	markOpenTabs(res.Bookmarks, res.Tabs)
	res.History = MergeHistory(res.History, res.Bookmarks, res.Tabs)
	Reindex(res.History)

	return res
}

// ConvertBookmarks flattens the bookmark tree in depth-first order
func (n *Normalizer) ConvertBookmarks(root *types.BookmarkNode) []*types.Record {
	var records []*types.Record
	if root != nil {
		n.walkBookmarks(root, nil, &records)
	}
	n.flagDuplicates(records)
	Reindex(records)
	return records
}

func (n *Normalizer) walkBookmarks(node *types.BookmarkNode, path []string, out *[]*types.Record) {
	if node.URL != "" {
		if rec := n.convertBookmark(node, path); rec != nil {
			*out = append(*out, rec)
		}
		return
	}

	title := strings.TrimSpace(node.Title)
	if title != "" && n.ignoreFolders[title] {
		return
	}

	childPath := path
	if title != "" {
		childPath = append(append([]string(nil), path...), title)
	}
	for _, child := range node.Children {
		n.walkBookmarks(child, childPath, out)
	}
}

func (n *Normalizer) convertBookmark(node *types.BookmarkNode, path []string) *types.Record {
	normalized, display, ok := NormalizeURL(node.URL)
	if !ok {
		return nil
	}

	parsed := ParseTitle(node.Title)
	rec := &types.Record{
		Kind:          types.KindBookmark,
		SourceID:      node.ID,
		Title:         parsed.Title,
		URL:           node.URL,
		NormalizedURL: normalized,
		DisplayURL:    display,
		Tags:          parsed.Tags,
		FolderPath:    append([]string(nil), path...),
		CustomBonus:   parsed.CustomBonus,
	}
	rec.BuildSearchString()
	return rec
}

// ConvertTabs converts the open tab list
func (n *Normalizer) ConvertTabs(tabs []types.RawTab) []*types.Record {
	records := make([]*types.Record, 0, len(tabs))
	for _, tab := range tabs {
		normalized, display, ok := NormalizeURL(tab.URL)
		if !ok {
			continue
		}
		rec := &types.Record{
			Kind:          types.KindTab,
			SourceID:      tab.ID,
			Title:         strings.TrimSpace(tab.Title),
			URL:           tab.URL,
			NormalizedURL: normalized,
			DisplayURL:    display,
			Active:        tab.Active,
		}
		rec.BuildSearchString()
		records = append(records, rec)
	}
	n.flagDuplicates(records)
	Reindex(records)
	return records
}

// ConvertHistory converts history entries, dropping those whose URL
// contains an ignored substring.
func (n *Normalizer) ConvertHistory(items []types.RawHistoryItem) []*types.Record {
	now := n.opts.Now()
	records := make([]*types.Record, 0, len(items))
	ignored := 0

	for _, item := range items {
		if n.ignoreHistory != nil && n.ignoreHistory.MatchString(item.URL) {
			ignored++
			continue
		}
		normalized, display, ok := NormalizeURL(item.URL)
		if !ok {
			continue
		}
		rec := &types.Record{
			Kind:          types.KindHistory,
			SourceID:      item.ID,
			Title:         strings.TrimSpace(item.Title),
			URL:           item.URL,
			NormalizedURL: normalized,
			DisplayURL:    display,
			VisitCount:    item.VisitCount,
		}
		if !item.LastVisitTime.IsZero() {
			ago := int64(now.Sub(item.LastVisitTime).Seconds())
			if ago < 0 {
				ago = 0
			}
			rec.LastVisitSecondsAgo = &ago
		}
		rec.BuildSearchString()
		records = append(records, rec)
	}

	if ignored > 0 {
		n.logger.Warn("history entries ignored", "count", ignored)
	}

	Reindex(records)
	return records
}

// flagDuplicates marks every record whose normalized URL collides with a
// record seen earlier in the same array. One warning per duplicate.
func (n *Normalizer) flagDuplicates(records []*types.Record) {
	if !n.opts.DetectDuplicates {
		return
	}
	seen := make(map[string]*types.Record, len(records))
	for _, rec := range records {
		first, ok := seen[rec.NormalizedURL]
		if !ok {
			seen[rec.NormalizedURL] = rec
			continue
		}
		first.Dupe = true
		rec.Dupe = true
		n.logger.Warn("duplicate "+rec.Kind.String(),
			"url", rec.NormalizedURL,
			"title", rec.Title,
			"first_title", first.Title)
	}
}

// Reindex assigns dense sequential indices
func Reindex(records []*types.Record) {
	for i, rec := range records {
		rec.Index = i
	}
}

// markOpenTabs flags bookmarks whose URL is open in a tab
func markOpenTabs(bookmarks, tabs []*types.Record) {
	open := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		open[t.NormalizedURL] = true
	}
	for _, b := range bookmarks {
		b.OpenTab = open[b.NormalizedURL]
	}
}
