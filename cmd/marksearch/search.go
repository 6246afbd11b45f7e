package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/mcp"
	"github.com/dshills/marksearch-mcp/internal/searcher"
)

var (
	searchStrategy    string
	searchLimit       int
	searchJSON        bool
	searchInteractive bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search bookmarks, tabs and history",
	Long: `Search the records of the browser snapshot.

Prefixes restrict the search: "b " bookmarks, "t " tabs, "h " history,
"s " search engines, "#" tags, "~" folders.

Examples:
  marksearch search "b golang"          # Bookmarks only
  marksearch search --strategy fuzzy gdoc
  marksearch search '#docs'             # Bookmarks tagged docs
  marksearch search -i                  # Search each line typed on stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "", "precise or fuzzy (default from config)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVarP(&searchInteractive, "interactive", "i", false, "read queries from stdin")
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	server, err := newServer(logger, mcp.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()

	if _, err := server.Indexer().Refresh(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchInteractive {
		return runInteractive(cmd, server, out)
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	resp, err := server.Searcher().Search(cmd.Context(), searcher.SearchRequest{
		Query:    query,
		Strategy: searchStrategy,
	})
	if err != nil {
		return err
	}
	return printResults(out, resp, server.Config())
}

// runInteractive treats every stdin line as the query text after a key
// press. Lines arriving within the debounce period collapse into one search
// and only the newest search prints.
func runInteractive(cmd *cobra.Command, server *mcp.Server, out io.Writer) error {
	var outMu sync.Mutex
	session := searcher.NewSession(server.Searcher(), func(resp *searcher.SearchResponse) {
		outMu.Lock()
		defer outMu.Unlock()
		_ = printResults(out, resp, server.Config())
	})

	debouncer := searcher.NewDebouncer(server.Config().DebounceDelay(), func(query string) {
		_, _, err := session.Run(cmd.Context(), searcher.SearchRequest{
			Query:    query,
			Strategy: searchStrategy,
			UseCache: true,
		})
		if err != nil {
			outMu.Lock()
			fmt.Fprintln(out, "error:", err)
			outMu.Unlock()
		}
	})
	defer debouncer.Stop()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == ":q" {
			break
		}
		debouncer.Key("", line)
	}
	debouncer.Flush()

	return scanner.Err()
}

func printResults(w io.Writer, resp *searcher.SearchResponse, cfg *config.Config) error {
	view := mcp.RenderSearch(resp, cfg, searchLimit, time.Now())

	if searchJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	if view.Count == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	for i, r := range view.Results {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, r.Kind, r.Title)
		fmt.Fprintf(w, "    %s\n", r.URL)

		var extra []string
		if r.Folder != "" {
			extra = append(extra, "~"+r.Folder)
		}
		for _, tag := range r.Tags {
			extra = append(extra, "#"+tag)
		}
		if r.VisitCount != nil {
			extra = append(extra, fmt.Sprintf("%d visits", *r.VisitCount))
		}
		if r.LastVisit != "" {
			extra = append(extra, r.LastVisit)
		}
		if r.Score != nil {
			extra = append(extra, fmt.Sprintf("score %.1f", *r.Score))
		}
		if len(extra) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(extra, "  "))
		}
	}
	fmt.Fprintf(w, "%d of %d results (%s, %s, %.2fms)\n",
		view.Count, view.Matched, view.Mode, view.Strategy, view.DurationMS)
	return nil
}
