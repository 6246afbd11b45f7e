package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/marksearch-mcp/internal/mcp"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot and index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	server, err := newServer(logger, mcp.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()

	ctx := cmd.Context()
	snap, err := server.Snapshot().GetStatus(ctx)
	if err != nil {
		return err
	}
	stats, err := server.Indexer().Refresh(ctx)
	if err != nil {
		return err
	}
	cfg := server.Config()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Database:\t%s\n", dbPath)
	fmt.Fprintf(w, "Schema version:\t%s\n", snap.SchemaVersion)
	fmt.Fprintf(w, "Build mode:\t%s\n", snap.BuildMode)
	fmt.Fprintf(w, "Size:\t%s\n", humanize.Bytes(uint64(snap.SizeBytes)))
	if snap.LastImport != nil {
		fmt.Fprintf(w, "Last import:\t%s (%s)\n", snap.LastImport.Source, humanize.Time(snap.LastImport.ImportedAt))
	} else {
		fmt.Fprintf(w, "Last import:\tnever\n")
	}
	fmt.Fprintf(w, "Stored:\t%d bookmarks, %d folders, %d tabs, %d history\n",
		snap.Bookmarks, snap.Folders, snap.Tabs, snap.History)
	fmt.Fprintf(w, "Loaded from:\t%s\n", stats.Source)
	fmt.Fprintf(w, "Records:\t%d %s, %d %s, %d %s\n",
		stats.Bookmarks, types.KindBookmark, stats.Tabs, types.KindTab, stats.History, types.KindHistory)
	fmt.Fprintf(w, "Strategy:\t%s\n", cfg.SearchStrategy)
	fmt.Fprintf(w, "History window:\t%d days, at most %s items\n",
		cfg.HistoryDaysAgo, humanize.Comma(int64(cfg.HistoryMaxItems)))
	return w.Flush()
}
