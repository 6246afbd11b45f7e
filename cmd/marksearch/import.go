package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/marksearch-mcp/internal/mcp"
	"github.com/dshills/marksearch-mcp/internal/storage"
)

var importSample bool

var importCmd = &cobra.Command{
	Use:   "import [export.json]",
	Short: "Load a browser export into the snapshot",
	Long: `Replace the snapshot with a browser export.

The export is a JSON object with "bookmarks" (a node tree), "tabs" and
"history". With --sample the built-in dataset is imported instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importSample, "sample", false, "import the built-in sample dataset")
}

func runImport(cmd *cobra.Command, args []string) error {
	if !importSample && len(args) == 0 {
		return fmt.Errorf("an export file or --sample is required")
	}

	path, err := mcp.ResolveDBPath(dbPath)
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = store.Close() }()

	source := "sample"
	ds := storage.FallbackDataset(time.Now())
	if !importSample {
		ds, err = storage.ReadDatasetFile(args[0])
		if err != nil {
			return err
		}
		source = filepath.Base(args[0])
		if info, err := os.Stat(args[0]); err == nil {
			newLogger().Debug("reading export", "file", args[0], "size", humanize.Bytes(uint64(info.Size())))
		}
	}

	imp, err := store.ImportDataset(cmd.Context(), ds, source)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s bookmarks in %s folders, %s tabs and %s history entries from %s\n",
		humanize.Comma(int64(imp.Bookmarks)),
		humanize.Comma(int64(imp.Folders)),
		humanize.Comma(int64(imp.Tabs)),
		humanize.Comma(int64(imp.History)),
		imp.Source)
	return nil
}
