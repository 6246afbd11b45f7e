package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/mcp"
	"github.com/dshills/marksearch-mcp/internal/storage"
)

var (
	configPath string
	dbPath     string
	verbose    bool
	overrides  map[string]string
)

var rootCmd = &cobra.Command{
	Use:   "marksearch",
	Short: "Search browser bookmarks, tabs and history",
	Long: `marksearch - search browser bookmarks, open tabs and history

Records come from a SQLite snapshot of the browser, filled with
"marksearch import". They are served to MCP clients with
"marksearch serve" or searched directly with "marksearch search".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"marksearch {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		buildTime, storage.BuildMode, storage.DriverName))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath, "config file")
	flags.StringVar(&dbPath, "db", envOr("MARKSEARCH_DB_PATH", mcp.DefaultDBPath), "snapshot database")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringToStringVar(&overrides, "set", nil, "override config keys, e.g. --set search_strategy=fuzzy")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newLogger logs to stderr; stdout is reserved for results and the MCP
// protocol
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file, environment and --set overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		values, err := overrideValues(overrides)
		if err != nil {
			return nil, err
		}
		if err := cfg.ApplyMap(values); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideValues checks --set keys and converts them for ApplyMap
func overrideValues(set map[string]string) (map[string]any, error) {
	keys := config.Keys()
	values := make(map[string]any, len(set))
	for k, v := range set {
		if !slices.Contains(keys, k) {
			return nil, fmt.Errorf("unknown config key %q, known keys: %s", k, strings.Join(keys, ", "))
		}
		values[k] = v
	}
	return values, nil
}

// newServer assembles the application from the global flags
func newServer(logger *slog.Logger, opts mcp.Options) (*mcp.Server, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts.Logger = logger
	return mcp.NewServer(cfg, dbPath, opts)
}
