package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/marksearch-mcp/internal/catalog"
	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/indexer"
	"github.com/dshills/marksearch-mcp/internal/metrics"
	"github.com/dshills/marksearch-mcp/internal/searcher"
	"github.com/dshills/marksearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "marksearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location of the snapshot database
	DefaultDBPath = "~/.marksearch/snapshot.db"
)

// Options are the optional collaborators of a Server
type Options struct {
	Logger *slog.Logger
	// Registerer receives the search metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	storage  storage.Snapshot
	catalog  *catalog.Catalog
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// ResolveDBPath expands a leading ~/ and creates the parent directory
func ResolveDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if dbPath == ":memory:" {
		return dbPath, nil
	}
	if strings.HasPrefix(dbPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[2:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}

// NewServer creates a new MCP server instance backed by the snapshot
// database at dbPath
func NewServer(cfg *config.Config, dbPath string, opts Options) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbFile, err := ResolveDBPath(dbPath)
	if err != nil {
		return nil, err
	}

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.MustNewMetrics(opts.Registerer)
	}

	cat := catalog.New(cfg, m, logger)
	srch := searcher.NewSearcher(cat, cfg, searcher.Options{Metrics: m, Logger: logger})
	idx := indexer.New(store, cat, cfg, indexer.Options{
		OnChange: srch.InvalidateCache,
		Logger:   logger,
	})

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		storage:  store,
		catalog:  cat,
		indexer:  idx,
		searcher: srch,
		logger:   logger,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve loads the records and then serves MCP on stdio until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	if _, err := s.indexer.Refresh(ctx); err != nil {
		s.logger.Error("initial refresh failed", "error", err)
	}
	return server.ServeStdio(s.mcp)
}

// Close releases the snapshot database
func (s *Server) Close() error {
	return s.storage.Close()
}

// Indexer returns the indexer feeding the catalog
func (s *Server) Indexer() *indexer.Indexer { return s.indexer }

// Searcher returns the searcher over the catalog
func (s *Server) Searcher() *searcher.Searcher { return s.searcher }

// Snapshot returns the snapshot database
func (s *Server) Snapshot() storage.Snapshot { return s.storage }

// Config returns the configuration the server was built with
func (s *Server) Config() *config.Config { return s.cfg }

// ensureLoaded refreshes once if nothing has been loaded yet
func (s *Server) ensureLoaded(ctx context.Context) error {
	if s.catalog.Stats().Loaded {
		return nil
	}
	_, err := s.indexer.Refresh(ctx)
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchBookmarksTool(), s.handleSearchBookmarks)
	s.mcp.AddTool(refreshIndexTool(), s.handleRefreshIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(editBookmarkTool(), s.handleEditBookmark)
	s.mcp.AddTool(updateBookmarkTool(), s.handleUpdateBookmark)
	s.mcp.AddTool(deleteBookmarkTool(), s.handleDeleteBookmark)
	s.mcp.AddTool(dismissErrorsTool(), s.handleDismissErrors)

	return nil
}
