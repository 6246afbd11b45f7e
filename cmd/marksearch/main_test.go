package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dshills/marksearch-mcp/internal/mcp"
)

// CLITestSuite runs the commands end to end against a temp snapshot
type CLITestSuite struct {
	suite.Suite
	dir    string
	export string
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

// SetupTest gives every test a fresh snapshot and default flags
func (s *CLITestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	abs, err := filepath.Abs(filepath.Join("testdata", "export.json"))
	s.Require().NoError(err)
	s.export = abs

	configPath = filepath.Join(s.dir, "missing.yaml")
	dbPath = filepath.Join(s.dir, "snapshot.db")
	verbose = false
	searchStrategy = ""
	searchLimit = 0
	searchJSON = false
	searchInteractive = false
	importSample = false
}

// run executes the root command and returns its stdout
func (s *CLITestSuite) run(stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", configPath, "--db", dbPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (s *CLITestSuite) importExport() {
	out, err := s.run("", "import", s.export)
	s.Require().NoError(err)
	s.Contains(out, "Imported 4 bookmarks in 2 folders, 1 tabs and 1 history entries from export.json")
}

func (s *CLITestSuite) TestImportRequiresSource() {
	_, err := s.run("", "import")
	s.Error(err)
}

func (s *CLITestSuite) TestImportSample() {
	out, err := s.run("", "import", "--sample")
	s.Require().NoError(err)
	s.Contains(out, "Imported 6 bookmarks")
	s.Contains(out, "from sample")
}

func (s *CLITestSuite) TestSearchText() {
	s.importExport()

	out, err := s.run("", "search", "b pandoc")
	s.Require().NoError(err)
	s.Contains(out, "[bookmark] Try pandoc!")
	s.Contains(out, "https://pandoc.org/try/")
	s.Contains(out, "~Dev  #md")
	s.Contains(out, "1 of 1 results (bookmarks, precise")
}

func (s *CLITestSuite) TestSearchJSON() {
	s.importExport()

	out, err := s.run("", "search", "--json", "--limit", "1", "#lang")
	s.Require().NoError(err)

	var view mcp.SearchView
	s.Require().NoError(json.Unmarshal([]byte(out), &view))
	s.Equal("tags", view.Mode)
	s.Equal(2, view.Matched)
	s.Require().Len(view.Results, 1)
	s.Equal("bookmark", view.Results[0].Kind)
}

func (s *CLITestSuite) TestSearchStrategyFromEnv() {
	s.importExport()
	s.T().Setenv("MARKSEARCH_SEARCH_STRATEGY", "fuzzy")

	out, err := s.run("", "search", "--json", "b pndc")
	s.Require().NoError(err)

	var view mcp.SearchView
	s.Require().NoError(json.Unmarshal([]byte(out), &view))
	s.Equal("fuzzy", view.Strategy)
	s.Require().NotEmpty(view.Results)
	s.Equal("10", view.Results[0].ID)
}

func (s *CLITestSuite) TestSearchUnsupportedStrategy() {
	s.importExport()

	_, err := s.run("", "search", "--strategy", "semantic", "go")
	s.ErrorContains(err, "unsupported search strategy")
}

func (s *CLITestSuite) TestSearchInteractiveCollapsesBursts() {
	s.importExport()
	s.T().Setenv("MARKSEARCH_SEARCH_DEBOUNCE_MS", "1000")

	out, err := s.run("b pan\nb pando\nb pandoc\n:q\nignored\n", "search", "-i")
	s.Require().NoError(err)
	s.Equal(1, strings.Count(out, " results ("), "one search for the whole burst")
	s.Contains(out, "Try pandoc!")
}

func (s *CLITestSuite) TestSearchFallsBackWithoutImport() {
	out, err := s.run("", "search", "b pandoc")
	s.Require().NoError(err)
	s.Contains(out, "Pandoc - document converter")
}

func (s *CLITestSuite) TestStatus() {
	s.importExport()

	out, err := s.run("", "status")
	s.Require().NoError(err)
	s.Contains(out, "4 bookmarks, 2 folders, 1 tabs, 1 history")
	s.Contains(out, "export.json")
	s.Contains(out, "provider")
	s.Contains(out, "Strategy:")
}

func TestOverrideValues(t *testing.T) {
	values, err := overrideValues(map[string]string{"search_strategy": "fuzzy", "display_score": "true"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"search_strategy": "fuzzy", "display_score": "true"}, values)

	_, err = overrideValues(map[string]string{"search_stratgy": "fuzzy"})
	assert.ErrorContains(t, err, `unknown config key "search_stratgy"`)
	assert.ErrorContains(t, err, "search_strategy")
}
