package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Search strategies
const (
	StrategyPrecise = "precise"
	StrategyFuzzy   = "fuzzy"
)

// DefaultPath is the default location of the config file
const DefaultPath = "~/.marksearch/config.yaml"

// SearchEngine is a fallback web search offered alongside results
type SearchEngine struct {
	Name      string `yaml:"name"`
	URLPrefix string `yaml:"url_prefix"`
}

// Config holds every setting the search core reads. It is treated as
// read-only input for each search call.
type Config struct {
	// --- Search ---
	SearchStrategy       string         `yaml:"search_strategy"`         // precise or fuzzy
	SearchMaxResults     int            `yaml:"search_max_results"`      // Cap on results (taxonomy modes exempt)
	SearchMinScore       float64        `yaml:"search_min_score"`        // Results below are dropped
	SearchMinMatchLength int            `yaml:"search_min_match_length"` // Shorter query terms are discarded
	SearchMinTokenLength int            `yaml:"search_min_token_length"` // Shortest indexed prefix token
	SearchMinMatchRatio  float64        `yaml:"search_min_match_ratio"`  // Fraction of terms that must match
	SearchFuzzyTolerance float64        `yaml:"search_fuzzy_tolerance"`  // 0 = exact, 1 = very loose
	SearchDebounceMs     int            `yaml:"search_debounce_ms"`      // Quiet period after last keystroke
	SearchCacheSize      int            `yaml:"search_cache_size"`       // LRU entries, 0 disables the cache
	SearchEngines        []SearchEngine `yaml:"search_engines"`          // Fallback web searches

	// --- Base scores ---
	ScoreBookmarkBase     float64 `yaml:"score_bookmark_base"`
	ScoreTabBase          float64 `yaml:"score_tab_base"`
	ScoreHistoryBase      float64 `yaml:"score_history_base"`
	ScoreSearchEngineBase float64 `yaml:"score_search_engine_base"`
	ScoreDirectURLBase    float64 `yaml:"score_direct_url_base"`

	// --- Field weights ---
	ScoreTitleWeight  float64 `yaml:"score_title_weight"`
	ScoreTagWeight    float64 `yaml:"score_tag_weight"`
	ScoreURLWeight    float64 `yaml:"score_url_weight"`
	ScoreFolderWeight float64 `yaml:"score_folder_weight"`

	// --- Match bonuses ---
	ScoreExactStartsWithBonus  float64 `yaml:"score_exact_starts_with_bonus"`
	ScoreExactIncludesBonus    float64 `yaml:"score_exact_includes_bonus"`
	ScoreExactEqualsBonus      float64 `yaml:"score_exact_equals_bonus"`
	ScoreExactPhraseTitleBonus float64 `yaml:"score_exact_phrase_title_bonus"`
	ScoreExactPhraseURLBonus   float64 `yaml:"score_exact_phrase_url_bonus"`
	ScoreExactTagMatchBonus    float64 `yaml:"score_exact_tag_match_bonus"`
	ScoreExactFolderMatchBonus float64 `yaml:"score_exact_folder_match_bonus"`

	// --- Usage signals ---
	ScoreVisitedBonusPerVisit float64 `yaml:"score_visited_bonus_per_visit"`
	ScoreVisitedBonusMax      float64 `yaml:"score_visited_bonus_max"`
	ScoreRecentBonusMax       float64 `yaml:"score_recent_bonus_max"`
	ScoreBookmarkOpenTabBonus float64 `yaml:"score_bookmark_open_tab_bonus"`
	ScoreCustomBonus          bool    `yaml:"score_custom_bonus"`

	// --- Data acquisition ---
	HistoryDaysAgo         int      `yaml:"history_days_ago"`
	HistoryMaxItems        int      `yaml:"history_max_items"`
	HistoryIgnoreList      []string `yaml:"history_ignore_list"`
	BookmarksIgnoreFolders []string `yaml:"bookmarks_ignore_folders"`
	DetectDuplicates       bool     `yaml:"detect_duplicates"`

	// --- Display ---
	DisplayVisitCounter bool `yaml:"display_visit_counter"`
	DisplayLastVisit    bool `yaml:"display_last_visit"`
	DisplayScore        bool `yaml:"display_score"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		SearchStrategy:       StrategyPrecise,
		SearchMaxResults:     32,
		SearchMinScore:       30,
		SearchMinMatchLength: 1,
		SearchMinTokenLength: 1,
		SearchMinMatchRatio:  1.0,
		SearchFuzzyTolerance: 0.6,
		SearchDebounceMs:     70,
		SearchCacheSize:      256,
		SearchEngines: []SearchEngine{
			{Name: "Google", URLPrefix: "https://www.google.com/search?q="},
			{Name: "DuckDuckGo", URLPrefix: "https://duckduckgo.com/?q="},
			{Name: "Bing", URLPrefix: "https://www.bing.com/search?q="},
		},

		ScoreBookmarkBase:     100,
		ScoreTabBase:          70,
		ScoreHistoryBase:      45,
		ScoreSearchEngineBase: 30,
		ScoreDirectURLBase:    500,

		ScoreTitleWeight:  1.0,
		ScoreTagWeight:    0.7,
		ScoreURLWeight:    0.6,
		ScoreFolderWeight: 0.5,

		ScoreExactStartsWithBonus:  10,
		ScoreExactIncludesBonus:    5,
		ScoreExactEqualsBonus:      15,
		ScoreExactPhraseTitleBonus: 8,
		ScoreExactPhraseURLBonus:   5,
		ScoreExactTagMatchBonus:    10,
		ScoreExactFolderMatchBonus: 5,

		ScoreVisitedBonusPerVisit: 0.5,
		ScoreVisitedBonusMax:      20,
		ScoreRecentBonusMax:       20,
		ScoreBookmarkOpenTabBonus: 10,
		ScoreCustomBonus:          true,

		HistoryDaysAgo:         14,
		HistoryMaxItems:        1024,
		HistoryIgnoreList:      []string{},
		BookmarksIgnoreFolders: []string{},

		DisplayLastVisit: true,
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadWithOverrides loads the file, then applies environment overrides and
// validates the result.
func LoadWithOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories
func (c *Config) Save(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks settings that would make searching impossible
func (c *Config) Validate() error {
	if err := ValidateStrategy(c.SearchStrategy); err != nil {
		return err
	}
	if c.SearchMinMatchRatio <= 0 || c.SearchMinMatchRatio > 1 {
		return fmt.Errorf("search_min_match_ratio must be in (0, 1], got %v", c.SearchMinMatchRatio)
	}
	if c.SearchFuzzyTolerance < 0 || c.SearchFuzzyTolerance > 1 {
		return fmt.Errorf("search_fuzzy_tolerance must be in [0, 1], got %v", c.SearchFuzzyTolerance)
	}
	if c.SearchMaxResults <= 0 {
		return fmt.Errorf("search_max_results must be positive, got %d", c.SearchMaxResults)
	}
	if c.SearchMinTokenLength < 1 {
		return fmt.Errorf("search_min_token_length must be at least 1, got %d", c.SearchMinTokenLength)
	}
	if c.HistoryDaysAgo < 0 || c.HistoryMaxItems < 0 {
		return errors.New("history_days_ago and history_max_items must not be negative")
	}
	return nil
}

// ValidateStrategy returns ErrUnsupportedStrategy for unknown strategies
func ValidateStrategy(strategy string) error {
	switch strategy {
	case StrategyPrecise, StrategyFuzzy:
		return nil
	default:
		return fmt.Errorf("%w: %q", types.ErrUnsupportedStrategy, strategy)
	}
}

// FieldWeights returns the field weights as a types value
func (c *Config) FieldWeights() types.FieldWeights {
	return types.FieldWeights{
		Title:  c.ScoreTitleWeight,
		URL:    c.ScoreURLWeight,
		Tag:    c.ScoreTagWeight,
		Folder: c.ScoreFolderWeight,
	}
}

// BaseScore returns the configured base score for a record kind
func (c *Config) BaseScore(k types.Kind) float64 {
	switch k {
	case types.KindBookmark:
		return c.ScoreBookmarkBase
	case types.KindTab:
		return c.ScoreTabBase
	case types.KindHistory:
		return c.ScoreHistoryBase
	case types.KindSearchEngine:
		return c.ScoreSearchEngineBase
	case types.KindDirectURL:
		return c.ScoreDirectURLBase
	default:
		return 0
	}
}

// DebounceDelay returns the keystroke quiet period
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

// HistoryWindow returns the history retention window
func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.HistoryDaysAgo) * 24 * time.Hour
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	cp := *c
	cp.SearchEngines = slices.Clone(c.SearchEngines)
	cp.HistoryIgnoreList = slices.Clone(c.HistoryIgnoreList)
	cp.BookmarksIgnoreFolders = slices.Clone(c.BookmarksIgnoreFolders)
	return &cp
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
