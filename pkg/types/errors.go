package types

import "errors"

// Configuration errors are fatal and never retried
var (
	ErrUnsupportedStrategy = errors.New("unsupported search strategy")
	ErrFuzzyUnavailable    = errors.New("fuzzy search unavailable")
)

// Catalog and edit errors
var (
	ErrBookmarkNotFound  = errors.New("bookmark not found")
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrNotLoaded         = errors.New("records not loaded")
	ErrInvalidURL        = errors.New("invalid url")
)

// Result validation errors
var (
	ErrMissingRecord       = errors.New("record is required")
	ErrInvalidMatchQuality = errors.New("match quality must be between 0 and 1")
)
