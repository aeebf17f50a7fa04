package indexer

import "github.com/steemit/hnspool/pkg/config"

// Options carries the ingestion settings the core needs
type Options struct {
	DefaultLimit    int
	MaxLimit        int
	MaxDepth        int
	RetraverseKnown bool
}

// OptionsFromConfig builds Options from the indexer configuration
func OptionsFromConfig(cfg *config.IndexerConfig) Options {
	return Options{
		DefaultLimit:    cfg.DefaultLimit,
		MaxLimit:        cfg.MaxLimit,
		MaxDepth:        cfg.MaxDepth,
		RetraverseKnown: cfg.RetraverseKnown,
	}
}

// Limit resolves a requested story limit. Non-positive values use the
// default and the result is clamped to [1, MaxLimit].
func (o Options) Limit(requested int) int {
	maxLimit := o.MaxLimit
	if maxLimit <= 0 || maxLimit > config.MaxStoryLimit {
		maxLimit = config.MaxStoryLimit
	}

	limit := requested
	if limit <= 0 {
		limit = o.DefaultLimit
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
