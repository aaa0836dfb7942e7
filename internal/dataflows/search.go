package dataflows

import (
	"context"
	"fmt"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/logger"
)

// FallbackSearcher tries each searcher in order until one succeeds.
type FallbackSearcher struct {
	searchers []Searcher
	log       *logger.Logger
}

func (f *FallbackSearcher) Search(ctx context.Context, query string) (string, error) {
	var lastErr error
	for i, s := range f.searchers {
		out, err := s.Search(ctx, query)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i < len(f.searchers)-1 {
			f.log.Warnw("search provider failed, trying next", "error", err)
		}
	}
	return "", fmt.Errorf("all search providers failed: %w", lastErr)
}

// NewSearcher prefers SerpAPI when a key is configured and falls back to
// DuckDuckGo.
func NewSearcher(cfg *config.Config, log *logger.Logger) Searcher {
	if log == nil {
		log = logger.Nop()
	}
	ddg := NewDuckDuckGoClient(cfg)
	if cfg.Search.Provider != config.SearchSerpAPI || cfg.Search.SerpAPIKey == "" {
		return ddg
	}
	return &FallbackSearcher{
		searchers: []Searcher{NewSerpAPIClient(cfg), ddg},
		log:       log.Component("search"),
	}
}
