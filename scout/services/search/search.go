// Package search resolves queries into candidate pages through interchangeable backends.
package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scout/scout/config"
)

// Searcher returns "title - url" summaries for a query.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]string, error)
}

// New builds the backend named in cfg.SearchBackend. Each call returns a
// fresh backend, so failure memory stays scoped to the caller's session.
func New(cfg config.Config) (Searcher, error) {
	switch cfg.SearchBackend {
	case "", "searxng":
		opts := []SelectorOption{
			WithDirectoryURL(cfg.SearxDirectoryURL),
			WithFallbackURL(cfg.SearxFallbackURL),
		}
		if cfg.SearxInstanceURL != "" {
			opts = append(opts, WithInstance(cfg.SearxInstanceURL))
		}
		if cfg.SearchRequestTimeout > 0 {
			opts = append(opts, WithHTTPClient(newClient(cfg.SearchRequestTimeout)))
		}
		return NewSelector(opts...), nil
	case "duckduckgo":
		return NewDuckDuckGo(newClient(cfg.SearchRequestTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.SearchBackend)
	}
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
