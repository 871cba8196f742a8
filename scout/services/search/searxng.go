package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	httputils "scout/scout/utils/http"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"go.uber.org/zap"
)

// ErrSearchExhausted is returned once the directory and the fallback endpoint
// have all failed for the session.
var ErrSearchExhausted = errors.New("search: no working search backend left")

// errNoResults marks an endpoint that answered with an empty result set.
var errNoResults = errors.New("empty result set")

// Selector binds a SearXNG endpoint for a session and fails over to another
// one whenever the bound endpoint errors or returns nothing. Failed endpoints
// are never selected again by the same Selector.
type Selector struct {
	client       *http.Client
	directoryURL string
	fallbackURL  string
	pick         func(n int) int

	mu       sync.Mutex
	current  string
	failures map[string]struct{}
}

type SelectorOption func(*Selector)

// WithInstance pre-binds a fixed endpoint. It still fails over like any other.
func WithInstance(endpoint string) SelectorOption {
	return func(s *Selector) {
		s.current = endpoint
	}
}

func WithDirectoryURL(u string) SelectorOption {
	return func(s *Selector) {
		s.directoryURL = u
	}
}

func WithFallbackURL(u string) SelectorOption {
	return func(s *Selector) {
		s.fallbackURL = u
	}
}

func WithHTTPClient(c *http.Client) SelectorOption {
	return func(s *Selector) {
		s.client = c
	}
}

// WithPicker replaces the random choice among candidate endpoints.
func WithPicker(pick func(n int) int) SelectorOption {
	return func(s *Selector) {
		s.pick = pick
	}
}

func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{
		client:       &http.Client{Timeout: 15 * time.Second},
		directoryURL: "https://searx.space/data/instances.json",
		fallbackURL:  "https://search.us.projectsegfau.lt",
		pick:         rand.Intn,
		failures:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Selector) Name() string { return "searxng" }

// Current returns the bound endpoint, or "" when none is bound.
func (s *Selector) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Failures returns the endpoints excluded for this session.
func (s *Selector) Failures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.failures))
	for ep := range s.failures {
		out = append(out, ep)
	}
	sort.Strings(out)
	return out
}

// Select returns the bound endpoint, binding a new one when needed: a random
// live directory entry that has not failed, else the fallback endpoint.
func (s *Selector) Select(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" {
		if _, failed := s.failures[s.current]; !failed {
			return s.current, nil
		}
		s.current = ""
	}

	candidates, err := s.fetchDirectory(ctx)
	if err != nil {
		logging.AppLogger.Warn("searxng directory unavailable, using fallback",
			zap.String("directory", s.directoryURL), zap.Error(err))
	}
	if len(candidates) == 0 {
		if _, failed := s.failures[s.fallbackURL]; failed || s.fallbackURL == "" {
			return "", ErrSearchExhausted
		}
		s.current = s.fallbackURL
		return s.current, nil
	}

	s.current = candidates[s.pick(len(candidates))]
	return s.current, nil
}

// fetchDirectory lists directory endpoints minus recorded failures. Caller holds mu.
func (s *Selector) fetchDirectory(ctx context.Context) ([]string, error) {
	var dir struct {
		Instances map[string]json.RawMessage `json:"instances"`
	}
	if err := httputils.GetJSON(ctx, s.client, s.directoryURL, nil, &dir); err != nil {
		return nil, fmt.Errorf("fetch directory: %w", err)
	}
	candidates := make([]string, 0, len(dir.Instances))
	for ep := range dir.Instances {
		if _, failed := s.failures[ep]; failed {
			continue
		}
		candidates = append(candidates, ep)
	}
	sort.Strings(candidates)
	return candidates, nil
}

// MarkFailed excludes endpoint for the rest of the session and clears the binding.
func (s *Selector) MarkFailed(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = struct{}{}
	if s.current == endpoint {
		s.current = ""
	}
}

// Search runs query against the bound endpoint, failing over until an endpoint
// returns at least one result or ErrSearchExhausted.
func (s *Selector) Search(ctx context.Context, query string) ([]string, error) {
	defer logging.LogDuration(ctx, "searxng_search")()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		endpoint, err := s.Select(ctx)
		if err != nil {
			return nil, err
		}

		logging.AppLogger.Info("trying SearXNG search", zap.String("endpoint", endpoint), zap.String("query", query))
		results, err := s.query(ctx, endpoint, query)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logging.AppLogger.Warn("search endpoint failed", zap.String("endpoint", endpoint), zap.Error(err))
		s.MarkFailed(endpoint)
	}
}

func (s *Selector) query(ctx context.Context, endpoint, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("safesearch", "1")
	params.Set("format", "json")

	var resp struct {
		Results []types.SearchResult `json:"results"`
	}
	if err := httputils.GetJSON(ctx, s.client, strings.TrimRight(endpoint, "/")+"/search", params, &resp); err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		summaries = append(summaries, r.Summary())
	}
	if len(summaries) == 0 {
		return nil, errNoResults
	}
	return summaries, nil
}
