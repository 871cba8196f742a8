// Package scraper renders pages and turns them into normalized text plus outbound links.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"scout/scout/config"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"go.uber.org/zap"
)

// Renderer produces the DOM of a page after its scripts ran. anchors may be
// nil when the renderer cannot inspect the live DOM; links are then parsed
// from the returned HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (html string, anchors []types.Link, err error)
}

// TextExtractor is the HTML-to-text capability.
type TextExtractor interface {
	ExtractText(html string) (string, error)
	ExtractLinks(base, html string) ([]types.Link, error)
}

// Fetcher is the page fetcher used by the crawler. It never returns an error:
// every failure is reported as a PageResult with nil Text and Links.
type Fetcher struct {
	renderer  Renderer
	extractor TextExtractor
	robots    *RobotsGate
}

type FetcherOption func(*Fetcher)

func WithExtractor(e TextExtractor) FetcherOption {
	return func(f *Fetcher) {
		f.extractor = e
	}
}

// WithRobots makes Fetch skip URLs disallowed by robots.txt.
func WithRobots(g *RobotsGate) FetcherOption {
	return func(f *Fetcher) {
		f.robots = g
	}
}

func NewFetcher(r Renderer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{renderer: r, extractor: GoqueryExtractor{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, targetURL string) types.PageResult {
	absent := types.PageResult{URL: targetURL}

	if f.robots != nil && !f.robots.Allowed(ctx, targetURL) {
		logging.AppLogger.Info("robots.txt disallows url", zap.String("url", targetURL))
		return absent
	}

	content, anchors, err := f.renderer.Render(ctx, targetURL)
	if err != nil {
		logging.AppLogger.Warn("render failed", zap.String("url", targetURL), zap.Error(err))
		return absent
	}

	text, err := f.extractor.ExtractText(content)
	if err != nil {
		logging.AppLogger.Warn("text extraction failed", zap.String("url", targetURL), zap.Error(err))
		return absent
	}

	if anchors == nil {
		anchors, err = f.extractor.ExtractLinks(targetURL, content)
		if err != nil {
			logging.AppLogger.Warn("link extraction failed", zap.String("url", targetURL), zap.Error(err))
		}
	}

	return types.PageResult{URL: targetURL, Text: &text, Links: anchors}
}

// StaticRenderer fetches raw HTML over HTTP without running scripts. It is
// the fallback when no browser is available.
type StaticRenderer struct {
	client      *http.Client
	maxBodySize int64
}

func NewStaticRenderer(timeout time.Duration) *StaticRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StaticRenderer{client: &http.Client{Timeout: timeout}, maxBodySize: 10 * 1024 * 1024}
}

func (s *StaticRenderer) Render(ctx context.Context, targetURL string) (string, []types.Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return "", nil, err
	}
	return string(body), nil, nil
}

// NewFromConfig builds the fetcher described by cfg. The returned close func
// releases the browser, if one was started.
func NewFromConfig(cfg config.Config) (*Fetcher, func(), error) {
	var (
		renderer Renderer
		closer   = func() {}
	)
	switch cfg.Renderer {
	case "", "playwright":
		pr, err := NewPlaywrightRenderer(types.ScrapeOptions{Timeout: cfg.NavigationTimeout})
		if err != nil {
			return nil, nil, err
		}
		renderer, closer = pr, pr.Close
	case "static":
		renderer = NewStaticRenderer(cfg.NavigationTimeout)
	default:
		return nil, nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}

	var opts []FetcherOption
	if cfg.RespectRobots {
		opts = append(opts, WithRobots(NewRobotsGate(nil, "scout")))
	}
	return NewFetcher(renderer, opts...), closer, nil
}
