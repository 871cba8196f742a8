package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// anchorsScript collects every anchor's visible text and resolved href after scripts ran.
const anchorsScript = `() => Array.from(document.querySelectorAll("a")).map(a => ({label: a.textContent, href: a.href}))`

// PlaywrightRenderer renders pages in headless Chromium. One browser is shared;
// every Render gets its own browser context.
type PlaywrightRenderer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    types.ScrapeOptions

	closeOnce sync.Once
}

// NewPlaywrightRenderer starts the Playwright driver and launches Chromium.
func NewPlaywrightRenderer(opts types.ScrapeOptions) (*PlaywrightRenderer, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-background-timer-throttling",
			"--disable-backgrounding-occluded-windows",
			"--disable-renderer-backgrounding",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &PlaywrightRenderer{pw: pw, browser: browser, opts: opts}, nil
}

// Close shuts down the browser and stops Playwright
func (r *PlaywrightRenderer) Close() {
	r.closeOnce.Do(func() {
		if r.browser != nil {
			r.browser.Close()
		}
		if r.pw != nil {
			r.pw.Stop()
		}
	})
}

// Render navigates to targetURL, waits for the load event and returns the DOM
// as HTML together with its anchors.
func (r *PlaywrightRenderer) Render(ctx context.Context, targetURL string) (string, []types.Link, error) {
	defer logging.LogDuration(ctx, "playwright_render")()
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	bctx, err := r.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(defaultUserAgent),
		Viewport:          &playwright.Size{Width: 1920, Height: 1080},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return "", nil, err
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return "", nil, err
	}
	defer page.Close()

	// Abort the navigation as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() { page.Close() })
	defer stop()

	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(r.opts.Timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	content, err := page.Content()
	if err != nil {
		return "", nil, err
	}

	raw, err := page.Evaluate(anchorsScript)
	if err != nil {
		logging.AppLogger.Warn("anchor collection failed", zap.String("url", targetURL), zap.Error(err))
		return content, nil, nil
	}
	return content, decodeAnchors(raw), nil
}

// decodeAnchors converts the evaluate() result into links, dropping entries without an href.
func decodeAnchors(raw interface{}) []types.Link {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	links := make([]types.Link, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		href, _ := m["href"].(string)
		if href == "" {
			continue
		}
		label, _ := m["label"].(string)
		links = append(links, types.Link{Label: labelPtr(label), Href: strings.TrimSpace(href)})
	}
	return links
}
