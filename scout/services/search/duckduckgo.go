package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"scout/scout/utils/llmtext"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DuckDuckGo scrapes the HTML results page. It has no failover of its own.
type DuckDuckGo struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	if client == nil {
		client = http.DefaultClient
	}
	return &DuckDuckGo{client: client, baseURL: "https://duckduckgo.com/html/", maxResults: 20}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]string, error) {
	results, err := d.QueryWeb(ctx, query, d.maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("duckduckgo: no results for %q: %w", query, ErrSearchExhausted)
	}
	summaries := make([]string, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, r.Summary())
	}
	return summaries, nil
}

// QueryWeb returns up to maxResults structured results for query.
func (d *DuckDuckGo) QueryWeb(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	defer logging.LogDuration(ctx, "duckduckgo_query")()
	params := url.Values{}
	params.Add("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: bad status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}

	var results []types.SearchResult
	doc.Find(".result__body").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(results) >= maxResults {
			return false
		}
		titleSel := s.Find(".result__title a")
		if titleSel.Length() == 0 {
			return true
		}
		href, exists := titleSel.Attr("href")
		if !exists {
			return true
		}

		actualURL := href
		if parsed, err := url.Parse(href); err == nil {
			if uddg := parsed.Query().Get("uddg"); uddg != "" {
				actualURL = uddg
			}
		}
		if !llmtext.IsHTTPURL(actualURL) {
			logging.AppLogger.Debug("skipping duckduckgo result", zap.String("href", href))
			return true
		}

		results = append(results, types.SearchResult{
			URL:     actualURL,
			Title:   strings.TrimSpace(titleSel.Text()),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return true
	})

	return results, nil
}
