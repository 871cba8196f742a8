// scout/utils/types/scrape.go
package types

import (
	"time"
)

type ScrapeOptions struct {
	Timeout time.Duration // navigation timeout, default 30s
}

// Link is one anchor found on a rendered page. Label is nil when the anchor has no text.
type Link struct {
	Label *string `json:"label,omitempty"`
	Href  string  `json:"href"`
}

// PageResult is the outcome of fetching one URL. A nil Text means the fetch failed
// entirely; that is a normal result and callers skip the URL.
type PageResult struct {
	URL   string  `json:"url"`
	Text  *string `json:"text,omitempty"`
	Links []Link  `json:"links,omitempty"`
}

// OK reports whether the page produced any text.
func (p PageResult) OK() bool {
	return p.Text != nil
}

// Chunk is a contiguous slice of a page's text. Offset is in runes.
type Chunk struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Summary renders the result the way the agent prompts expect it: "title - url".
func (r SearchResult) Summary() string {
	return r.Title + " - " + r.URL
}

type CrawlEventType string

const (
	EventFetched CrawlEventType = "fetched"
	EventFailed  CrawlEventType = "failed"
	EventSkipped CrawlEventType = "skipped"
	EventStored  CrawlEventType = "stored"
	EventPicked  CrawlEventType = "picked"
	EventSearch  CrawlEventType = "search"
	EventDone    CrawlEventType = "done"
)

// CrawlEvent reports crawl progress to observers such as the websocket route.
type CrawlEvent struct {
	Type   CrawlEventType `json:"type"`
	URL    string         `json:"url,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Time   time.Time      `json:"time"`
}

type SearchRequest struct {
	UserInput string `json:"user_input"`
	Depth     int    `json:"depth"`
	Timeout   int    `json:"timeout"`
}

type BrowseRequest struct {
	UserInput string `json:"user_input"`
}

type CrawlStats struct {
	Fetched int64 `json:"fetched"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
	Stored  int64 `json:"stored"`
}

type SearchResponse struct {
	SessionID string     `json:"session_id"`
	Message   string     `json:"message"`
	Stats     CrawlStats `json:"stats"`
}

type LoginRequest struct {
	Username string `json:"username"`
}
