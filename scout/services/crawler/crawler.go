// Package crawler walks pages recursively: fetch, summarize each chunk, let
// the agent pick the next link, repeat. A Controller belongs to one session.
package crawler

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"scout/scout/config"
	"scout/scout/services/chunker"
	"scout/scout/services/llm"
	"scout/scout/utils/llmtext"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PageFetcher never fails; an unreachable page comes back with nil Text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) types.PageResult
}

// Links above maxLinksBeforeCap are cut down to cappedLinks before ranking.
const (
	maxLinksBeforeCap = 5
	cappedLinks       = 3
)

type Controller struct {
	fetcher   PageFetcher
	agent     llm.Agent
	store     KnowledgeStore
	agentName string
	maxTokens int
	counter   chunker.TokenCounter
	maxDepth  int
	archive   PageArchive
	observer  func(types.CrawlEvent)
	limit     *semaphore.Weighted

	visited *VisitedSet

	fetched atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
	stored  atomic.Int64
}

type Option func(*Controller)

func WithAgentName(name string) Option {
	return func(c *Controller) { c.agentName = name }
}

func WithMaxTokens(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTokenCounter(tc chunker.TokenCounter) Option {
	return func(c *Controller) { c.counter = tc }
}

// WithMaxDepth limits a traversal to n levels of pages, seeds included.
// 0 means unbounded.
func WithMaxDepth(n int) Option {
	return func(c *Controller) { c.maxDepth = n }
}

// WithConcurrency bounds the number of simultaneous page fetches.
func WithConcurrency(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithArchive(a PageArchive) Option {
	return func(c *Controller) { c.archive = a }
}

// WithObserver receives every crawl event. It is called from crawl goroutines
// and must not block for long.
func WithObserver(fn func(types.CrawlEvent)) Option {
	return func(c *Controller) { c.observer = fn }
}

func NewController(fetcher PageFetcher, agent llm.Agent, store KnowledgeStore, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		agent:     agent,
		store:     store,
		maxTokens: config.DefaultMaxTokens,
		counter:   chunker.EstimateTokens,
		limit:     semaphore.NewWeighted(4),
		visited:   NewVisitedSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OptionsFromConfig maps the crawl settings of cfg onto controller options.
func OptionsFromConfig(cfg config.Config) []Option {
	return []Option{
		WithAgentName(cfg.AgentName),
		WithMaxTokens(cfg.MaxTokens),
		WithMaxDepth(cfg.MaxCrawlDepth),
		WithConcurrency(cfg.MaxConcurrentFetches),
	}
}

func (c *Controller) Visited() *VisitedSet {
	return c.visited
}

func (c *Controller) Stats() types.CrawlStats {
	return types.CrawlStats{
		Fetched: c.fetched.Load(),
		Failed:  c.failed.Load(),
		Skipped: c.skipped.Load(),
		Stored:  c.stored.Load(),
	}
}

// Browse visits candidates and everything the agent decides to follow from
// them. It returns when the whole traversal has finished, or with ctx's
// error once ctx is done and in-flight branches have stopped.
func (c *Controller) Browse(ctx context.Context, intent string, candidates []string) error {
	var g errgroup.Group
	c.browse(ctx, &g, intent, candidates, 0)
	g.Wait()
	return ctx.Err()
}

// browse handles one branch: its URLs are processed in order, while every
// followed link becomes a new task in g.
func (c *Controller) browse(ctx context.Context, g *errgroup.Group, intent string, candidates []string, depth int) {
	for _, u := range normalizeCandidates(candidates) {
		if ctx.Err() != nil {
			return
		}
		next := c.visit(ctx, intent, u)
		if len(next) == 0 {
			continue
		}
		if c.maxDepth > 0 && depth+1 >= c.maxDepth {
			logging.AppLogger.Debug("max depth reached", zap.String("url", u), zap.Int("depth", depth))
			continue
		}
		g.Go(func() error {
			c.browse(ctx, g, intent, next, depth+1)
			return nil
		})
	}
}

// visit fetches one URL, stores its summaries and returns the links the agent
// picked. Agent failures end the branch here.
func (c *Controller) visit(ctx context.Context, intent, pageURL string) []string {
	if !c.visited.MarkIfNotVisited(pageURL) {
		c.skipped.Add(1)
		c.emit(types.EventSkipped, pageURL, "already visited")
		return nil
	}

	if err := c.limit.Acquire(ctx, 1); err != nil {
		return nil
	}
	logging.AppLogger.Info("scraping", zap.String("url", pageURL))
	page := c.fetcher.Fetch(ctx, pageURL)
	c.limit.Release(1)

	if !page.OK() && len(page.Links) == 0 {
		c.failed.Add(1)
		c.emit(types.EventFailed, pageURL, "")
		return nil
	}
	c.fetched.Add(1)
	c.emit(types.EventFetched, pageURL, "")

	if page.Text != nil && *page.Text != "" {
		if !c.summarize(ctx, intent, pageURL, *page.Text) {
			return nil
		}
	}

	if len(page.Links) == 0 || ctx.Err() != nil {
		return nil
	}
	return c.pick(ctx, intent, pageURL, page.Links)
}

// summarize runs every chunk through the agent and stores the useful answers.
// It reports false when the branch should stop.
func (c *Controller) summarize(ctx context.Context, intent, pageURL, text string) bool {
	if c.archive != nil {
		if _, err := c.archive.ArchivePage(ctx, pageURL, text); err != nil {
			logging.ErrorLogger.Warn("archive page failed", zap.String("url", pageURL), zap.Error(err))
		}
	}

	for _, chunk := range chunker.Split(text, c.maxTokens, c.counter) {
		if ctx.Err() != nil {
			return false
		}
		summary, err := c.agent.PromptAgent(ctx, c.agentName, llm.PromptSummarize, map[string]any{
			"link":           pageURL,
			"chunk":          chunk.Text,
			"disable_memory": true,
			"user_input":     intent,
		})
		if err != nil {
			logging.ErrorLogger.Error("summarize failed, moving on",
				zap.String("url", pageURL), zap.Int("chunk", chunk.Index), zap.Error(err))
			return false
		}
		if llmtext.IsSentinel(summary) {
			continue
		}
		if err := c.store.StoreResult(ctx, intent, summary, pageURL); err != nil {
			logging.ErrorLogger.Error("store result failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		c.stored.Add(1)
		c.emit(types.EventStored, pageURL, summary)
	}
	return true
}

func (c *Controller) pick(ctx context.Context, intent, pageURL string, links []types.Link) []string {
	if len(links) > maxLinksBeforeCap {
		links = links[:cappedLinks]
	}
	decision, err := c.agent.PromptAgent(ctx, c.agentName, llm.PromptPickLink, map[string]any{
		"links":          formatLinks(links),
		"disable_memory": true,
		"user_input":     intent,
	})
	if err != nil {
		logging.ErrorLogger.Error("pick-a-link failed, moving on", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	next, ok := llmtext.ExtractURL(decision)
	if !ok {
		return nil
	}
	logging.AppLogger.Info("agent decided to click", zap.String("from", pageURL), zap.String("link", next))
	c.emit(types.EventPicked, pageURL, next)
	return []string{next}
}

func (c *Controller) emit(t types.CrawlEventType, u, detail string) {
	if c.observer == nil {
		return
	}
	c.observer(types.CrawlEvent{Type: t, URL: u, Detail: detail, Time: time.Now()})
}

// normalizeCandidates accepts bare URLs, "title - url" search summaries or
// free text and returns the http(s) URLs found, in order.
func normalizeCandidates(candidates []string) []string {
	var out []string
	for _, cand := range candidates {
		out = append(out, llmtext.URLTokens(cand)...)
	}
	return out
}

// formatLinks renders links one per line as "label - href".
func formatLinks(links []types.Link) string {
	var sb strings.Builder
	for i, l := range links {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if l.Label != nil {
			sb.WriteString(*l.Label)
			sb.WriteString(" - ")
		}
		sb.WriteString(l.Href)
	}
	return sb.String()
}
