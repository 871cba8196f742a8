// Package websearch drives a research session: expand the question into
// queries, search each one and crawl the results.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scout/scout/services/crawler"
	"scout/scout/services/llm"
	"scout/scout/services/search"
	"scout/scout/utils/llmtext"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultDepth is the number of search results crawled per query.
const DefaultDepth = 3

// Orchestrator owns one session. Its crawler's visited set and its search
// backend's failure list live as long as the Orchestrator.
type Orchestrator struct {
	ID        string
	agent     llm.Agent
	agentName string
	searcher  search.Searcher
	crawler   *crawler.Controller
	observer  func(types.CrawlEvent)
}

func New(agent llm.Agent, agentName string, searcher search.Searcher, c *crawler.Controller) *Orchestrator {
	return &Orchestrator{
		ID:        uuid.New().String(),
		agent:     agent,
		agentName: agentName,
		searcher:  searcher,
		crawler:   c,
	}
}

// WithObserver also reports search progress to fn.
func (o *Orchestrator) WithObserver(fn func(types.CrawlEvent)) *Orchestrator {
	o.observer = fn
	return o
}

func (o *Orchestrator) Stats() types.CrawlStats {
	return o.crawler.Stats()
}

// Run researches intent. Every sub-query's top depth results are crawled
// concurrently. With timeoutSeconds 0 Run waits for all crawling to finish;
// otherwise crawling is cancelled once the timeout expires.
//
// Only agent failures on query expansion and search.ErrSearchExhausted are
// returned; crawl failures are logged and absorbed.
func (o *Orchestrator) Run(ctx context.Context, intent string, depth, timeoutSeconds int) error {
	ctx = logging.WithTraceID(ctx, o.ID)
	defer logging.LogDuration(ctx, "websearch_run")()
	if depth <= 0 {
		depth = DefaultDepth
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := o.agent.PromptAgent(sessionCtx, o.agentName, llm.PromptWebSearch, map[string]any{
		"user_input":     intent,
		"disable_memory": true,
	})
	if err != nil {
		return fmt.Errorf("expand query: %w", err)
	}
	queries := llmtext.SplitQueries(resp)
	if len(queries) == 0 {
		logging.AppLogger.Info("no search queries produced", zap.String("session", o.ID))
		return nil
	}

	var g errgroup.Group
	for _, q := range queries {
		logging.AppLogger.Info("searching", zap.String("session", o.ID), zap.String("query", q))
		o.emit(types.EventSearch, "", q)

		results, err := o.searcher.Search(sessionCtx, q)
		if err != nil {
			cancel()
			g.Wait()
			if errors.Is(err, search.ErrSearchExhausted) {
				return err
			}
			return fmt.Errorf("search %q: %w", q, err)
		}
		logging.AppLogger.Info("search results",
			zap.String("session", o.ID), zap.String("query", q), zap.Int("count", len(results)))
		if len(results) > depth {
			results = results[:depth]
		}
		if len(results) == 0 {
			continue
		}
		g.Go(func() error {
			return o.crawler.Browse(sessionCtx, intent, results)
		})
	}

	o.wait(sessionCtx, cancel, &g, timeoutSeconds)
	return nil
}

// BrowseLinksFromInput crawls every http(s) link written in input, using input
// itself as the research intent.
func (o *Orchestrator) BrowseLinksFromInput(ctx context.Context, input string, timeoutSeconds int) error {
	ctx = logging.WithTraceID(ctx, o.ID)
	links := llmtext.FindLinks(input)
	if len(links) == 0 {
		return nil
	}
	logging.AppLogger.Info("browsing links from input", zap.String("session", o.ID), zap.Int("count", len(links)))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		return o.crawler.Browse(sessionCtx, input, links)
	})
	o.wait(sessionCtx, cancel, &g, timeoutSeconds)
	return nil
}

// wait blocks until g finishes or the timeout expires, whichever is first. On
// timeout the session is cancelled and wait returns once branches stop.
func (o *Orchestrator) wait(ctx context.Context, cancel context.CancelFunc, g *errgroup.Group, timeoutSeconds int) {
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	if timeoutSeconds <= 0 {
		<-done
	} else {
		logging.AppLogger.Info("web searching with timeout",
			zap.String("session", o.ID), zap.Int("seconds", timeoutSeconds))
		timer := time.NewTimer(time.Duration(timeoutSeconds) * time.Second)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			logging.AppLogger.Info("timeout reached, cancelling crawl", zap.String("session", o.ID))
			cancel()
			<-done
		case <-ctx.Done():
			<-done
		}
	}
	o.emit(types.EventDone, "", "")
}

func (o *Orchestrator) emit(t types.CrawlEventType, u, detail string) {
	if o.observer == nil {
		return
	}
	o.observer(types.CrawlEvent{Type: t, URL: u, Detail: detail, Time: time.Now()})
}
