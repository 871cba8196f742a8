package websearch

import (
	"scout/scout/config"
	"scout/scout/services/crawler"
	"scout/scout/services/llm"
	"scout/scout/services/search"
	"scout/scout/utils/types"
)

// Factory holds the long-lived collaborators and hands out one Orchestrator
// per session.
type Factory struct {
	Config  config.Config
	Agent   llm.Agent
	Fetcher crawler.PageFetcher
	Store   crawler.KnowledgeStore
	Archive crawler.PageArchive
}

// NewSession builds a fresh orchestrator with its own visited set and search
// backend. observer may be nil.
func (f *Factory) NewSession(observer func(types.CrawlEvent)) (*Orchestrator, error) {
	searcher, err := search.New(f.Config)
	if err != nil {
		return nil, err
	}
	opts := crawler.OptionsFromConfig(f.Config)
	if f.Archive != nil {
		opts = append(opts, crawler.WithArchive(f.Archive))
	}
	if observer != nil {
		opts = append(opts, crawler.WithObserver(observer))
	}
	c := crawler.NewController(f.Fetcher, f.Agent, f.Store, opts...)
	return New(f.Agent, f.Config.AgentName, searcher, c).WithObserver(observer), nil
}
