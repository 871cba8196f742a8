package crawler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"scout/scout/services/llm"
	"scout/scout/utils/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]types.PageResult
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) types.PageResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if p, ok := f.pages[url]; ok {
		p.URL = url
		return p
	}
	return types.PageResult{URL: url}
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeAgent struct {
	mu        sync.Mutex
	summarize func(link, chunk string) (string, error)
	pick      func(from, links string) (string, error)
	pickArgs  []string
}

func (a *fakeAgent) PromptAgent(ctx context.Context, agentName, promptName string, args map[string]any) (string, error) {
	switch promptName {
	case llm.PromptSummarize:
		if a.summarize == nil {
			return "None", nil
		}
		return a.summarize(args["link"].(string), args["chunk"].(string))
	case llm.PromptPickLink:
		links := args["links"].(string)
		a.mu.Lock()
		a.pickArgs = append(a.pickArgs, links)
		a.mu.Unlock()
		if a.pick == nil {
			return "None", nil
		}
		return a.pick(firstHref(links), links)
	}
	return "", errors.New("unexpected prompt " + promptName)
}

// firstHref returns the href on the first "label - href" line.
func firstHref(links string) string {
	line := strings.SplitN(links, "\n", 2)[0]
	fields := strings.Fields(line)
	return fields[len(fields)-1]
}

func text(s string) *string { return &s }

func links(hrefs ...string) []types.Link {
	out := make([]types.Link, len(hrefs))
	for i, h := range hrefs {
		out[i] = types.Link{Href: h}
	}
	return out
}

func runeCount(s string) int { return utf8.RuneCountInString(s) }

func TestBrowseDeduplicatesAndFiltersSeeds(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"http://a.test/x": {Text: text("hello")},
	}}
	c := NewController(f, &fakeAgent{}, NewMemoryStore())

	err := c.Browse(context.Background(), "q", []string{"http://a.test/x", "http://a.test/x", "ftp://files.test/y"})

	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test/x"}, f.Calls())
	assert.Equal(t, int64(1), c.Stats().Skipped)
}

func TestBrowseIsIdempotentWithinSession(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{"https://a.test/": {Text: text("hi")}}}
	c := NewController(f, &fakeAgent{}, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))
	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://A.test/#top"}))

	assert.Len(t, f.Calls(), 1)
	assert.True(t, c.Visited().Contains("https://a.test"))
}

func TestBrowseAcceptsSearchSummaries(t *testing.T) {
	f := &fakeFetcher{}
	c := NewController(f, &fakeAgent{}, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"None Such Band - https://band.test/"}))

	assert.Equal(t, []string{"https://band.test/"}, f.Calls())
}

func TestBrowseStoresNonSentinelSummaries(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/": {Text: text("aaaaaaaaaabbbbbbbbbb")},
	}}
	agent := &fakeAgent{summarize: func(link, chunk string) (string, error) {
		if strings.HasPrefix(chunk, "b") {
			return "None of this is relevant", nil
		}
		return "summary of " + chunk, nil
	}}
	store := NewMemoryStore()
	c := NewController(f, agent, store, WithMaxTokens(30), WithTokenCounter(runeCount))

	require.NoError(t, c.Browse(context.Background(), "what is a", []string{"https://a.test/"}))

	items := store.All()
	require.Len(t, items, 1)
	assert.Equal(t, "summary of aaaaaaaaaa", items[0].Content)
	assert.Equal(t, "what is a", items[0].Intent)
	assert.Equal(t, "https://a.test/", items[0].SourceURL)
	assert.Equal(t, int64(1), c.Stats().Stored)
}

func TestBrowseFollowsPickedLink(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/":    {Text: text("start"), Links: links("https://b.test/")},
		"http://c.test/page": {Text: text("target")},
	}}
	agent := &fakeAgent{pick: func(from, links string) (string, error) {
		if from == "https://b.test/" {
			return "Check this out: http://c.test/page", nil
		}
		return "None", nil
	}}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))

	assert.ElementsMatch(t, []string{"https://a.test/", "http://c.test/page"}, f.Calls())
}

func TestBrowseCapsLinkList(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://six.test/":  {Text: text("x"), Links: links("https://1.test", "https://2.test", "https://3.test", "https://4.test", "https://5.test", "https://6.test")},
		"https://five.test/": {Text: text("x"), Links: links("https://1.test", "https://2.test", "https://3.test", "https://4.test", "https://5.test")},
	}}
	agent := &fakeAgent{}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://six.test/", "https://five.test/"}))

	require.Len(t, agent.pickArgs, 2)
	assert.Equal(t, "https://1.test\nhttps://2.test\nhttps://3.test", agent.pickArgs[0])
	assert.Len(t, strings.Split(agent.pickArgs[1], "\n"), 5)
}

func TestBrowseFormatsLinkLabels(t *testing.T) {
	label := "Docs"
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/": {Text: text("x"), Links: []types.Link{{Label: &label, Href: "https://a.test/docs"}}},
	}}
	agent := &fakeAgent{}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))

	assert.Equal(t, []string{"Docs - https://a.test/docs"}, agent.pickArgs)
}

func TestBrowseIsolatesBranchFailures(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://bad.test/":  {Text: text("boom"), Links: links("https://never.test/")},
		"https://good.test/": {Text: text("fine")},
	}}
	agent := &fakeAgent{summarize: func(link, chunk string) (string, error) {
		if link == "https://bad.test/" {
			return "", errors.New("agent unavailable")
		}
		return "useful", nil
	}}
	store := NewMemoryStore()
	c := NewController(f, agent, store)

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://bad.test/", "https://good.test/"}))

	assert.Equal(t, []string{"https://bad.test/", "https://good.test/"}, f.Calls())
	require.Len(t, store.All(), 1)
	assert.Equal(t, "https://good.test/", store.All()[0].SourceURL)
	assert.Empty(t, agent.pickArgs)
}

func TestBrowsePickFailureEndsBranch(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/": {Text: text("x"), Links: links("https://b.test/")},
	}}
	agent := &fakeAgent{pick: func(from, links string) (string, error) {
		return "", errors.New("timeout")
	}}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))
	assert.Len(t, f.Calls(), 1)
}

func TestBrowseStopsOnCycles(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/": {Text: text("a"), Links: links("https://b.test/")},
		"https://b.test/": {Text: text("b"), Links: links("https://a.test/")},
	}}
	agent := &fakeAgent{pick: func(from, links string) (string, error) { return from, nil }}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))

	assert.ElementsMatch(t, []string{"https://a.test/", "https://b.test/"}, f.Calls())
	assert.Equal(t, int64(1), c.Stats().Skipped)
}

func TestBrowseRespectsMaxDepth(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/": {Text: text("a"), Links: links("https://b.test/")},
		"https://b.test/": {Text: text("b"), Links: links("https://c.test/")},
	}}
	agent := &fakeAgent{pick: func(from, links string) (string, error) { return from, nil }}
	c := NewController(f, agent, NewMemoryStore(), WithMaxDepth(2))

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))

	assert.ElementsMatch(t, []string{"https://a.test/", "https://b.test/"}, f.Calls())
}

func TestBrowseCancelled(t *testing.T) {
	f := &fakeFetcher{}
	c := NewController(f, &fakeAgent{}, NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Browse(ctx, "q", []string{"https://a.test/"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.Calls())
}

func TestBrowseEmitsEvents(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{"https://a.test/": {Text: text("x")}}}
	var mu sync.Mutex
	var seen []types.CrawlEventType
	c := NewController(f, &fakeAgent{summarize: func(string, string) (string, error) { return "ok", nil }},
		NewMemoryStore(), WithObserver(func(e types.CrawlEvent) {
			mu.Lock()
			seen = append(seen, e.Type)
			mu.Unlock()
		}))

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/", "https://down.test/"}))

	assert.Equal(t, []types.CrawlEventType{types.EventFetched, types.EventStored, types.EventFailed}, seen)
}

type fakeArchive struct {
	pages map[string]string
}

func (a *fakeArchive) ArchivePage(ctx context.Context, pageURL, text string) (string, error) {
	a.pages[pageURL] = text
	return "key", nil
}

func TestBrowseArchivesPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{"https://a.test/": {Text: text("body")}}}
	archive := &fakeArchive{pages: map[string]string{}}
	c := NewController(f, &fakeAgent{}, NewMemoryStore(), WithArchive(archive))

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))

	assert.Equal(t, map[string]string{"https://a.test/": "body"}, archive.pages)
}

func TestBrowseFollowsOnlyFirstPickedURL(t *testing.T) {
	f := &fakeFetcher{pages: map[string]types.PageResult{
		"https://a.test/": {Text: text("a"), Links: links("https://b.test/", "https://c.test/")},
	}}
	agent := &fakeAgent{pick: func(from, links string) (string, error) {
		return "https://b.test/ or maybe https://c.test/", nil
	}}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"https://a.test/"}))

	assert.Equal(t, []string{"https://a.test/", "https://b.test/"}, f.Calls())
}

func TestBrowseKeepsParenthesisedURLs(t *testing.T) {
	const wiki = "https://en.wikipedia.org/wiki/Go_(programming_language)"
	const wikiMascot = "https://en.wikipedia.org/wiki/Gopher_(mascot)"
	f := &fakeFetcher{pages: map[string]types.PageResult{
		wiki: {Text: text("go"), Links: links(wikiMascot)},
	}}
	agent := &fakeAgent{pick: func(from, links string) (string, error) {
		return "Check this out: " + wikiMascot, nil
	}}
	c := NewController(f, agent, NewMemoryStore())

	require.NoError(t, c.Browse(context.Background(), "q", []string{"Go (programming language) - " + wiki}))

	assert.Equal(t, []string{wiki, wikiMascot}, f.Calls())
	assert.True(t, c.Visited().Contains(wiki))
}
