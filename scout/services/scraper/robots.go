package scraper

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsGate answers robots.txt questions with a per-host cache. A host whose
// robots.txt cannot be fetched or parsed is treated as allowing everything.
// Lookups cut short by ctx are not cached, so the host is asked again later.
type RobotsGate struct {
	client *http.Client
	agent  string
	mu     sync.Mutex
	hosts  map[string]*robotstxt.RobotsData
}

func NewRobotsGate(client *http.Client, agent string) *RobotsGate {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &RobotsGate{client: client, agent: agent, hosts: make(map[string]*robotstxt.RobotsData)}
}

// Allowed reports whether the configured agent may fetch raw.
func (g *RobotsGate) Allowed(ctx context.Context, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return true
	}
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	data, cached := g.hosts[key]
	g.mu.Unlock()
	if !cached {
		data = g.load(ctx, key)
		if ctx.Err() == nil {
			g.mu.Lock()
			g.hosts[key] = data
			g.mu.Unlock()
		}
	}
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, g.agent)
}

func (g *RobotsGate) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}
