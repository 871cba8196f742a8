package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// VisitedSet records every URL a session has claimed. It only grows.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// MarkIfNotVisited claims raw for the caller. It returns false when the URL,
// after normalization, was already claimed.
func (v *VisitedSet) MarkIfNotVisited(raw string) bool {
	key := NormalizeURL(raw)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

func (v *VisitedSet) Contains(raw string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[NormalizeURL(raw)]
	return ok
}

func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// NormalizeURL lowercases scheme and host, drops the fragment and gives an
// empty path a trailing slash. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
