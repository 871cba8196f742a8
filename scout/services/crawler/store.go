package crawler

import (
	"context"
	"sync"
	"time"
)

// KnowledgeStore persists summaries produced during a crawl.
type KnowledgeStore interface {
	StoreResult(ctx context.Context, intent, result, sourceURL string) error
}

// PageArchive keeps the raw extracted text of fetched pages.
type PageArchive interface {
	ArchivePage(ctx context.Context, pageURL, text string) (string, error)
}

// Knowledge is one stored summary.
type Knowledge struct {
	Intent    string    `json:"user_input"`
	Content   string    `json:"content"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryStore is an in-process KnowledgeStore for the CLI and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items []Knowledge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) StoreResult(ctx context.Context, intent, result, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Knowledge{Intent: intent, Content: result, SourceURL: sourceURL, CreatedAt: time.Now()})
	return nil
}

// All returns a copy of everything stored, oldest first.
func (m *MemoryStore) All() []Knowledge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Knowledge(nil), m.items...)
}
