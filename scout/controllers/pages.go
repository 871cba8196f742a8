package controllers

import (
	"context"
	"errors"

	"scout/scout/sources/storage"
	"scout/scout/utils/llmtext"
)

var (
	ErrNoPageURL       = errors.New("url must be an absolute http(s) URL")
	ErrArchiveDisabled = errors.New("page archive is not configured")
)

// PageReader is satisfied by storage.MinIOClient.
type PageReader interface {
	GetPageByURL(ctx context.Context, pageURL string) (*storage.PageObject, error)
}

// PageController serves archived page text. pages may be nil when no archive
// is configured.
type PageController struct {
	pages PageReader
}

func NewPageController(pages PageReader) *PageController {
	return &PageController{pages: pages}
}

func (c *PageController) Page(ctx context.Context, pageURL string) (*storage.PageObject, error) {
	if !llmtext.IsHTTPURL(pageURL) {
		return nil, ErrNoPageURL
	}
	if c.pages == nil {
		return nil, ErrArchiveDisabled
	}
	return c.pages.GetPageByURL(ctx, pageURL)
}
