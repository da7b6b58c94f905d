// Package web loads a specification document from a public URL and renders
// it as markdown for the formulation stage.
package web

import (
	"context"
	"log/slog"
	"mime"
	"strings"
)

// Loader fetches and converts spec pages.
type Loader struct {
	fetcher   *Fetcher
	converter *Converter
	logger    *slog.Logger
}

// NewLoader creates a loader. A nil fetcher uses the strict defaults.
func NewLoader(fetcher *Fetcher, logger *slog.Logger) *Loader {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: fetcher, converter: NewConverter(), logger: logger}
}

// Load fetches rawURL. HTML pages are converted to markdown; markdown and
// plain text are returned unchanged.
func (l *Loader) Load(ctx context.Context, rawURL string) (*Document, error) {
	page, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(page.ContentType)
	var doc *Document
	switch {
	case mediaType == "text/plain" || mediaType == "text/markdown":
		text := strings.TrimSpace(string(page.Body))
		doc = &Document{Title: markdownTitle(text), Markdown: text}
	default:
		doc, err = l.converter.Convert(page.Body, page.URL)
		if err != nil {
			return nil, err
		}
	}

	l.logger.Debug("Loaded spec source",
		"url", page.URL.String(),
		"content_type", mediaType,
		"title", doc.Title,
		"bytes", len(page.Body))
	return doc, nil
}
