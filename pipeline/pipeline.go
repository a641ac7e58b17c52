// Package pipeline orchestrates indexing and retrieval: admitting URLs,
// extracting and summarizing content, embedding it, storing it within the
// capacity bound, and answering searches with graceful degradation when the
// external model service is unavailable.
package pipeline

import (
	"context"
	"errors"
	"time"
)

// PageContent is what a ContentExtractor pulls out of a page.
type PageContent struct {
	Title     string
	Text      string
	WordCount int
}

// ContentExtractor fetches and cleans the text of a page.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (PageContent, error)
}

// Summarizer condenses page text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Embedder turns text into vectors. Document and query embeddings use
// distinct task framing, so they are separate methods.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ErrSkipped marks a page the pipeline declined to index, either because its
// URL is not indexable or its content is too thin to be useful.
var ErrSkipped = errors.New("pipeline: page skipped")

// Options tunes a Processor. Zero values get sensible defaults in
// NewProcessor.
type Options struct {
	BatchSize        int
	BatchDelay       time.Duration
	MinTextLength    int
	MaxContentChars  int
	MaxBackfillPages int
	MaxRetries       int
	RetryBaseDelay   time.Duration
}

func (o *Options) fillDefaults() {
	if o.BatchSize < 1 {
		o.BatchSize = 10
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = 2 * time.Second
	}
	if o.MinTextLength < 1 {
		o.MinTextLength = 100
	}
	if o.MaxContentChars < 1 {
		o.MaxContentChars = 15000
	}
	if o.MaxBackfillPages < 1 {
		o.MaxBackfillPages = 500
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 2 * time.Second
	}
}
