package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/semhist/semhist/store"
)

// skipExtensions lists path suffixes that never carry indexable text.
var skipExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".mp3": true, ".mp4": true, ".webm": true,
	".avi": true, ".mov": true, ".zip": true, ".tar": true, ".gz": true,
	".pdf": true, ".exe": true, ".dmg": true, ".iso": true,
}

// Processor indexes pages one at a time or in backfill batches.
type Processor struct {
	store      *store.PageStore
	extractor  ContentExtractor
	summarizer Summarizer
	embedder   Embedder
	opts       Options
	log        *slog.Logger

	// sleep is swapped out in tests; it must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewProcessor wires a Processor. summarizer and embedder may be nil, in
// which case pages are stored without summaries or embeddings.
func NewProcessor(st *store.PageStore, extractor ContentExtractor,
	summarizer Summarizer, embedder Embedder, opts Options, log *slog.Logger) *Processor {
	opts.fillDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		store:      st,
		extractor:  extractor,
		summarizer: summarizer,
		embedder:   embedder,
		opts:       opts,
		log:        log,
		sleep:      sleepCtx,
		now:        time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ShouldProcessURL reports whether a URL is worth indexing. Only http and
// https pages qualify, and known media or archive file extensions are
// excluded.
func ShouldProcessURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return !skipExtensions[ext]
}

// ProcessPage indexes a single visited page and returns the stored id.
// Unindexable URLs and pages with too little text return ErrSkipped.
// Summarization and embedding failures degrade the record (empty summary,
// no embedding) rather than losing the visit. Only storage failures are
// returned as hard errors.
func (p *Processor) ProcessPage(ctx context.Context, pageURL, title string) (int64, error) {
	if !ShouldProcessURL(pageURL) {
		return 0, fmt.Errorf("%w: unindexable url %s", ErrSkipped, pageURL)
	}

	content, err := p.extractor.Extract(ctx, pageURL)
	if err != nil {
		return 0, fmt.Errorf("pipeline: extract %s: %w", pageURL, err)
	}
	if len(content.Text) < p.opts.MinTextLength {
		return 0, fmt.Errorf("%w: content too short (%d chars)", ErrSkipped, len(content.Text))
	}
	text := content.Text
	if len(text) > p.opts.MaxContentChars {
		text = text[:p.opts.MaxContentChars]
	}
	if title == "" {
		title = content.Title
	}

	summary := ""
	if p.summarizer != nil {
		err := p.withRetry(ctx, func(ctx context.Context) error {
			var err error
			summary, err = p.summarizer.Summarize(ctx, text)
			return err
		})
		if err != nil {
			p.log.Warn("summarization failed, storing without summary",
				"url", pageURL, "error", err)
			summary = ""
		}
	}

	var embedding []float32
	if p.embedder != nil {
		embedText := title + "\n" + summary
		if summary == "" {
			embedText = title + "\n" + text
		}
		err := p.withRetry(ctx, func(ctx context.Context) error {
			var err error
			embedding, err = p.embedder.EmbedDocument(ctx, embedText)
			return err
		})
		if err != nil {
			p.log.Warn("embedding failed, storing without embedding",
				"url", pageURL, "error", err)
			embedding = nil
		}
	}

	id, err := p.store.Insert(ctx, store.Page{
		URL:       pageURL,
		Title:     title,
		Summary:   summary,
		Timestamp: p.now().UnixMilli(),
		WordCount: content.WordCount,
		Embedding: embedding,
	})
	if err != nil {
		return 0, err
	}

	if removed, err := p.store.PruneIfOverCapacity(ctx); err != nil {
		p.log.Warn("prune after insert failed", "error", err)
	} else if removed > 0 {
		p.log.Info("pruned oldest pages", "removed", removed)
	}
	return id, nil
}

// withRetry runs fn up to MaxRetries times with a linearly growing pause
// between attempts.
func (p *Processor) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		if last = fn(ctx); last == nil {
			return nil
		}
		if attempt == p.opts.MaxRetries {
			break
		}
		delay := time.Duration(attempt) * p.opts.RetryBaseDelay
		p.log.Debug("retrying after failure", "attempt", attempt, "delay", delay, "error", last)
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return last
}
