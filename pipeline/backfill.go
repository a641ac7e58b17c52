package pipeline

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// HistoryItem is one entry of browsing history handed to Backfill.
type HistoryItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Summary reports the outcome of a backfill run.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Backfill indexes a batch of history items. Duplicate URLs are processed
// once, the total is capped at MaxBackfillPages, and work proceeds in
// batches of BatchSize with a pause between batches so the external service
// is not hammered. Individual page failures are counted, not fatal; the only
// error returned is context cancellation.
func (p *Processor) Backfill(ctx context.Context, items []HistoryItem) (Summary, error) {
	seen := make(map[string]bool, len(items))
	queue := make([]HistoryItem, 0, len(items))
	var sum Summary
	for _, item := range items {
		if item.URL == "" || seen[item.URL] {
			sum.Skipped++
			continue
		}
		seen[item.URL] = true
		queue = append(queue, item)
	}
	if len(queue) > p.opts.MaxBackfillPages {
		sum.Skipped += len(queue) - p.opts.MaxBackfillPages
		queue = queue[:p.opts.MaxBackfillPages]
	}

	// One batch per BatchDelay, with the first batch admitted immediately.
	limiter := rate.NewLimiter(rate.Every(p.opts.BatchDelay), 1)
	var mu sync.Mutex

	for start := 0; start < len(queue); start += p.opts.BatchSize {
		if err := limiter.Wait(ctx); err != nil {
			return sum, err
		}
		end := start + p.opts.BatchSize
		if end > len(queue) {
			end = len(queue)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.BatchSize)
		for _, item := range queue[start:end] {
			item := item
			g.Go(func() error {
				_, err := p.ProcessPage(gctx, item.URL, item.Title)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					sum.Succeeded++
				case errors.Is(err, ErrSkipped):
					sum.Skipped++
				default:
					p.log.Warn("backfill page failed", "url", item.URL, "error", err)
					sum.Failed++
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return sum, err
		}
	}

	p.log.Info("backfill complete",
		"succeeded", sum.Succeeded, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum, nil
}
