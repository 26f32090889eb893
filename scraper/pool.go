// Package scraper orchestrates the catalog crawl: brand discovery, listing
// aggregation, and the product and review fan-outs.
package scraper

import (
	"context"
	"sync"
)

// RunPool processes items with a bounded worker pool and returns the results
// of the successful tasks in completion order. Failed items yield no result;
// the task routes its own failures to diagnostics before returning an error.
// Cancelling the context stops the feed; in-flight tasks finish.
func RunPool[T, R any](ctx context.Context, items []T, workers int, task func(ctx context.Context, item T) (R, error)) []R {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	feed := make(chan T)
	results := make(chan R)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range feed {
				r, err := task(ctx, item)
				if err != nil {
					continue
				}
				results <- r
			}
		}()
	}

	go func() {
		defer close(feed)
		for _, item := range items {
			select {
			case feed <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]R, 0, len(items))
	for r := range results {
		out = append(out, r)
	}
	return out
}
