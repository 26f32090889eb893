package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okravets/go-scrape-sephora/fetch"
	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/pipeline"
)

// ScrapeProducts fetches and normalizes every product detail document through
// the worker pool, streaming records into the sink as they complete. The
// return value counts records accepted by the sink; failed IDs land in the
// diagnostics.
func (s *Scraper) ScrapeProducts(ctx context.Context, ids []string, pipe *pipeline.Pipeline) int {
	records := RunPool(ctx, ids, s.cfg.Workers, func(ctx context.Context, id string) (struct{}, error) {
		rec, err := s.scrapeProduct(ctx, id)
		if err != nil {
			s.routeFailure("product", id, err)
			return struct{}{}, err
		}
		if err := pipe.Process([]*models.Record{rec}); err != nil {
			s.log.Error("product sink rejected record", "product", id, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return len(records)
}

func (s *Scraper) scrapeProduct(ctx context.Context, id string) (*models.Record, error) {
	out := s.client.Fetch(ctx, s.cfg.ProductURL(id))
	switch out.Status {
	case fetch.StatusNotFound:
		return nil, ErrNotFound
	case fetch.StatusTransientFailure:
		return nil, ErrExhausted
	}

	var doc map[string]any
	if err := json.Unmarshal(out.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	return s.product.Normalize(id, doc)
}
