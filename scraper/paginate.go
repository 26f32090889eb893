package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/okravets/go-scrape-sephora/config"
	"github.com/okravets/go-scrape-sephora/fetch"
	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/schema"
)

var (
	// ErrNotFound marks an entity the API answered 404 for.
	ErrNotFound = errors.New("not found")
	// ErrExhausted marks a fetch whose retry budget ran out.
	ErrExhausted = errors.New("retries exhausted")
)

// ExtraPages returns how many listing pages follow the first one for a brand
// with the given product total. An exactly-divisible total needs one page
// fewer than the rounded-up count.
func ExtraPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	if total%pageSize == 0 {
		return total/pageSize - 1
	}
	return total / pageSize
}

// Aggregator collects a brand record together with the product IDs of all its
// listing pages.
type Aggregator struct {
	client *fetch.Client
	cfg    *config.Config
	brand  *schema.Schema
	log    *slog.Logger
}

// NewAggregator builds an Aggregator over the shared fetch client.
func NewAggregator(client *fetch.Client, cfg *config.Config, log *slog.Logger) *Aggregator {
	return &Aggregator{
		client: client,
		cfg:    cfg,
		brand:  schema.Brand(),
		log:    log,
	}
}

// CollectBrand fetches page one of a brand listing, derives the extra page
// count from the product total, and merges the product IDs of every page into
// the brand record. A failed extra page is logged and skipped; the brand still
// aggregates from the pages that answered.
func (a *Aggregator) CollectBrand(ctx context.Context, slug string) (*models.AggregatedBrand, error) {
	out := a.client.Fetch(ctx, a.cfg.BrandPageURL(slug, 1))
	switch out.Status {
	case fetch.StatusNotFound:
		return nil, ErrNotFound
	case fetch.StatusTransientFailure:
		return nil, ErrExhausted
	}

	var doc map[string]any
	if err := json.Unmarshal(out.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode brand %s: %w", slug, err)
	}
	rec, err := a.brand.Normalize(slug, doc)
	if err != nil {
		return nil, err
	}

	products := rec.StringList("products")
	total, _ := rec.Int("total_products")

	extra := ExtraPages(int(total), a.cfg.BrandPageSize)
	for page := 2; page <= extra+1; page++ {
		ids, err := a.collectExtraPage(ctx, slug, page)
		if err != nil {
			a.log.Warn("brand page skipped", "brand", slug, "page", page, "error", err)
			continue
		}
		products = append(products, ids...)
	}

	rec.Set("products", products)
	return &models.AggregatedBrand{Slug: slug, Record: rec, Products: products}, nil
}

func (a *Aggregator) collectExtraPage(ctx context.Context, slug string, page int) ([]string, error) {
	out := a.client.Fetch(ctx, a.cfg.BrandPageURL(slug, page))
	switch out.Status {
	case fetch.StatusNotFound:
		return nil, ErrNotFound
	case fetch.StatusTransientFailure:
		return nil, ErrExhausted
	}

	var doc map[string]any
	if err := json.Unmarshal(out.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return schema.UnwrapProductIDs(doc), nil
}
