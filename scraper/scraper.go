package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/okravets/go-scrape-sephora/config"
	"github.com/okravets/go-scrape-sephora/fetch"
	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/pipeline"
	"github.com/okravets/go-scrape-sephora/schema"
)

// Pipelines groups the per-entity sinks a catalog run writes into. Reviews may
// be nil when the run stops at products.
type Pipelines struct {
	Brands   *pipeline.Pipeline
	Products *pipeline.Pipeline
	Reviews  *pipeline.Pipeline
}

// Scraper drives the crawl: brand discovery through the HTML seed page, then
// the brand, product, and review fan-outs against the JSON APIs.
type Scraper struct {
	cfg        *config.Config
	client     *fetch.Client
	metrics    *fetch.Metrics
	log        *slog.Logger
	diag       *models.Diagnostics
	lister     *BrandLister
	aggregator *Aggregator
	product    *schema.Schema
	review     *schema.Schema
}

// New builds a scraper from cfg. Metrics may be nil.
func New(cfg *config.Config, metrics *fetch.Metrics, log *slog.Logger) (*Scraper, error) {
	client, err := fetch.NewClient(fetch.Options{
		ProxyURL:     cfg.ProxyURL,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.Timeout,
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff,
	}, metrics)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:        cfg,
		client:     client,
		metrics:    metrics,
		log:        log,
		diag:       models.NewDiagnostics(),
		lister:     NewBrandLister(cfg, client.Transport(), log),
		aggregator: NewAggregator(client, cfg, log),
		product:    schema.Product(),
		review:     schema.Review(),
	}, nil
}

// Client exposes the fetch client. Used by tests to swap the transport.
func (s *Scraper) Client() *fetch.Client {
	return s.client
}

// Run executes the full catalog crawl: seed page, brand aggregation, and the
// product fan-out over every product ID the brands carried. When a reviews
// pipeline is present, review listings for those products follow.
func (s *Scraper) Run(ctx context.Context, p Pipelines) (*models.RunResult, error) {
	start := time.Now()

	slugs, err := s.lister.ListBrands(ctx)
	if err != nil {
		return nil, err
	}

	brands, productIDs := s.CollectBrands(ctx, slugs, p.Brands)
	s.log.Info("brands collected", "brands", brands, "products", len(productIDs))

	products := s.ScrapeProducts(ctx, productIDs, p.Products)

	reviews := 0
	if p.Reviews != nil {
		reviews = s.ScrapeReviews(ctx, productIDs, p.Reviews)
	}

	return &models.RunResult{
		StartTime:   start,
		EndTime:     time.Now(),
		Brands:      brands,
		Products:    products,
		Reviews:     reviews,
		Diagnostics: s.diag.Snapshot(),
	}, nil
}

// CollectBrands aggregates every brand through the worker pool, streams the
// brand records into the sink, and returns the written-brand count plus the
// product IDs merged across all brands.
func (s *Scraper) CollectBrands(ctx context.Context, slugs []string, pipe *pipeline.Pipeline) (int, []string) {
	brands := RunPool(ctx, slugs, s.cfg.Workers, func(ctx context.Context, slug string) (*models.AggregatedBrand, error) {
		brand, err := s.aggregator.CollectBrand(ctx, slug)
		if err != nil {
			s.routeFailure("brand", slug, err)
			return nil, err
		}
		if err := pipe.Process([]*models.Record{brand.Record}); err != nil {
			s.log.Error("brand sink rejected record", "brand", slug, "error", err)
			return nil, err
		}
		return brand, nil
	})

	productIDs := make([]string, 0, 256)
	for _, b := range brands {
		productIDs = append(productIDs, b.Products...)
	}
	return len(brands), productIDs
}

// Diagnostics returns a snapshot of the terminal failures so far.
func (s *Scraper) Diagnostics() models.DiagnosticReport {
	return s.diag.Snapshot()
}

// routeFailure files a terminal failure under the diagnostic list its cause
// belongs to and bumps the matching metric.
func (s *Scraper) routeFailure(entity, id string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		s.diag.AddNotFound(id)
		s.metrics.IncRecordFailure(entity, "not_found")
	case errors.Is(err, ErrExhausted):
		s.diag.AddMalformed(id)
		s.metrics.IncRecordFailure(entity, "exhausted")
	default:
		s.diag.AddMalformed(id)
		s.metrics.IncRecordFailure(entity, "malformed")
		s.log.Warn("record failed", "entity", entity, "id", id, "error", err)
	}
}
