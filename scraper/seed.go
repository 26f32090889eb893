package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/okravets/go-scrape-sephora/config"
)

// BrandLister extracts brand slugs from the HTML brands-list page. It is the
// only HTML surface of the crawl; everything downstream is JSON.
type BrandLister struct {
	cfg       *config.Config
	transport http.RoundTripper
	log       *slog.Logger
}

// NewBrandLister builds a lister sharing the fetch client's transport so the
// seed request goes through the same proxy.
func NewBrandLister(cfg *config.Config, transport http.RoundTripper, log *slog.Logger) *BrandLister {
	return &BrandLister{cfg: cfg, transport: transport, log: log}
}

// ListBrands visits the brands-list page and returns the slugs of every brand
// link under the configured selector. The visit is retried up to the attempt
// budget.
func (b *BrandLister) ListBrands(ctx context.Context) ([]string, error) {
	parsed, err := url.Parse(b.cfg.BrandListURL)
	if err != nil {
		return nil, fmt.Errorf("parse brand list url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("brand list url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(b.cfg.UserAgent),
	)
	collector.SetRequestTimeout(b.cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	if b.transport != nil {
		collector.WithTransport(b.transport)
	}

	var slugs []string
	selector := b.cfg.BrandListSelector + " a[href]"
	collector.OnHTML(selector, func(e *colly.HTMLElement) {
		slug := b.slugFromHref(e.Attr("href"))
		if slug != "" {
			slugs = append(slugs, slug)
		}
	})

	var visitErr error
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	var lastErr error
	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slugs = slugs[:0]
		visitErr = nil

		if err := collector.Visit(b.cfg.BrandListURL); err != nil {
			lastErr = err
		} else if visitErr != nil {
			lastErr = visitErr
		} else {
			b.log.Info("brand list collected", "brands", len(slugs))
			return slugs, nil
		}
		b.log.Warn("brand list attempt failed", "attempt", attempt, "error", lastErr)
	}
	return nil, fmt.Errorf("fetch brand list: %w", lastErr)
}

func (b *BrandLister) slugFromHref(href string) string {
	if !strings.HasPrefix(href, b.cfg.BrandPathPrefix) {
		return ""
	}
	slug := strings.TrimPrefix(href, b.cfg.BrandPathPrefix)
	slug = strings.TrimSuffix(slug, "/")
	if i := strings.IndexAny(slug, "?#"); i >= 0 {
		slug = slug[:i]
	}
	return slug
}
