package scraper

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/okravets/go-scrape-sephora/fetch"
	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/pipeline"
	"github.com/okravets/go-scrape-sephora/schema"
)

// reviewPage is one follow-up review listing page discovered from the first
// page's total.
type reviewPage struct {
	url       string
	productID string
}

// ScrapeReviews collects reviews for every product in two passes: the first
// page of each product, then all follow-up pages derived from the reported
// totals. Records stream into the sink as pages complete; the return value
// counts normalized reviews.
func (s *Scraper) ScrapeReviews(ctx context.Context, productIDs []string, pipe *pipeline.Pipeline) int {
	var written atomic.Int64

	pageLists := RunPool(ctx, productIDs, s.cfg.Workers, func(ctx context.Context, id string) ([]reviewPage, error) {
		pages, count, err := s.scrapeFirstReviewPage(ctx, id, pipe)
		if err != nil {
			s.routeFailure("review", id, err)
			return nil, err
		}
		written.Add(int64(count))
		return pages, nil
	})

	var extra []reviewPage
	for _, pages := range pageLists {
		extra = append(extra, pages...)
	}
	s.log.Info("review pagination resolved", "products", len(productIDs), "extra_pages", len(extra))

	RunPool(ctx, extra, s.cfg.Workers, func(ctx context.Context, page reviewPage) (struct{}, error) {
		count, err := s.scrapeReviewPage(ctx, page.url, page.productID, pipe)
		if err != nil {
			s.routeFailure("review", page.productID, err)
			return struct{}{}, err
		}
		written.Add(int64(count))
		return struct{}{}, nil
	})

	return int(written.Load())
}

// scrapeFirstReviewPage fetches offset zero, writes its reviews, and derives
// the follow-up page URLs from the reported total. The page count rounds the
// total up, so a total just past a page boundary yields a final overshooting
// offset whose empty result page is harmless.
func (s *Scraper) scrapeFirstReviewPage(ctx context.Context, id string, pipe *pipeline.Pipeline) ([]reviewPage, int, error) {
	doc, err := s.fetchReviewDoc(ctx, s.cfg.ReviewPageURL(id, 0))
	if err != nil {
		return nil, 0, err
	}

	count, err := s.processReviewDoc(doc, id, pipe)
	if err != nil {
		return nil, 0, err
	}

	total := 0
	if t, ok := schema.Lookup(doc, "TotalResults").(float64); ok {
		total = int(t)
	}
	pageSize := s.cfg.ReviewPageSize
	pages := (total + pageSize - 1) / pageSize

	var extra []reviewPage
	if pages > 1 {
		for i := 1; i <= pages; i++ {
			extra = append(extra, reviewPage{
				url:       s.cfg.ReviewPageURL(id, i*pageSize),
				productID: id,
			})
		}
	}
	return extra, count, nil
}

func (s *Scraper) scrapeReviewPage(ctx context.Context, url, productID string, pipe *pipeline.Pipeline) (int, error) {
	doc, err := s.fetchReviewDoc(ctx, url)
	if err != nil {
		return 0, err
	}
	return s.processReviewDoc(doc, productID, pipe)
}

func (s *Scraper) fetchReviewDoc(ctx context.Context, url string) (map[string]any, error) {
	out := s.client.Fetch(ctx, url)
	switch out.Status {
	case fetch.StatusNotFound:
		return nil, ErrNotFound
	case fetch.StatusTransientFailure:
		return nil, ErrExhausted
	}

	var doc map[string]any
	if err := json.Unmarshal(out.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode review page: %w", err)
	}
	return doc, nil
}

// processReviewDoc normalizes every entry of a review listing page, stamps the
// parent product ID, and streams the records into the sink. One bad entry
// voids the whole page.
func (s *Scraper) processReviewDoc(doc map[string]any, productID string, pipe *pipeline.Pipeline) (int, error) {
	results, _ := doc["Results"].([]any)
	if len(results) == 0 {
		return 0, nil
	}

	records := make([]*models.Record, 0, len(results))
	for i, entry := range results {
		m, ok := entry.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("review entry %d of %s is not an object", i, productID)
		}
		rec, err := s.review.Normalize(productID, m)
		if err != nil {
			return 0, err
		}
		rec.Set("product_id", productID)
		records = append(records, rec)
	}

	if err := pipe.Process(records); err != nil {
		s.log.Error("review sink rejected page", "product", productID, "error", err)
		return 0, err
	}
	return len(records), nil
}

// LoadProductIDs reads the product_id column of a previously written product
// CSV, for runs that collect reviews from an earlier product crawl.
func LoadProductIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open product file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read product file header: %w", err)
	}

	col := -1
	for i, name := range header {
		if name == "product_id" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("product file %s has no product_id column", path)
	}

	var ids []string
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		if col < len(row) && row[col] != "" {
			ids = append(ids, row[col])
		}
	}
	return ids, nil
}
