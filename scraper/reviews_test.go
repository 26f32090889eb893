package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/okravets/go-scrape-sephora/config"
)

func TestScrapeReviewsPaginatesWithOvershoot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workers = 2
	s, transport := newTestScraper(t, cfg)

	// 250 total results round up to three pages, so the follow-up offsets are
	// 100, 200, and 300 even though 300 is past the end. The empty last page
	// writes nothing.
	transport.RegisterResponder("GET", cfg.ReviewPageURL("P1", 0),
		httpmock.NewStringResponder(200, `{
			"TotalResults": 250,
			"Results": [
				{"Rating": 5, "ReviewText": "Great", "SubmissionTime": "2022-06-23T14:04:17.000+00:00"},
				{"Rating": 2, "ReviewText": "Meh"}
			]
		}`))
	transport.RegisterResponder("GET", cfg.ReviewPageURL("P1", 100),
		httpmock.NewStringResponder(200, `{
			"Results": [{"Rating": 4, "Title": "Solid"}]
		}`))
	transport.RegisterResponder("GET", cfg.ReviewPageURL("P1", 200),
		httpmock.NewStringResponder(200, `{
			"Results": [{"Rating": 3}]
		}`))
	transport.RegisterResponder("GET", cfg.ReviewPageURL("P1", 300),
		httpmock.NewStringResponder(200, `{"Results": []}`))

	pipe, writer := newTestPipeline(t, "review", "")

	written := s.ScrapeReviews(t.Context(), []string{"P1"}, pipe)
	if err := pipe.Close(); err != nil {
		t.Fatalf("pipeline close: %v", err)
	}

	if written != 4 {
		t.Fatalf("written = %d, want 4", written)
	}

	for _, offset := range []int{0, 100, 200, 300} {
		url := cfg.ReviewPageURL("P1", offset)
		if calls := transport.GetCallCountInfo()["GET "+url]; calls != 1 {
			t.Fatalf("offset %d fetched %d times, want 1", offset, calls)
		}
	}

	records := writer.written()
	if len(records) != 4 {
		t.Fatalf("sink records = %d, want 4", len(records))
	}
	for _, rec := range records {
		if got := rec.Get("product_id"); got != "P1" {
			t.Fatalf("product_id = %v, want P1", got)
		}
	}
}

func TestScrapeReviewsSinglePage(t *testing.T) {
	cfg := config.DefaultConfig()
	s, transport := newTestScraper(t, cfg)

	transport.RegisterResponder("GET", cfg.ReviewPageURL("P2", 0),
		httpmock.NewStringResponder(200, `{
			"TotalResults": 42,
			"Results": [{"Rating": 5, "IsRecommended": true}]
		}`))

	pipe, writer := newTestPipeline(t, "review", "")

	written := s.ScrapeReviews(t.Context(), []string{"P2"}, pipe)
	if err := pipe.Close(); err != nil {
		t.Fatalf("pipeline close: %v", err)
	}

	if written != 1 {
		t.Fatalf("written = %d, want 1", written)
	}
	if calls := transport.GetTotalCallCount(); calls != 1 {
		t.Fatalf("single page should mean one call, got %d", calls)
	}

	rec := writer.written()[0]
	if got := rec.Get("is_recommended"); got != int64(1) {
		t.Fatalf("is_recommended = %v, want 1", got)
	}
	if got := rec.Get("skin_tone"); got != nil {
		t.Fatalf("absent context value should stay nil, got %v", got)
	}
}

func TestScrapeReviewsRoutesNotFound(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxAttempts = 1
	s, transport := newTestScraper(t, cfg)

	transport.RegisterResponder("GET", cfg.ReviewPageURL("P3", 0),
		httpmock.NewStringResponder(404, "gone"))

	pipe, _ := newTestPipeline(t, "review", "")

	written := s.ScrapeReviews(t.Context(), []string{"P3"}, pipe)
	if err := pipe.Close(); err != nil {
		t.Fatalf("pipeline close: %v", err)
	}

	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}
	diag := s.Diagnostics()
	if len(diag.NotFound) != 1 || diag.NotFound[0] != "P3" {
		t.Fatalf("not found = %v", diag.NotFound)
	}
}

func TestLoadProductIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product_info.csv")
	raw := "product_name,product_id,price_usd\nLip Balm,P1,24\nSerum,P2,80\nNameless,,5\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ids, err := LoadProductIDs(path)
	if err != nil {
		t.Fatalf("LoadProductIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "P1" || ids[1] != "P2" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestLoadProductIDsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadProductIDs(path); err == nil {
		t.Fatalf("expected error for missing product_id column")
	}
}
