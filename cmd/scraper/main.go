package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okravets/go-scrape-sephora/config"
	"github.com/okravets/go-scrape-sephora/fetch"
	"github.com/okravets/go-scrape-sephora/models"
	"github.com/okravets/go-scrape-sephora/pipeline"
	"github.com/okravets/go-scrape-sephora/schema"
	"github.com/okravets/go-scrape-sephora/scraper"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	proxyURL := flag.String("proxy", "", "Proxy URL for all outbound requests")
	workers := flag.Int("workers", 0, "Number of concurrent workers")
	maxAttempts := flag.Int("max-attempts", 0, "Fetch attempts per URL")
	outputDir := flag.String("output-dir", "", "Directory for CSV output files")
	outputFormat := flag.String("format", "", "Output format: csv, postgres, or dual")
	postgresDSN := flag.String("dsn", "", "Postgres connection string")
	reviewInput := flag.String("review-input", "", "Product CSV to collect reviews for (switches to review mode)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	applyFlags(cfg, *proxyURL, *workers, *maxAttempts, *outputDir, *outputFormat, *postgresDSN, *reviewInput, *metricsAddr, *verbose)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	metrics := fetch.NewMetrics()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	s, err := scraper.New(cfg, metrics, logger)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	start := time.Now()
	var result *models.RunResult
	if cfg.ReviewInputFile != "" {
		result, err = runReviews(ctx, cfg, metrics, s)
	} else {
		result, err = runCatalog(ctx, cfg, metrics, s)
	}
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(start), cfg)
}

// runCatalog executes the brand discovery and product fan-out.
func runCatalog(ctx context.Context, cfg *config.Config, metrics *fetch.Metrics, s *scraper.Scraper) (*models.RunResult, error) {
	brandPipe, err := openPipeline(ctx, cfg, metrics, schema.Brand(), "brand_id")
	if err != nil {
		return nil, err
	}
	productPipe, err := openPipeline(ctx, cfg, metrics, schema.Product(), "product_id")
	if err != nil {
		brandPipe.Close()
		return nil, err
	}

	brandPipe.Start(1)
	productPipe.Start(1)

	result, runErr := s.Run(ctx, scraper.Pipelines{
		Brands:   brandPipe,
		Products: productPipe,
	})

	for _, pipe := range []*pipeline.Pipeline{brandPipe, productPipe} {
		if err := pipe.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

// runReviews collects reviews for the products of an earlier crawl.
func runReviews(ctx context.Context, cfg *config.Config, metrics *fetch.Metrics, s *scraper.Scraper) (*models.RunResult, error) {
	ids, err := scraper.LoadProductIDs(cfg.ReviewInputFile)
	if err != nil {
		return nil, err
	}
	slog.Info("review mode", slog.Int("products", len(ids)))

	reviewPipe, err := openPipeline(ctx, cfg, metrics, schema.Review(), "")
	if err != nil {
		return nil, err
	}
	reviewPipe.Start(1)

	start := time.Now()
	reviews := s.ScrapeReviews(ctx, ids, reviewPipe)
	if err := reviewPipe.Close(); err != nil {
		return nil, err
	}

	return &models.RunResult{
		StartTime:   start,
		EndTime:     time.Now(),
		Products:    len(ids),
		Reviews:     reviews,
		Diagnostics: s.Diagnostics(),
	}, nil
}

func openPipeline(ctx context.Context, cfg *config.Config, metrics *fetch.Metrics, s *schema.Schema, keyColumn string) (*pipeline.Pipeline, error) {
	writer, err := pipeline.OpenWriter(ctx, cfg.OutputFormat, cfg.OutputDir, cfg.PostgresDSN, s)
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", s.Entity, err)
	}
	pipe, err := pipeline.NewPipeline(writer, pipeline.Options{
		Entity:        s.Entity,
		KeyColumn:     keyColumn,
		BatchSize:     cfg.BatchSize,
		BufferSize:    cfg.PipelineBufferSize,
		DedupeMaxSize: cfg.DedupeMaxSize,
		Metrics:       metrics,
	})
	if err != nil {
		writer.Close()
		return nil, err
	}
	return pipe, nil
}

func applyFlags(cfg *config.Config, proxyURL string, workers, maxAttempts int, outputDir, outputFormat, postgresDSN, reviewInput, metricsAddr string, verbose bool) {
	if proxyURL != "" {
		cfg.ProxyURL = proxyURL
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if outputFormat != "" {
		cfg.OutputFormat = strings.ToLower(outputFormat)
	}
	if postgresDSN != "" {
		cfg.PostgresDSN = postgresDSN
	}
	if reviewInput != "" {
		cfg.ReviewInputFile = reviewInput
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if verbose {
		cfg.Verbose = true
	}
}

func printSummary(result *models.RunResult, duration time.Duration, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Brands:        %d\n", result.Brands)
	fmt.Printf("  Products:      %d\n", result.Products)
	fmt.Printf("  Reviews:       %d\n", result.Reviews)
	fmt.Printf("  Not found:     %d\n", len(result.Diagnostics.NotFound))
	fmt.Printf("  Malformed:     %d\n", len(result.Diagnostics.Malformed))
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output:        %s (%s)\n", cfg.OutputDir, cfg.OutputFormat)
	fmt.Println(separator)

	if len(result.Diagnostics.NotFound) > 0 {
		fmt.Printf("Not found IDs: %s\n", strings.Join(result.Diagnostics.NotFound, ", "))
	}
	if len(result.Diagnostics.Malformed) > 0 {
		fmt.Printf("Malformed IDs: %s\n", strings.Join(result.Diagnostics.Malformed, ", "))
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
