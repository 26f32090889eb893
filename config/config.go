// Package config holds scraper configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds scraper configuration. URL fields are fmt templates: brand
// pages take a slug and a page index, product pages a product ID, review
// pages a product ID and an offset.
type Config struct {
	BrandListURL      string `yaml:"brandListUrl"`
	BrandListSelector string `yaml:"brandListSelector"`
	BrandPathPrefix   string `yaml:"brandPathPrefix"`
	BrandAPIURL       string `yaml:"brandApiUrl"`
	ProductAPIURL     string `yaml:"productApiUrl"`
	ReviewsAPIURL     string `yaml:"reviewsApiUrl"`

	ProxyURL     string        `yaml:"proxyUrl"`
	UserAgent    string        `yaml:"userAgent"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`

	BrandPageSize  int `yaml:"brandPageSize"`
	ReviewPageSize int `yaml:"reviewPageSize"`
	Workers        int `yaml:"workers"`

	BatchSize          int `yaml:"batchSize"`
	PipelineBufferSize int `yaml:"pipelineBufferSize"`
	DedupeMaxSize      int `yaml:"dedupeMaxSize"`

	OutputDir       string `yaml:"outputDir"`
	OutputFormat    string `yaml:"outputFormat"` // csv, postgres, or dual
	PostgresDSN     string `yaml:"postgresDsn"`
	ReviewInputFile string `yaml:"reviewInputFile"`

	MetricsAddr string `yaml:"metricsAddr"`
	Verbose     bool   `yaml:"verbose"`
}

// DefaultConfig returns the defaults matching the upstream catalog API.
func DefaultConfig() *Config {
	return &Config{
		BrandListURL:      "https://www.sephora.com/brands-list",
		BrandListSelector: ".css-1d67h5w",
		BrandPathPrefix:   "/brands/",
		BrandAPIURL:       "https://www.sephora.com/api/catalog/brands/%s/seo?&currentPage=%d&pageSize=-1&loc=en-US",
		ProductAPIURL:     "https://www.sephora.com/api2/catalog/products/%s?addCurrentSkuToProductChildSkus=true&showContent=true&includeConfigurableSku=true&countryCode=US&removePersonalizedData=true",
		ReviewsAPIURL:     "https://api.bazaarvoice.com/data/reviews.json?Filter=ProductId:%s&Limit=100&Offset=%d&Include=Products,Comments&Stats=Reviews&apiversion=5.4",

		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Timeout:      20 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 0,

		BrandPageSize:  300,
		ReviewPageSize: 100,
		Workers:        10,

		BatchSize:          64,
		PipelineBufferSize: 512,
		DedupeMaxSize:      100000,

		OutputDir:    "output",
		OutputFormat: "csv",

		MetricsAddr: "",
		Verbose:     false,
	}
}

// Load reads an optional YAML file over the defaults and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := EnvString("SCRAPER_PROXY"); ok {
		c.ProxyURL = v
	}
	if v, ok := EnvString("SCRAPER_DSN"); ok {
		c.PostgresDSN = v
	}
	if v, ok := EnvString("SCRAPER_OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok, err := EnvInt("SCRAPER_WORKERS"); err != nil {
		return fmt.Errorf("invalid SCRAPER_WORKERS: %w", err)
	} else if ok {
		c.Workers = v
	}
	if v, ok, err := EnvInt("SCRAPER_MAX_ATTEMPTS"); err != nil {
		return fmt.Errorf("invalid SCRAPER_MAX_ATTEMPTS: %w", err)
	} else if ok {
		c.MaxAttempts = v
	}
	return nil
}

// EnvString reads a string environment variable.
func EnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"brand list URL":   c.BrandListURL,
		"brand API URL":    fmt.Sprintf(c.BrandAPIURL, "slug", 1),
		"product API URL":  fmt.Sprintf(c.ProductAPIURL, "id"),
		"reviews API URL":  fmt.Sprintf(c.ReviewsAPIURL, "id", 0),
	} {
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host", name)
		}
	}

	if c.ProxyURL != "" {
		if _, err := url.Parse(c.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.BrandPageSize <= 0 {
		return fmt.Errorf("brand page size must be positive")
	}
	if c.ReviewPageSize <= 0 {
		return fmt.Errorf("review page size must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "postgres" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, postgres, or dual")
	}
	if (c.OutputFormat == "postgres" || c.OutputFormat == "dual") && c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN is required for %s output", c.OutputFormat)
	}
	if c.OutputFormat != "postgres" && c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return nil
}

// BrandPageURL builds the brand listing URL for a slug and page index.
func (c *Config) BrandPageURL(slug string, page int) string {
	return fmt.Sprintf(c.BrandAPIURL, slug, page)
}

// ProductURL builds the product detail URL for a product ID.
func (c *Config) ProductURL(id string) string {
	return fmt.Sprintf(c.ProductAPIURL, id)
}

// ReviewPageURL builds the review listing URL for a product ID and offset.
func (c *Config) ReviewPageURL(id string, offset int) string {
	return fmt.Sprintf(c.ReviewsAPIURL, id, offset)
}
