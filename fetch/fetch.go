// Package fetch implements the retrying HTTP client the pipelines fetch
// catalog pages through.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Status is the terminal outcome of a logical GET.
type Status int

const (
	// StatusSuccess means HTTP 200 with a body.
	StatusSuccess Status = iota
	// StatusNotFound means HTTP 404, a valid business answer: the entity
	// does not exist. Not retried.
	StatusNotFound
	// StatusTransientFailure means the retry budget was exhausted without a
	// terminal response.
	StatusTransientFailure
)

// Outcome is the result of a logical GET after retries. Body is nil unless
// Status is StatusSuccess.
type Outcome struct {
	Status Status
	Body   []byte
}

// Client issues GET requests through the configured proxy with a bounded
// number of immediate retries. Transient errors are swallowed; only the final
// outcome is reported.
type Client struct {
	http        *http.Client
	userAgent   string
	maxAttempts int
	backoff     time.Duration
	metrics     *Metrics
}

// Options configures a Client.
type Options struct {
	ProxyURL     string
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// NewClient builds a Client. An empty proxy URL disables proxying.
func NewClient(opts Options, metrics *Metrics) (*Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		userAgent:   opts.UserAgent,
		maxAttempts: maxAttempts,
		backoff:     opts.RetryBackoff,
		metrics:     metrics,
	}, nil
}

// SetTransport swaps the underlying transport. Used by tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// Transport returns the underlying transport so the seed collector can share
// the proxy configuration.
func (c *Client) Transport() http.RoundTripper {
	return c.http.Transport
}

// Fetch performs a logical GET. HTTP 200 and 404 are terminal; any other
// status or connection error is retried up to the attempt budget, after which
// the outcome is StatusTransientFailure with a nil body. Fetch never returns
// an error to the caller.
func (c *Client) Fetch(ctx context.Context, rawURL string) Outcome {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.IncRetries()
			if c.backoff > 0 {
				select {
				case <-time.After(c.backoff):
				case <-ctx.Done():
					return Outcome{Status: StatusTransientFailure}
				}
			}
		}

		outcome, terminal := c.attempt(ctx, rawURL)
		if terminal {
			return outcome
		}
		if ctx.Err() != nil {
			return Outcome{Status: StatusTransientFailure}
		}
	}

	c.metrics.IncRequest("exhausted")
	return Outcome{Status: StatusTransientFailure}
}

func (c *Client) attempt(ctx context.Context, rawURL string) (Outcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		// Unbuildable request never becomes fetchable; fail terminally.
		c.metrics.IncError("bad_request")
		return Outcome{Status: StatusTransientFailure}, true
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.IncError(errorTypeLabel(classifyError(err, 0)))
		return Outcome{}, false
	}
	defer resp.Body.Close()
	c.metrics.ObserveDuration(time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.metrics.IncError("body_read")
			return Outcome{}, false
		}
		c.metrics.IncRequest("success")
		return Outcome{Status: StatusSuccess, Body: normalizeUTF8(body)}, true
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		c.metrics.IncRequest("not_found")
		return Outcome{Status: StatusNotFound}, true
	default:
		io.Copy(io.Discard, resp.Body)
		c.metrics.IncError(errorTypeLabel(classifyError(nil, resp.StatusCode)))
		return Outcome{}, false
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeUTF8 strips a leading BOM and replaces invalid byte sequences so
// downstream decoding always sees valid UTF-8.
func normalizeUTF8(body []byte) []byte {
	body = bytes.TrimPrefix(body, utf8BOM)
	return bytes.ToValidUTF8(body, []byte("�"))
}
