package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func newTestClient(t *testing.T, maxAttempts int) (*Client, *httpmock.MockTransport) {
	t.Helper()

	client, err := NewClient(Options{
		UserAgent:   "test-agent",
		Timeout:     5 * time.Second,
		MaxAttempts: maxAttempts,
	}, NewMetrics())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	transport := httpmock.NewMockTransport()
	client.SetTransport(transport)
	return client, transport
}

func TestFetchSuccess(t *testing.T) {
	client, transport := newTestClient(t, 3)
	transport.RegisterResponder("GET", "https://example.com/ok",
		httpmock.NewStringResponder(200, `{"hello":"world"}`))

	out := client.Fetch(context.Background(), "https://example.com/ok")
	if out.Status != StatusSuccess {
		t.Fatalf("status = %v, want StatusSuccess", out.Status)
	}
	if string(out.Body) != `{"hello":"world"}` {
		t.Fatalf("body = %q", out.Body)
	}
	if calls := transport.GetTotalCallCount(); calls != 1 {
		t.Fatalf("call count = %d, want 1", calls)
	}
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	client, transport := newTestClient(t, 3)
	transport.RegisterResponder("GET", "https://example.com/missing",
		httpmock.NewStringResponder(404, "not found"))

	out := client.Fetch(context.Background(), "https://example.com/missing")
	if out.Status != StatusNotFound {
		t.Fatalf("status = %v, want StatusNotFound", out.Status)
	}
	if out.Body != nil {
		t.Fatalf("body should be nil for 404, got %q", out.Body)
	}
	if calls := transport.GetTotalCallCount(); calls != 1 {
		t.Fatalf("404 must not be retried, call count = %d", calls)
	}
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	client, transport := newTestClient(t, 3)
	transport.RegisterResponder("GET", "https://example.com/flaky",
		httpmock.NewStringResponder(500, "boom"))

	out := client.Fetch(context.Background(), "https://example.com/flaky")
	if out.Status != StatusTransientFailure {
		t.Fatalf("status = %v, want StatusTransientFailure", out.Status)
	}
	if calls := transport.GetTotalCallCount(); calls != 3 {
		t.Fatalf("call count = %d, want 3", calls)
	}
}

func TestFetchRecoversAfterConnectionError(t *testing.T) {
	client, transport := newTestClient(t, 3)

	calls := 0
	transport.RegisterResponder("GET", "https://example.com/recover",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
			}
			return httpmock.NewStringResponse(200, "recovered"), nil
		})

	out := client.Fetch(context.Background(), "https://example.com/recover")
	if out.Status != StatusSuccess {
		t.Fatalf("status = %v, want StatusSuccess", out.Status)
	}
	if calls != 2 {
		t.Fatalf("call count = %d, want 2", calls)
	}
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	client, transport := newTestClient(t, 3)
	transport.RegisterResponder("GET", "https://example.com/slow",
		httpmock.NewStringResponder(500, "boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := client.Fetch(ctx, "https://example.com/slow")
	if out.Status != StatusTransientFailure {
		t.Fatalf("status = %v, want StatusTransientFailure", out.Status)
	}
	if calls := transport.GetTotalCallCount(); calls > 1 {
		t.Fatalf("cancelled context should stop retries, call count = %d", calls)
	}
}

func TestNormalizeUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "plain", in: []byte("hello"), want: "hello"},
		{name: "bom stripped", in: []byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, want: "hi"},
		{name: "invalid byte replaced", in: []byte{'a', 0xFF, 'b'}, want: "a�b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(normalizeUTF8(tt.in)); got != tt.want {
				t.Fatalf("normalizeUTF8(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server", err: nil, statusCode: http.StatusBadGateway, expected: "server"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("base")
	wrapped := classifyError(base, http.StatusInternalServerError)

	var server ErrServer
	if !errors.As(wrapped, &server) {
		t.Fatalf("expected ErrServer, got %T", wrapped)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("wrapped error should unwrap to base")
	}
}
