// Package upstream forwards JSON payloads to the fixed third-party endpoint.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/okian/flightrelay/pkg/logger"
	"github.com/okian/flightrelay/pkg/metrics"
)

// Transport and client defaults.
const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 4 << 20
	dialTimeout             = 10 * time.Second
	keepAlive               = 30 * time.Second
	idleConnTimeout         = 90 * time.Second
	tlsHandshakeTimeout     = 10 * time.Second
	maxIdleConnsPerHost     = 16
	millisecondsPerSecond   = 1e3
)

// Response is what the upstream answered.
type Response struct {
	StatusCode int
	// Body is the response text, not re-parsed.
	Body []byte
}

// Forwarder sends one payload upstream.
type Forwarder interface {
	Forward(ctx context.Context, payload []byte) (Response, error)
}

// Client posts payloads to a single fixed URL. It is safe for concurrent use.
type Client struct {
	url              string
	http             *http.Client
	timeout          time.Duration
	maxResponseBytes int64
	logger           logger.Logger
}

// New creates a client for url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:              url,
		timeout:          defaultTimeout,
		maxResponseBytes: defaultMaxResponseBytes,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := http.Client{Transport: newTransport()}
	if c.http != nil {
		hc = *c.http
	}
	hc.Timeout = c.timeout
	hc.CheckRedirect = keepRedirect
	c.http = &hc
	return c
}

// keepRedirect hands a 3xx back to the caller instead of following it, so a
// payload is posted exactly once and the redirect itself is relayed.
func keepRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: keepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// URL returns the fixed upstream address.
func (c *Client) URL() string { return c.url }

// Forward POSTs payload as application/json and returns the upstream status
// and body whatever the status. Errors wrap ErrUpstream and mean no complete
// response was received. There are no retries.
func (c *Client) Forward(ctx context.Context, payload []byte) (Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamError(elapsedMs(start))
		c.logger.Warn(ctx, "upstream call failed", logger.String("url", c.url), logger.Error(err))
		return Response{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		metrics.RecordUpstreamError(elapsedMs(start))
		c.logger.Warn(ctx, "reading upstream body failed", logger.Int("status", resp.StatusCode), logger.Error(err))
		return Response{}, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if int64(len(body)) > c.maxResponseBytes {
		metrics.RecordUpstreamError(elapsedMs(start))
		c.logger.Warn(ctx, "upstream body over limit",
			logger.Int("status", resp.StatusCode),
			logger.Int64("limit", c.maxResponseBytes),
		)
		return Response{}, fmt.Errorf("%w: %w: limit %d bytes", ErrUpstream, ErrResponseTooLarge, c.maxResponseBytes)
	}

	metrics.RecordUpstreamResponse(resp.StatusCode, elapsedMs(start))
	c.logger.Debug(ctx, "upstream responded",
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(body)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func elapsedMs(start time.Time) float64 {
	return time.Since(start).Seconds() * millisecondsPerSecond
}
