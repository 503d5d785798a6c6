// Package planclient submits flight plans to the relay the way the planning
// page does: a direct JSON POST first, then a single multipart form fallback
// that a browser can send without a CORS preflight.
package planclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/okian/flightrelay/internal/domain/payload"
	"github.com/okian/flightrelay/pkg/logger"
)

// Client defaults.
const (
	defaultTimeout       = 30 * time.Second
	maxReplyBytes        = 1 << 20
	statusSuccessFloor   = 200
	statusSuccessCeiling = 300
)

// Strategy names how a plan was submitted.
type Strategy string

// Submission strategies, in the order they are attempted.
const (
	StrategyJSON Strategy = "json"
	StrategyForm Strategy = "form"
)

// Result is the outcome of the last attempt made.
type Result struct {
	Strategy   Strategy
	StatusCode int
	Body       []byte
}

// OK reports a 2xx answer.
func (r Result) OK() bool {
	return r.StatusCode >= statusSuccessFloor && r.StatusCode < statusSuccessCeiling
}

// Client posts plans to one relay URL.
type Client struct {
	url    string
	http   *http.Client
	logger logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds each attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the relay at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends plan as JSON and, if that attempt errors or is not 2xx, once
// more as a multipart form with the plan in the "payload" field. The result
// of the last attempt is returned; an error wraps ErrSubmit when neither
// attempt got a 2xx answer.
func (c *Client) Submit(ctx context.Context, plan []byte) (Result, error) {
	res, jsonErr := c.submitJSON(ctx, plan)
	if jsonErr == nil {
		return res, nil
	}
	c.logger.Warn(ctx, "json submission failed; falling back to form", logger.Error(jsonErr))

	res, formErr := c.submitForm(ctx, plan)
	if formErr == nil {
		return res, nil
	}
	return res, fmt.Errorf("%w: %w", ErrSubmit, errors.Join(jsonErr, formErr))
}

// submitJSON is the direct attempt. Its Content-Type triggers a preflight
// in browsers.
func (c *Client) submitJSON(ctx context.Context, plan []byte) (Result, error) {
	return c.post(ctx, StrategyJSON, "application/json", bytes.NewReader(plan))
}

// submitForm is the fallback attempt. A multipart body is a CORS "simple"
// request, so no preflight is needed.
func (c *Client) submitForm(ctx context.Context, plan []byte) (Result, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField(payload.FieldName, string(plan)); err != nil {
		return Result{Strategy: StrategyForm}, err
	}
	if err := w.Close(); err != nil {
		return Result{Strategy: StrategyForm}, err
	}
	return c.post(ctx, StrategyForm, w.FormDataContentType(), &buf)
}

func (c *Client) post(ctx context.Context, strategy Strategy, contentType string, body io.Reader) (Result, error) {
	res := Result{Strategy: strategy}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return res, fmt.Errorf("%s attempt: %w", strategy, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return res, fmt.Errorf("%s attempt: %w", strategy, err)
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	res.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return res, fmt.Errorf("%s attempt: read reply: %w", strategy, err)
	}
	if !res.OK() {
		return res, fmt.Errorf("%s attempt: status %d", strategy, res.StatusCode)
	}

	c.logger.Debug(ctx, "plan accepted", logger.String("strategy", string(strategy)), logger.Int("status", res.StatusCode))
	return res, nil
}
