// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// StatusError reports a non-2xx response that survived all retries.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Client performs JSON requests against public data services. GETs run under
// the short timeout, POSTs under the medium timeout; both retry through
// DoWithRetry. A non-nil Limiter paces calls across every user of the Client.
type Client struct {
	short      *http.Client
	medium     *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
}

// NewClient builds a Client from cfg. A nil base uses http.DefaultTransport.
func NewClient(cfg types.HTTPConfig, base http.RoundTripper) *Client {
	if base == nil {
		base = http.DefaultTransport
	}
	short := cfg.ShortTimeout
	if short <= 0 {
		short = 30 * time.Second
	}
	medium := cfg.MediumTimeout
	if medium <= 0 {
		medium = 45 * time.Second
	}

	c := &Client{
		short:      &http.Client{Transport: base, Timeout: short},
		medium:     &http.Client{Transport: base, Timeout: medium},
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// GetJSON issues a GET to rawURL with params and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(ctx, c.short, req, out)
}

// PostJSON marshals body, POSTs it to rawURL and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, c.medium, req, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for request slot: %w", err)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := DoWithRetry(ctx, hc, req, c.maxRetries)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", req.URL.Redacted(), err)
	}
	return nil
}
