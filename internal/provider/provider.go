// Package provider carries the HTTP plumbing shared by the chamber clients:
// rate limiting, bounded retry on server errors, and helpers for digging
// values out of the inconsistently shaped JSON the upstream APIs return.
package provider

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
)

const defaultUserAgent = "plenario/1.0 (+https://github.com/civimetrics/plenario)"

// FetchError is a true transport or decode failure, as opposed to a field
// the provider simply does not carry.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPClient is a rate-limited HTTP client with bounded retry on 5xx.
type HTTPClient struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	UserAgent  string
}

// NewHTTPClient builds a client with the given request rate and timeout.
func NewHTTPClient(perSecond float64, burst int, timeout time.Duration) *HTTPClient {
	if burst <= 0 {
		burst = 5
	}
	return &HTTPClient{
		Client:     &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		MaxRetries: 3,
	}
}

// Get fetches a URL with optional query parameters.
func (c *HTTPClient) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, int, error) {
	if len(params) > 0 {
		sep := "?"
		if bytes.ContainsRune([]byte(rawURL), '?') {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}

	retries := c.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	delay := 300 * time.Millisecond

	var lastStatus int
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, 0, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, &FetchError{URL: rawURL, Err: err}
		}
		req.Header.Set("Accept", "application/json,text/html,*/*")
		ua := c.UserAgent
		if ua == "" {
			ua = defaultUserAgent
		}
		req.Header.Set("User-Agent", ua)

		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastStatus = resp.StatusCode
			lastErr = nil
			continue
		}
		return body, resp.StatusCode, nil
	}
	if lastErr != nil {
		return nil, 0, &FetchError{URL: rawURL, Err: lastErr}
	}
	return nil, lastStatus, &FetchError{URL: rawURL, Status: lastStatus}
}

// GetJSON fetches and decodes a JSON document into a generic value,
// preserving numbers as json.Number. A non-200 status is reported as a
// FetchError.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, params url.Values) (map[string]any, error) {
	body, status, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &FetchError{URL: rawURL, Status: status}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return v, nil
}
