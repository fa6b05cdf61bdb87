// Package vendorflow is the HTTP client for the VendorFlow automation
// backend: job submission, the live log/progress stream, status
// polling, and the sectioned configuration document.
package vendorflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "fatality-console"

	// maxErrorBody caps how much of a failed response is kept for
	// the error message.
	maxErrorBody = 8 << 10
)

// Client talks to one VendorFlow backend. Unary calls are bounded by
// the configured timeout; streaming calls run until their context is
// cancelled or the server closes the stream.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

// BaseURL returns the backend address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-success HTTP response from the backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// Busy reports whether the backend rejected a submission because a
// job is already running there.
func (e *APIError) Busy() bool {
	return e.Status == http.StatusConflict
}

// Health is the backend's identity banner.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// BackendStatus is the poll snapshot of the backend's job state.
type BackendStatus struct {
	IsProcessing bool   `json:"is_processing"`
	CurrentTask  string `json:"current_task"`
	Progress     int    `json:"progress"`
	Total        int    `json:"total"`
}

// Health fetches the identity banner from the backend root.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.getJSON(ctx, "/", &out)
	return out, err
}

// Status fetches the current processing snapshot.
func (c *Client) Status(ctx context.Context) (BackendStatus, error) {
	var out BackendStatus
	err := c.getJSON(ctx, "/api/status", &out)
	return out, err
}

// Stop asks the backend to halt the running job.
func (c *Client) Stop(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/stop", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// ScrapeResults is the row set retained from the most recent scrape
// run. Row shape follows whatever columns the scraper collected.
type ScrapeResults struct {
	Results []map[string]any `json:"results"`
	Count   int              `json:"count"`
}

// LastScrapeResults fetches the rows collected by the most recent
// scrape job.
func (c *Client) LastScrapeResults(ctx context.Context) (ScrapeResults, error) {
	var out ScrapeResults
	err := c.getJSON(ctx, "/api/scrape/results", &out)
	return out, err
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// do issues one request with the unary timeout applied on top of the
// caller's context.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	resp, err := c.doStreaming(ctx, method, path, body, contentType)
	if err != nil {
		cancel()
		return nil, err
	}
	// The timeout covers the whole body read for unary calls.
	resp.Body = &cancelingBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// doStreaming issues one request bounded only by the caller's
// context, for endpoints whose bodies stay open.
func (c *Client) doStreaming(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(raw), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

// checkStatus converts a non-2xx response into an APIError, keeping a
// bounded slice of the body for diagnosis.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(raw)),
	}
}

// cancelingBody releases the request's timeout context when the body
// is closed.
type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelingBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
