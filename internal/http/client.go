package http

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

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Client wraps HTTP operations with backend-specific configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional bearer token authentication
//   - Timeout handling
//   - JSON request/response helpers
//
// Example usage:
//
//	client := NewClient(WithToken(os.Getenv("POST_EXPORT_TOKEN")))
//
//	var resp recordsResponse
//	err := client.PostJSON(ctx, "https://api.example.com/exports", req, &resp)
type Client struct {
	httpClient *http.Client
	userAgent  string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithToken sends "Authorization: Bearer <token>" with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying *http.Client (tests use this to
// point at an httptest server's client).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 30 second timeout
//   - "PostExporter" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: "PostExporter",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends in as a JSON body and decodes the JSON response into out.
//
// out may be nil to discard the response body.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 2xx (*StatusError)
//   - The response body cannot be decoded
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
