// Package restclient is the fetch-style client handle shared by HTTP apps:
// a base URL plus a fixed header set, bound at construction time.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	base    *url.URL
	headers map[string]string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// Response wraps a decoded JSON body.
type Response struct {
	StatusCode int
	Data       any
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Data       any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// New binds headers to a base URL. It performs no I/O.
func New(baseURL string, headers map[string]string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url must include scheme and host")
	}

	c := &Client{
		base:    parsed,
		headers: make(map[string]string, len(headers)),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for key, value := range headers {
		c.headers[key] = value
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.base.String()
}

// Headers returns a copy of the bound header set.
func (c *Client) Headers() map[string]string {
	out := make(map[string]string, len(c.headers))
	for key, value := range c.headers {
		out[key] = value
	}
	return out
}

// Resolve resolves path against the base URL the way a browser resolves a
// relative reference: "/ping" replaces the base path, "ping" is appended to
// the base directory, absolute URLs are used as-is.
func (c *Client) Resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// Get issues a GET request and decodes the JSON body.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path)
}

func (c *Client) do(ctx context.Context, method, path string) (*Response, error) {
	endpoint, err := c.Resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var data any
		// Error bodies are best-effort; a non-JSON body leaves Data nil.
		_ = json.Unmarshal(body, &data)
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Data: data}
	}

	var data any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return &Response{StatusCode: resp.StatusCode, Data: data}, nil
}

// Decode converts the decoded body into out.
func (r *Response) Decode(out any) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
