package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout = 10 * time.Second
	maxErrorBody         = 2048
)

// ErrClientNotConfigured reports a vendor client without a base URL.
var ErrClientNotConfigured = errors.New("httpx: client base url not configured")

// StatusError is returned when a vendor answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the vendor failure is worth treating as transient.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports network failures, timeouts and transient vendor statuses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

// JSONClient calls JSON/HTTP vendor APIs under a base URL.
type JSONClient struct {
	baseURL string
	http    *http.Client
	headers http.Header
	user    string
	pass    string
}

// ClientOption customises a JSONClient.
type ClientOption func(*JSONClient)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *JSONClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBearerToken sends Authorization: Bearer token.
func WithBearerToken(token string) ClientOption {
	return func(c *JSONClient) {
		if token = strings.TrimSpace(token); token != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithBasicAuth sends HTTP basic credentials.
func WithBasicAuth(user, pass string) ClientOption {
	return func(c *JSONClient) {
		c.user, c.pass = user, pass
	}
}

// WithHeader adds a static request header.
func WithHeader(key, value string) ClientOption {
	return func(c *JSONClient) {
		if strings.TrimSpace(key) != "" && value != "" {
			c.headers.Set(key, value)
		}
	}
}

// NewJSONClient builds a client whose transport emits OpenTelemetry client spans.
func NewJSONClient(baseURL string, timeout time.Duration, opts ...ClientOption) *JSONClient {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	c := &JSONClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		headers: http.Header{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Configured reports whether a base URL was provided.
func (c *JSONClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Do sends in as JSON to path and decodes a 2xx response into out. in and out may be nil.
func (c *JSONClient) Do(ctx context.Context, method, path string, in, out any) error {
	if !c.Configured() {
		return ErrClientNotConfigured
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpx: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpx: decode %s %s: %w", method, target, err)
	}
	return nil
}

// Download fetches an absolute URL and returns the body for the caller to close.
func (c *JSONClient) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *JSONClient) send(req *http.Request) (*http.Response, error) {
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	return resp, nil
}
