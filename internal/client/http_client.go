package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// maxErrorBodyBytes bounds how much of a failed response is read
const maxErrorBodyBytes = 64 << 10

// HTTPClientConfig configures the shared transport. Zero values fall back to
// DefaultHTTPClientConfig. There is no overall request timeout; streams may
// legitimately run for minutes.
type HTTPClientConfig struct {
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
}

// DefaultHTTPClientConfig returns the transport defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
	}
}

func (c HTTPClientConfig) withDefaults() HTTPClientConfig {
	def := DefaultHTTPClientConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}
	if c.ResponseHeaderTimeout <= 0 {
		c.ResponseHeaderTimeout = def.ResponseHeaderTimeout
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = def.IdleConnTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = def.MaxIdleConns
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	return c
}

// HTTPClient sends vendor requests over one pooled transport. It is safe
// for concurrent use; each call gets its own connection from the pool.
type HTTPClient struct {
	httpClient *http.Client
}

// NewHTTPClient creates a client with its own pooled transport
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	config = config.withDefaults()
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		IdleConnTimeout:       config.IdleConnTimeout,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
	}
	return NewHTTPClientFrom(&http.Client{Transport: transport})
}

// NewHTTPClientFrom wraps an existing *http.Client
func NewHTTPClientFrom(c *http.Client) *HTTPClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPClient{httpClient: c}
}

// Request describes one vendor call. Body is JSON-encoded when non-nil.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// Do performs the request and returns the response for any 2xx status; the
// caller owns and must close the body. Failures are *types.LLMError values.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*http.Response, error) {
	endpoint := EndpointOf(req.URL)
	if err := ctx.Err(); err != nil {
		return nil, types.NewCancellationError(endpoint, err)
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, WrapReadError(ctx, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, types.NewHTTPStatusError(endpoint, resp.StatusCode, ErrorMessage(raw))
	}
	return resp, nil
}

// DoJSON performs the request and returns the full response body
func (c *HTTPClient) DoJSON(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapReadError(ctx, EndpointOf(req.URL), err)
	}
	return raw, nil
}

// WrapReadError classifies an I/O failure: cancellation when ctx is done,
// a transport error otherwise.
func WrapReadError(ctx context.Context, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.NewCancellationError(endpoint, ctxErr)
	}
	if errors.Is(err, context.Canceled) {
		return types.NewCancellationError(endpoint, err)
	}
	return types.NewTransportError(endpoint, err)
}

// ErrorMessage extracts a human readable message from a vendor error body.
// Both dialects use {"error":{"message":...}}; some servers send
// {"error":"..."} or {"message":"..."}.
func ErrorMessage(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	if !gjson.ValidBytes(raw) {
		return truncateMessage(string(raw))
	}
	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if r := gjson.GetBytes(raw, path); r.Exists() && r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// EndpointOf strips the query string, which may carry credentials
func EndpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

func truncateMessage(s string) string {
	const limit = 500
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
