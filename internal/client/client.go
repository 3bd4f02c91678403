// ABOUTME: HTTP client for the shelf marketplace API
// ABOUTME: Builds requests, attaches bearer tokens and normalizes backend errors

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/shelfhq/shelf/internal/cache"
)

// DefaultTimeout bounds every request unless overridden with WithTimeout
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for its detail
const maxErrorBody = 1 << 20

// TokenSource supplies the bearer token for authenticated calls.
// An empty string means no credential is available.
type TokenSource interface {
	Token(ctx context.Context) string
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

func (s StaticToken) Token(context.Context) string {
	return string(s)
}

// Client is the API client for the marketplace backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	categories *cache.Cache
	flights    singleflight.Group
	requestID  func() string
}

// Option configures a Client
type Option func(*Client)

// WithTokenSource sets where authenticated calls read their bearer token from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCategoryCache caches the category list for ttl. Zero disables caching.
func WithCategoryCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.categories = cache.New(ttl)
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		categories: cache.New(5 * time.Minute),
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call
type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	form   map[string]string
	auth   bool
	// token overrides the TokenSource for this call
	token string
	// failMsg is used when the error body carries no detail
	failMsg string
}

// do sends r and decodes a JSON response into out (which may be nil)
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{
			Kind:    KindInvalidResponse,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("invalid response from backend: %v", err),
			Err:     err,
		}
	}
	return nil
}

// doRaw sends r and returns the raw response body and headers
func (c *Client) doRaw(ctx context.Context, r request) ([]byte, http.Header, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, c.handleRequestError(ctx, err)
	}
	return data, resp.Header, nil
}

// send builds and executes the request. A non-2xx response is converted to
// an *Error and its body is closed; otherwise the caller owns resp.Body.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	token := r.token
	if r.auth && token == "" && c.tokens != nil {
		token = c.tokens.Token(ctx)
	}
	if r.auth && token == "" {
		return nil, ErrUnauthenticated
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := c.requestID()
	req.Header.Set("X-Request-Id", requestID)
	if r.auth {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", r.method).Str("path", r.path).Str("request_id", requestID).Msg("backend request failed")
		return nil, c.handleRequestError(ctx, err)
	}

	log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, c.handleErrorResponse(resp, r.failMsg)
	}
	return resp, nil
}

func encodeBody(r request) (io.Reader, string, error) {
	if r.form != nil {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range r.form {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("failed to encode form: %w", err)
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to encode form: %w", err)
		}
		return &buf, mw.FormDataContentType(), nil
	}
	if r.body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal input: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// handleRequestError converts transport errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	msg := fmt.Sprintf("cannot connect to backend at %s", c.baseURL)
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "request canceled"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = "request timed out"
	}
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response, fallback string) error {
	kind := KindServer
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = KindUnauthorized
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := detailMessage(body)
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
	}

	return &Error{Kind: kind, Status: resp.StatusCode, Message: msg}
}

// page builds the skip/limit query used by every list endpoint
func page(skip, limit int) url.Values {
	q := url.Values{}
	q.Set("skip", fmt.Sprint(skip))
	q.Set("limit", fmt.Sprint(limit))
	return q
}

// Message is the generic {"message": "..."} acknowledgement body
type Message struct {
	Message string `json:"message"`
}

// Document is a loosely typed JSON object for responses whose shape the
// backend does not pin down
type Document map[string]interface{}

// Int returns the numeric field key as an int
func (d Document) Int(key string) (int, bool) {
	return toInt(d[key])
}

// String returns the field key if it is a string
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// HealthResponse is the backend root greeting
type HealthResponse struct {
	Message string `json:"message"`
}

// Ping calls GET /
func (c *Client) Ping(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/", failMsg: "Backend unavailable"}, &health); err != nil {
		return nil, err
	}
	return &health, nil
}
