// Package api is the storefront's gateway to the shop REST API.
//
// A Client is either anonymous (catalog, login, registration) or bound to a
// TokenSource, in which case every request carries the current access token
// read fresh from the session store. Non-2xx responses are translated into
// domain errors so handlers can treat them uniformly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dukerupert/atelier/internal/domain"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api/"

// maxErrorBody bounds how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// TokenSource yields the access token for the current request.
// An empty token means the request is sent without credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Observer receives one callback per API call, for metrics.
type Observer interface {
	ObserveAPICall(op, outcome string, d time.Duration)
}

// Client talks to the shop REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	userAgent  string
	observer   Observer
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithObserver reports call durations and outcomes.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// BreakerSettings configures the circuit breaker around upstream calls.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker after this many network or 5xx failures in a row.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// OnStateChange is called on every transition.
	OnStateChange func(from, to string)
}

// WithBreaker fails fast while the shop API keeps failing. Business rule
// rejections, auth failures and other 4xx responses never trip it.
func WithBreaker(bs BreakerSettings) Option {
	return func(c *Client) {
		if bs.ConsecutiveFailures == 0 {
			bs.ConsecutiveFailures = 5
		}
		st := gobreaker.Settings{
			Name:    "shop-api",
			Timeout: bs.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				if err == nil || errors.Is(err, context.Canceled) {
					return true
				}
				code := domain.ErrorCode(err)
				return code != domain.EUNAVAILABLE && code != domain.EINTERNAL
			},
		}
		if bs.OnStateChange != nil {
			st.OnStateChange = func(_ string, from, to gobreaker.State) {
				bs.OnStateChange(from.String(), to.String())
			}
		}
		c.breaker = gobreaker.NewCircuitBreaker[struct{}](st)
	}
}

// New creates an anonymous client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url must be absolute: %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "atelier-storefront",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithTokenSource returns a copy of c that authenticates every request with ts.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// Authenticated reports whether the client attaches credentials.
func (c *Client) Authenticated() bool {
	return c.tokens != nil
}

// StatusError carries the raw upstream response behind a domain error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shop api status %d: %s", e.StatusCode, e.Body)
}

// StockShortage is attached to a conflict when the API reports how many units remain.
type StockShortage struct {
	Available int
	Requested int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("requested %d, only %d available", e.Requested, e.Available)
}

// request describes one call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	header http.Header
}

func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	start := time.Now()
	err := c.call(ctx, req, out)
	if c.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = domain.ErrorCode(err)
		}
		c.observer.ObserveAPICall(req.op, outcome, time.Since(start))
	}
	return err
}

func (c *Client) call(ctx context.Context, req request, out interface{}) error {
	// Credentials come from the session store, not the shop API, so a lookup
	// failure stays outside the breaker.
	var token string
	if c.tokens != nil {
		var err error
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return domain.Internal(err, req.op, "failed to read credentials")
		}
	}

	if c.breaker == nil {
		return c.roundTrip(ctx, req, token, out)
	}

	var callerErr error
	_, err := c.breaker.Execute(func() (struct{}, error) {
		err := c.roundTrip(ctx, req, token, out)
		if err != nil && ctx.Err() != nil {
			// The caller gave up; that says nothing about the shop API.
			callerErr = err
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if callerErr != nil {
		return callerErr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.Unavailable(err, req.op)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, token string, out interface{}) error {
	ref, err := url.Parse(strings.TrimPrefix(req.path, "/"))
	if err != nil {
		return domain.Internal(err, req.op, "invalid request path")
	}
	u := c.baseURL.ResolveReference(ref)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return domain.Internal(err, req.op, "failed to encode request")
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return domain.Internal(err, req.op, "failed to build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return domain.WrapError(ctx.Err(), domain.EUNAVAILABLE, req.op, "The request was cancelled.")
		}
		return domain.Unavailable(err, req.op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(req.op, resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Unavailable(err, req.op)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.Internal(err, req.op, "unexpected response from shop api")
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) send(ctx context.Context, op, method, path string, body, out interface{}) error {
	return c.do(ctx, request{op: op, method: method, path: path, body: body}, out)
}

// messageKeys are the body keys the shop API uses for a single human message.
var messageKeys = []string{"error", "detail", "message", "non_field_errors"}

// decodeError maps an upstream failure onto the domain error taxonomy.
func decodeError(op string, status int, raw []byte) error {
	se := &StatusError{StatusCode: status, Body: string(raw)}

	var body map[string]json.RawMessage
	_ = json.Unmarshal(raw, &body)
	msg := firstMessage(body)

	switch {
	case status == http.StatusUnauthorized:
		if msg == "" {
			msg = "Your session has expired. Please sign in again."
		}
		return &domain.Error{Code: domain.EUNAUTHORIZED, Op: op, Message: msg, Err: se}
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "You do not have permission to do that."
		}
		return &domain.Error{Code: domain.EFORBIDDEN, Op: op, Message: msg, Err: se}
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "We couldn't find what you were looking for."
		}
		return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: msg, Err: se}
	case status == http.StatusTooManyRequests:
		return &domain.Error{Code: domain.ERATELIMIT, Op: op, Message: "Too many requests. Please slow down.", Err: se}
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		if msg != "" {
			var cause error = se
			if short := stockShortage(body); short != nil {
				cause = errors.Join(short, se)
			}
			return &domain.Error{Code: domain.ECONFLICT, Op: op, Message: msg, Err: cause}
		}
		if fields := fieldErrors(body); len(fields) > 0 {
			return &domain.ValidationError{Op: op, Fields: fields}
		}
		return &domain.Error{Code: domain.ECONFLICT, Op: op, Message: "The shop could not accept that request.", Err: se}
	case status >= 500:
		return domain.Internal(se, op, "shop api failure")
	}
	return domain.Internal(se, op, "unexpected shop api response")
}

func firstMessage(body map[string]json.RawMessage) string {
	for _, k := range messageKeys {
		v, ok := body[k]
		if !ok {
			continue
		}
		if s := stringOrFirst(v); s != "" {
			return s
		}
	}
	return ""
}

// fieldErrors collects {"field": ["msg", ...]} or {"field": "msg"} entries.
func fieldErrors(body map[string]json.RawMessage) map[string]string {
	fields := make(map[string]string)
	for k, v := range body {
		if s := stringOrFirst(v); s != "" {
			fields[k] = s
		}
	}
	return fields
}

func stringOrFirst(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func stockShortage(body map[string]json.RawMessage) *StockShortage {
	availRaw, ok := body["available_quantity"]
	if !ok {
		return nil
	}
	var s StockShortage
	if err := json.Unmarshal(availRaw, &s.Available); err != nil {
		return nil
	}
	if reqRaw, ok := body["requested_quantity"]; ok {
		_ = json.Unmarshal(reqRaw, &s.Requested)
	}
	return &s
}

// Page is the pagination envelope of list endpoints.
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether another page exists.
func (p Page) HasNext() bool { return p.Next != nil && *p.Next != "" }

// HasPrevious reports whether a previous page exists.
func (p Page) HasPrevious() bool { return p.Previous != nil && *p.Previous != "" }

// List is a decoded list response. Endpoints return either a bare array or a
// paginated envelope; both decode into List.
type List[T any] struct {
	Page
	Results []T
}

// UnmarshalJSON accepts both shapes.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &l.Results); err != nil {
			return err
		}
		l.Count = len(l.Results)
		return nil
	}
	var env struct {
		Page
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	l.Page = env.Page
	l.Results = env.Results
	if l.Count == 0 {
		l.Count = len(l.Results)
	}
	return nil
}
