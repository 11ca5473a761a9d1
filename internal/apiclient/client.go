// Package apiclient is the single point of outbound request construction for
// the expense API: bearer injection, correlation ids, tracing, throttling and
// diagnostic logging.
package apiclient

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

	"github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/request"
	"github.com/benvon/expense-console/internal/telemetry"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxResponseSize bounds how much of a response body is read into memory
const maxResponseSize = 20 << 20

// TokenSource yields the current session token, or "" when anonymous
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

// Token returns f()
func (f TokenFunc) Token() string { return f() }

// Client performs calls against the expense API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	limiter *limiter.Limiter
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Client
type Option func(*Client) error

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.http = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.http.Timeout = d
		return nil
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) error {
		c.tokens = ts
		return nil
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithRateLimit throttles outbound calls using a ulule/limiter formatted rate
// such as "20-S". A nil store keeps counters in memory.
func WithRateLimit(formatted string, store limiter.Store) Option {
	return func(c *Client) error {
		if formatted == "" {
			return nil
		}
		rate, err := limiter.NewRateFromFormatted(formatted)
		if err != nil {
			return fmt.Errorf("invalid API rate limit %q: %w", formatted, err)
		}
		if store == nil {
			store = memorystore.NewStore()
		}
		c.limiter = limiter.New(store, rate)
		return nil
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API base URL must be absolute, got %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  TokenFunc(func() string { return "" }),
		logger:  zap.NewNop(),
		tracer:  telemetry.Tracer(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Do sends a JSON request and decodes a JSON response into out (if non-nil)
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	var raw []byte
	contentType := ""
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	respBody, _, err := c.send(ctx, method, path, query, contentType, reader, raw)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// Upload sends a multipart form with one file part plus plain fields
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, file FilePart, out any) error {
	raw, contentType, err := encodeMultipart(fields, file)
	if err != nil {
		return err
	}
	respBody, _, err := c.send(ctx, http.MethodPost, path, nil, contentType, bytes.NewReader(raw), nil)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// Download fetches a raw body, returning it with its content type
func (c *Client) Download(ctx context.Context, path string) ([]byte, string, error) {
	return c.send(ctx, http.MethodGet, path, nil, "", nil, nil)
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send performs one round trip. logBody is the request body as it may be
// logged; multipart uploads pass nil.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, logBody []byte) ([]byte, string, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, "", err
	}

	endpoint := c.resolve(path, query)

	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	requestID := request.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(request.HeaderRequestID, requestID)

	if token := c.tokens.Token(); token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	c.logger.Debug("api_request",
		zap.String("method", method),
		zap.String("url", logger.SanitizeString(endpoint, logger.MaxPathLength)),
		zap.String("params", logger.SanitizeParams(query)),
		zap.String("body", logger.SanitizeBody(logBody)),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.Warn("api_transport_error",
			zap.String("method", method),
			zap.String("path", logger.SanitizePath(path)),
			zap.String("error", logger.SanitizeError(err)),
			zap.String("request_id", requestID),
		)
		return nil, "", &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed_to_close_response_body", zap.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read error")
		return nil, "", &TransportError{Method: method, Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		c.logger.Warn("api_error_response",
			zap.String("method", method),
			zap.String("path", logger.SanitizePath(path)),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", logger.SanitizeBody(respBody)),
			zap.String("request_id", requestID),
		)
		return nil, "", newAPIError(method, path, resp.StatusCode, respBody)
	}

	c.logger.Debug("api_response",
		zap.String("method", method),
		zap.String("path", logger.SanitizePath(path)),
		zap.Int("status_code", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.String("body", logger.SanitizeBody(respBody)),
	)

	return respBody, resp.Header.Get("Content-Type"), nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	lctx, err := c.limiter.Get(ctx, c.baseURL.Host)
	if err != nil {
		return fmt.Errorf("failed to check API rate limit: %w", err)
	}
	if lctx.Reached {
		c.logger.Warn("api_rate_limited",
			zap.String("host", c.baseURL.Host),
			zap.Int64("limit", lctx.Limit),
			zap.Time("reset", time.Unix(lctx.Reset, 0)),
		)
		return ErrRateLimited
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
