// Package api provides the HTTP client for the RouteRight planning service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/stream"
	"github.com/pablasso/routeright/internal/version"
)

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// Config holds configuration options for the client.
type Config struct {
	// BaseURL is the planning service root (default: http://localhost:8000)
	BaseURL string

	// Timeout for blocking requests (default: 60s). OpenPlan is not bounded
	// by it; its lifetime belongs to the caller's context.
	Timeout time.Duration

	// RateLimit is requests per second (default: 2)
	RateLimit float64

	// RateBurst is the limiter burst (default: 2)
	RateBurst int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:8000",
		Timeout:   60 * time.Second,
		RateLimit: 2,
		RateBurst: 2,
	}
}

// Client talks to the planning service. It is safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *logging.Logger
	streamOpts []stream.Option
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records request counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent("api")
		}
	}
}

// WithStreamOptions configures the decoder used when a blocking call
// receives a streamed body.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(c *Client) { c.streamOpts = append(c.streamOpts, opts...) }
}

// NewClient creates a client. Zero config values fall back to defaults.
func NewClient(config *Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = defaults.RateBurst
	}

	c := &Client{
		config:     &cfg,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client targets.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// PlanResponse is an open POST /plan response. The caller must close Body.
type PlanResponse struct {
	Body      io.ReadCloser
	Streaming bool
	RequestID string
}

// OpenPlan submits req and returns the response as soon as headers arrive.
// A non-success status is returned as a *plan.Error and no body.
func (c *Client) OpenPlan(ctx context.Context, req plan.PlanRequest) (*PlanResponse, error) {
	resp, requestID, err := c.do(ctx, http.MethodPost, PathPlan, req.Body(),
		ContentTypeEventStream+", "+ContentTypeJSON)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, statusError(resp, "Failed to create plan")
	}

	return &PlanResponse{
		Body:      resp.Body,
		Streaming: !isJSON(resp.Header.Get("Content-Type")),
		RequestID: requestID,
	}, nil
}

// CreatePlan submits req and waits for the finished plan, bounded by the
// configured timeout. A streamed answer is drained and its terminal event used.
func (c *Client) CreatePlan(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.OpenPlan(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !resp.Streaming {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, Classify(ctx, err)
		}
		return plan.DecodePlan(data)
	}

	s := stream.Parse(ctx, resp.Body, c.streamOpts...)
	for ev := range s.Events() {
		switch ev.Kind {
		case plan.EventResult:
			return ev.Plan, nil
		case plan.EventError:
			return nil, ev.Err
		}
	}
	if err := s.Err(); err != nil {
		return nil, Classify(ctx, err)
	}
	return nil, plan.ErrStreamEnded
}

// SubmitFeedback posts feedback for a plan.
func (c *Client) SubmitFeedback(ctx context.Context, fb FeedbackRequest) (*FeedbackResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var out FeedbackResponse
	if err := c.doJSON(ctx, http.MethodPost, PathFeedback, fb, &out, "Failed to submit feedback"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks whether the planning service is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, PathHealth, nil, &out, "Health check failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, failure string) error {
	resp, _, err := c.do(ctx, method, path, body, ContentTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp, failure)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return Classify(ctx, err)
		}
		return plan.NewError(plan.KindValidation, "planning service returned an unreadable response", err)
	}
	return nil
}

// do waits for the rate limiter, then sends the request.
func (c *Client) do(ctx context.Context, method, path string, body any, accept string) (*http.Response, string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", plan.NewError(plan.KindValidation, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, "", plan.NewError(plan.KindNetwork, "failed to create request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", Classify(ctx, err)
	}

	endpoint := strings.TrimPrefix(path, "/")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Request(endpoint, "error")
		c.logger.Warn("request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return nil, "", Classify(ctx, err)
	}

	c.metrics.Request(endpoint, strconv.Itoa(resp.StatusCode))
	c.logger.Debug("request sent",
		"method", method, "path", path, "request_id", requestID,
		"status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, requestID, nil
}

// statusError converts a non-success response into a KindNetwork error,
// preferring the server's detail message.
func statusError(resp *http.Response, failure string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if detail := plan.DecodeDetail(data); detail != "" {
		return plan.NewError(plan.KindNetwork, detail, nil)
	}
	return plan.NewError(plan.KindNetwork, fmt.Sprintf("%s (HTTP %d)", failure, resp.StatusCode), nil)
}

// Classify maps a transport failure onto the error taxonomy. Errors that
// already carry a kind are returned unchanged.
func Classify(ctx context.Context, err error) error {
	var perr *plan.Error
	if errors.As(err, &perr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return plan.NewError(plan.KindTimeout, "the planning service did not respond in time", err)
	}
	if errors.Is(err, context.Canceled) {
		return plan.NewError(plan.KindNetwork, "request cancelled", err)
	}
	// rate.Limiter refuses a wait that would outlive the deadline
	if strings.Contains(err.Error(), "would exceed context deadline") {
		return plan.NewError(plan.KindTimeout, "the planning service did not respond in time", err)
	}
	return plan.NewError(plan.KindNetwork, "could not reach the planning service: "+rootMessage(err), err)
}

// rootMessage strips url.Error's method and URL prefix.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == ContentTypeJSON
}
