// Package client provides the catalog API HTTP client with retries, error
// classification and request budget reporting.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dummy26/clothify/pkg/filter"
	"github.com/dummy26/clothify/pkg/logging"
	"github.com/dummy26/clothify/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for catalog API requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clothify_api_requests_total",
		Help: "Total catalog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clothify_api_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clothify_api_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// Catalog API paths.
const (
	PathClothes    = "/clothes"
	PathColors     = "/clothes/colors"
	PathSizes      = "/clothes/sizes"
	PathCategories = "/clothes/categories"
)

// Page size bounds accepted by the catalog API.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 512

// BudgetReporter receives response headers that carry the request budget.
type BudgetReporter interface {
	UpdateFromHeaders(ctx context.Context, headers http.Header) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the catalog API root, e.g. "https://api.example.com/v1"
	BaseURL string

	// UserAgent is sent with every request
	UserAgent string

	// PageSize is the "limit" query parameter (default 10, max 50)
	PageSize int

	// Timeout bounds a single HTTP attempt (default 15s)
	Timeout time.Duration

	// Retry controls backoff for server, rate limit and network errors
	Retry RetryConfig

	// Budget is notified of rate limit headers (optional)
	Budget BudgetReporter
}

// DefaultConfig returns a default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "clothify/1.0",
		PageSize:  DefaultPageSize,
		Timeout:   15 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client talks to the catalog API. It implements pagination.Fetcher.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new catalog API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		return nil, fmt.Errorf("page size must be between 1 and %d (got %d)", MaxPageSize, cfg.PageSize)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentClient),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int {
	return c.config.PageSize
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
	Meta struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

// FetchPage fetches one page of clothes matching set.
func (c *Client) FetchPage(ctx context.Context, set filter.Set, cursor int) (pagination.Page, error) {
	if cursor < pagination.FirstCursor {
		return pagination.Page{}, fmt.Errorf("invalid page cursor %d", cursor)
	}

	q := set.QueryValues()
	q.Set("page", strconv.Itoa(cursor))
	q.Set("limit", strconv.Itoa(c.config.PageSize))

	var body listResponse
	if err := c.getJSON(ctx, PathClothes, q, &body); err != nil {
		return pagination.Page{}, err
	}

	number := body.Meta.Page
	if number == 0 {
		number = cursor
	}
	return pagination.Page{
		Number:     number,
		Items:      body.Data,
		Total:      body.Meta.Total,
		TotalPages: body.Meta.TotalPages,
	}, nil
}

// Colors returns the color filter options.
func (c *Client) Colors(ctx context.Context) ([]string, error) {
	return c.options(ctx, PathColors)
}

// Sizes returns the size filter options.
func (c *Client) Sizes(ctx context.Context) ([]string, error) {
	return c.options(ctx, PathSizes)
}

// Categories returns the category filter options.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return c.options(ctx, PathCategories)
}

func (c *Client) options(ctx context.Context, path string) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getJSON performs a GET with retries and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	target := u.String()

	return c.retry(ctx, path, func() error {
		return c.do(ctx, path, target, out)
	})
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, endpoint, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().Str("endpoint", endpoint).Str("url", target).Msg("Executing catalog request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return &APIError{
			Class:    ErrorClassNetwork,
			Endpoint: endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if c.config.Budget != nil {
		if err := c.config.Budget.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update request budget from headers")
		}
	}

	status := strconv.Itoa(resp.StatusCode)
	apiRequestsTotal.WithLabelValues(endpoint, status).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Catalog request error")

		message := strings.TrimSpace(string(msg))
		if message == "" {
			message = resp.Status
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Endpoint:   endpoint,
			Message:    message,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return nil
}
