package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dummy26/clothify/internal/config"
	"github.com/dummy26/clothify/pkg/cache"
	"github.com/dummy26/clothify/pkg/catalog"
	"github.com/dummy26/clothify/pkg/client"
	"github.com/dummy26/clothify/pkg/filter"
	"github.com/dummy26/clothify/pkg/logging"
	"github.com/dummy26/clothify/pkg/metrics"
	"github.com/dummy26/clothify/pkg/pagination"
	"github.com/dummy26/clothify/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Hover query parameters of /prefetch. The remaining parameters describe the
// committed filter set, as for /clothes.
const (
	paramHoverCategory   = "hover_category"
	paramHoverColor      = "hover_color"
	paramHoverSize       = "hover_size"
	paramHoverMinPrice   = "hover_min_price"
	paramHoverMaxPrice   = "hover_max_price"
	paramHoverClearPrice = "hover_clear_price"
	paramPage            = "page"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "clothify_proxy_request_duration_seconds",
	Help:    "Proxy HTTP request duration by handler",
	Buckets: prometheus.DefBuckets,
}, []string{"handler", "code", "method"})

type server struct {
	config  *config.Config
	client  *client.Client
	redis   *redis.Client
	tracker *ratelimit.Tracker
	results *cache.QueryCache[pagination.Result]
	options *cache.QueryCache[[]string]
	logger  zerolog.Logger
}

// newServer wires the API client, caches and request budget. redisClient may
// be nil, in which case every cache and the budget are process-local.
func newServer(cfg *config.Config, redisClient *redis.Client) (*server, error) {
	logger := logging.NewLogger(logging.ComponentProxy)
	tracker := ratelimit.NewTracker(redisClient, logging.NewLogger(logging.ComponentRateLimit))

	apiCfg := client.DefaultConfig(cfg.APIBaseURL)
	apiCfg.UserAgent = cfg.UserAgent
	apiCfg.PageSize = cfg.PageSize
	apiCfg.Timeout = cfg.RequestTimeout
	apiCfg.Retry.MaxAttempts = cfg.RetryMaxAttempts
	apiCfg.Retry.InitialBackoff = cfg.RetryInitialBackoff
	apiCfg.Budget = tracker

	apiClient, err := client.New(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	resultsOpts := cache.Options{Name: "clothes", FetchTimeout: cfg.FetchTimeout, GCTime: cfg.GCTime}
	optionsOpts := cache.Options{Name: "filter-options", FetchTimeout: cfg.FetchTimeout, GCTime: cfg.GCTime}
	if redisClient != nil {
		resultsOpts.Store = cache.NewRedisStore(redisClient, cfg.RedisPrefix)
		optionsOpts.Store = cache.NewRedisStore(redisClient, cfg.RedisPrefix+"options:")
	}

	return &server{
		config:  cfg,
		client:  apiClient,
		redis:   redisClient,
		tracker: tracker,
		results: cache.New[pagination.Result](resultsOpts),
		options: cache.New[[]string](optionsOpts),
		logger:  logger,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /clothes", instrument("clothes", s.clothesHandler))
	mux.Handle("GET /prefetch", instrument("prefetch", s.prefetchHandler))
	mux.Handle("POST /prefetch", instrument("prefetch", s.prefetchHandler))
	mux.Handle("GET /filters", instrument("filters", s.filtersHandler))
	return mux
}

func instrument(name string, h http.HandlerFunc) http.Handler {
	return promhttp.InstrumentHandlerDuration(
		requestDuration.MustCurryWith(prometheus.Labels{"handler": name}), h)
}

// page builds the view of one request: the shared caches with the
// committed filter set taken from the query.
func (s *server) page(set filter.Set) *catalog.Page {
	p := catalog.New(s.client, s.results, catalog.Options{
		StaleTime:    s.config.StaleTime,
		InitialPages: s.config.InitialPages,
		Batch: pagination.Config{
			MaxConcurrency: s.config.MaxConcurrency,
			Timeout:        s.config.RequestTimeout,
		},
		Gate:        s.tracker,
		Source:      s.client,
		OptionCache: s.options,
	})
	p.Apply(set)
	return p
}

// collectLoop drops unused cache entries until ctx is done.
func (s *server) collectLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.results.Collect() + s.options.Collect()
			if removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("Collected cache entries")
			}
		}
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

type listMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type listResponse struct {
	Key  string            `json:"key"`
	Data []json.RawMessage `json:"data"`
	Meta listMeta          `json:"meta"`
}

// clothesHandler serves the committed results. page=N loads pages until N
// are present or the list ends.
func (s *server) clothesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	set, err := filter.ParseQueryValues(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	want := pagination.FirstCursor
	if raw := q.Get(paramPage); raw != "" {
		want, err = strconv.Atoi(raw)
		if err != nil || want < 1 {
			http.Error(w, fmt.Sprintf("invalid page %q", raw), http.StatusBadRequest)
			return
		}
	}

	p := s.page(set)
	result, err := p.Results(r.Context())
	for err == nil && len(result.Pages) < want && result.HasNext() {
		result, err = p.LoadMore(r.Context())
	}
	if err != nil {
		s.writeError(w, p.Key().String(), err)
		return
	}

	meta := listMeta{Limit: s.client.PageSize()}
	if n := len(result.Pages); n > 0 {
		last := result.Pages[n-1]
		meta.Page = last.Number
		meta.Total = last.Total
		meta.TotalPages = last.TotalPages
	}

	writeJSON(w, http.StatusOK, listResponse{
		Key:  p.Key().String(),
		Data: result.Items(),
		Meta: meta,
	})
}

type prefetchResponse struct {
	Key     string `json:"key"`
	Started bool   `json:"started"`
}

// prefetchHandler warms the candidate key of the hovered option and returns
// without waiting for the fetch.
func (s *server) prefetchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q = r.Form
	}

	set, err := filter.ParseQueryValues(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hover, err := parseHover(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, started := s.page(set).Hover(r.Context(), hover)
	writeJSON(w, http.StatusAccepted, prefetchResponse{Key: key.String(), Started: started})
}

func (s *server) filtersHandler(w http.ResponseWriter, r *http.Request) {
	p := s.page(filter.Set{})
	opts, err := p.FilterOptions(r.Context())
	if err != nil {
		s.writeError(w, "filters", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func parseHover(q url.Values) (filter.HoverInput, error) {
	get := q.Get

	in := filter.HoverInput{
		Category: get(paramHoverCategory),
		Color:    get(paramHoverColor),
		Size:     get(paramHoverSize),
	}

	switch minStr, maxStr := get(paramHoverMinPrice), get(paramHoverMaxPrice); {
	case get(paramHoverClearPrice) == "1":
		in.Price = &filter.NoPrice
	case minStr != "" || maxStr != "":
		price, err := filter.ParsePriceRange(minStr, maxStr)
		if err != nil {
			return filter.HoverInput{}, fmt.Errorf("hover price: %w", err)
		}
		in.Price = &price
	}
	return in, nil
}

// writeError passes client errors of the catalog API through and reports
// everything else as a bad gateway.
func (s *server) writeError(w http.ResponseWriter, key string, err error) {
	status := http.StatusBadGateway
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Class == client.ErrorClassClient {
		status = apiErr.StatusCode
	}
	s.logger.Error().Err(err).Str("key", key).Int("status", status).Msg("Catalog request failed")
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.NewLogger(logging.ComponentProxy).Warn().Err(err).Msg("Failed to write response")
	}
}
