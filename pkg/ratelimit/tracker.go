package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	budgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clothify_api_budget_remaining",
		Help: "Requests remaining in the current catalog API rate limit window",
	})

	prefetchGatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clothify_prefetch_gated_total",
		Help: "Total number of speculative prefetches suppressed by a low request budget",
	})
)

// Tracker records the API request budget and answers whether speculative
// work may run. With a Redis client the state is shared across instances;
// with nil it is kept in process.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local *State
}

// NewTracker creates a tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState returns the current budget. A default healthy state is returned
// until the API has reported one.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return defaultState(time.Now()), nil
		}
		s := *t.local
		return &s, nil
	}

	data, err := t.redis.Get(ctx, RedisKeyState).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
			return defaultState(time.Now()), nil
		}
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse rate limit state: %w", err)
	}
	s.UpdateHealth()
	return &s, nil
}

// UpdateFromHeaders parses the budget headers of an API response and
// records them. Responses without X-RateLimit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}
	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	now := time.Now()
	state := &State{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}
	budgetRemaining.Set(float64(remain))

	switch {
	case state.IsCritical():
		t.logger.Error().Int("remaining", remain).Time("reset_at", state.ResetAt).
			Msg("API request budget critical")
	case state.IsLow():
		t.logger.Warn().Int("remaining", remain).Time("reset_at", state.ResetAt).
			Msg("API request budget low - prefetching suspended")
	default:
		t.logger.Debug().Int("remaining", remain).Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).Msg("API request budget updated")
	}
	return nil
}

func (t *Tracker) store(ctx context.Context, state *State) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}
	// The state is worthless once its window has reset.
	ttl := time.Until(state.ResetAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := t.redis.Set(ctx, RedisKeyState, data, ttl).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// AllowSpeculative reports whether optional prefetch work may run.
// It returns false while the budget is low, and also when the state cannot
// be read. Committed reads never consult it.
func (t *Tracker) AllowSpeculative(ctx context.Context) bool {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable - prefetch suppressed")
		prefetchGatedTotal.Inc()
		return false
	}

	if state.IsLow() {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Dur("reset_in", state.TimeUntilReset()).
			Msg("Prefetch suppressed by low request budget")
		prefetchGatedTotal.Inc()
		return false
	}
	return true
}
