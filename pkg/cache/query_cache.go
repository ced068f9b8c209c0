package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/dummy26/clothify/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrNoFetcher is returned by Fetch when called with a nil fetch function.
var ErrNoFetcher = errors.New("cache: no fetch function provided")

// errFlightGone is returned to a caller that joined a flight after it
// finished and its entry was collected.
var errFlightGone = errors.New("cache: entry collected during fetch")

// FetchFunc loads the value for one key from the origin.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// WarmOptions controls freshness for Warm and Fetch.
type WarmOptions struct {
	// StaleTime is how long fetched data counts as fresh. Zero means
	// data is stale immediately and every warm refetches unless a fetch
	// is already in flight.
	StaleTime time.Duration
}

// Options configures a QueryCache.
type Options struct {
	// Name labels metrics and logs (default: "default")
	Name string

	// FetchTimeout bounds each origin fetch (default: 30s)
	FetchTimeout time.Duration

	// GCTime is how long an unused entry is kept before Collect drops it
	// (default: 5m)
	GCTime time.Duration

	// Store is an optional shared backing store
	Store Store

	// Now overrides the clock (for tests)
	Now func() time.Time
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Name:         "default",
		FetchTimeout: 30 * time.Second,
		GCTime:       5 * time.Minute,
	}
}

type entry[V any] struct {
	data        V
	hasData     bool
	status      Status
	err         error
	updatedAt   time.Time
	invalidated bool
	lastAccess  time.Time

	// flight is the generation of the running fetch, 0 when idle. It is
	// set and cleared under the cache mutex only.
	flight uint64

	// invalidatedInFlight keeps the result of the running fetch stale.
	invalidatedInFlight bool

	// flightStale is the freshness window of the running fetch, used for
	// store records.
	flightStale time.Duration
}

func (e *entry[V]) view(key string) Entry[V] {
	return Entry[V]{
		Key:         key,
		Data:        e.data,
		HasData:     e.hasData,
		Status:      e.status,
		Err:         e.err,
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
	}
}

// QueryCache maps query keys to fetched values with staleness tracking and
// in-flight de-duplication. At most one fetch per key runs at a time.
// All methods are safe for concurrent use.
type QueryCache[V any] struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry[V]

	flights   singleflight.Group
	flightSeq uint64
}

// New creates a query cache. Zero option fields take DefaultOptions values.
func New[V any](opts Options) *QueryCache[V] {
	def := DefaultOptions()
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = def.FetchTimeout
	}
	if opts.GCTime <= 0 {
		opts.GCTime = def.GCTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &QueryCache[V]{
		opts:    opts,
		logger:  logging.NewLogger(logging.ComponentQueryCache).With().Str("cache", opts.Name).Logger(),
		entries: make(map[string]*entry[V]),
	}
}

// Warm starts fetching key in the background unless its data is younger
// than opts.StaleTime or a fetch for it is already in flight. It returns
// true if this call started a fetch. The fetch is detached from ctx
// cancellation; its outcome is visible only through Read.
func (c *QueryCache[V]) Warm(ctx context.Context, key string, fetch FetchFunc[V], opts WarmOptions) bool {
	if fetch == nil {
		return false
	}

	now := c.opts.Now()
	c.mu.Lock()
	e := c.entries[key]
	switch {
	case e != nil && !e.view(key).IsStale(opts.StaleTime, now):
		e.lastAccess = now
		c.mu.Unlock()
		Warms.WithLabelValues(c.opts.Name, "fresh").Inc()
		c.logger.Debug().Str("key", key).Msg("Warm skipped, data fresh")
		return false
	case e != nil && e.flight != 0:
		e.lastAccess = now
		c.mu.Unlock()
		Warms.WithLabelValues(c.opts.Name, "inflight").Inc()
		c.logger.Debug().Str("key", key).Msg("Warm skipped, fetch in flight")
		return false
	}
	gen := c.startLocked(key, now, opts.StaleTime)
	c.mu.Unlock()

	Warms.WithLabelValues(c.opts.Name, "started").Inc()
	c.logger.Debug().Str("key", key).Dur("stale_time", opts.StaleTime).Msg("Warming cache")

	// DoChan registers the flight before returning; the buffered result
	// channel is dropped.
	c.flights.DoChan(flightKey(key, gen), func() (any, error) {
		return c.load(ctx, key, gen, fetch)
	})
	return true
}

// Read returns the entry for key, which may be stale, loading or failed.
func (c *QueryCache[V]) Read(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{Key: key}, false
	}
	e.lastAccess = c.opts.Now()
	return e.view(key), true
}

// Fetch returns fresh data for key, fetching it if needed. A fetch already
// in flight for key is joined rather than duplicated. ctx bounds only the
// wait; the shared fetch itself keeps running for other callers.
func (c *QueryCache[V]) Fetch(ctx context.Context, key string, fetch FetchFunc[V], opts WarmOptions) (V, error) {
	var zero V
	if fetch == nil {
		return zero, ErrNoFetcher
	}

	now := c.opts.Now()
	c.mu.Lock()
	e := c.entries[key]
	if e != nil {
		e.lastAccess = now
		if !e.view(key).IsStale(opts.StaleTime, now) {
			data := e.data
			c.mu.Unlock()
			CacheHits.WithLabelValues(c.opts.Name, "memory").Inc()
			c.touch(ctx, key, now)
			return data, nil
		}
	}
	var gen uint64
	if e != nil && e.flight != 0 {
		gen = e.flight
	} else {
		gen = c.startLocked(key, now, opts.StaleTime)
	}
	c.mu.Unlock()

	ch := c.flights.DoChan(flightKey(key, gen), func() (any, error) {
		return c.load(ctx, key, gen, fetch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Set stores v under key as freshly fetched data.
func (c *QueryCache[V]) Set(key string, v V) {
	now := c.opts.Now()
	c.mu.Lock()
	e := c.entryLocked(key, now)
	e.data = v
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = now
	e.invalidated = false
	c.mu.Unlock()

	c.writeThrough(context.Background(), key, v, now)
}

// Invalidate marks key stale so the next Warm or Fetch refetches it.
// Cached data stays readable until then.
func (c *QueryCache[V]) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	if e := c.entries[key]; e != nil {
		e.invalidated = true
		if e.flight != 0 {
			e.invalidatedInFlight = true
		}
	}
	c.mu.Unlock()

	if c.opts.Store != nil {
		if err := c.opts.Store.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Store delete failed")
		}
	}
}

// Collect drops entries that have not been used for GCTime and are not
// loading. It returns the number of entries removed.
func (c *QueryCache[V]) Collect() int {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.flight == 0 && now.Sub(e.lastAccess) >= c.opts.GCTime {
			delete(c.entries, key)
			removed++
		}
	}
	Entries.WithLabelValues(c.opts.Name).Set(float64(len(c.entries)))
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Int("remaining", len(c.entries)).Msg("Collected unused entries")
	}
	return removed
}

// Len returns the number of resident entries.
func (c *QueryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// load runs inside flight gen of key. A caller may join a generation
// after it finished; it then gets that flight's outcome without a new fetch.
// The backing store is consulted before the origin.
func (c *QueryCache[V]) load(ctx context.Context, key string, gen uint64, fetch FetchFunc[V]) (V, error) {
	var zero V
	c.mu.Lock()
	e := c.entries[key]
	if e == nil || e.flight != gen {
		defer c.mu.Unlock()
		switch {
		case e == nil:
			return zero, errFlightGone
		case e.err != nil:
			return zero, e.err
		case e.hasData:
			return e.data, nil
		}
		return zero, errFlightGone
	}
	staleTime := e.flightStale
	now := c.opts.Now()
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
	defer cancel()

	if v, fetchedAt, ok := c.readThrough(fetchCtx, key, staleTime, now); ok {
		c.complete(key, gen, v, nil, fetchedAt)
		return v, nil
	}

	CacheMisses.WithLabelValues(c.opts.Name).Inc()
	start := time.Now()
	v, err := fetch(fetchCtx)
	if err != nil {
		Fetches.WithLabelValues(c.opts.Name, "error").Inc()
		c.logger.Warn().Err(err).Str("key", key).Dur("duration", time.Since(start)).Msg("Fetch failed")
		c.complete(key, gen, v, err, time.Time{})
		return zero, err
	}

	Fetches.WithLabelValues(c.opts.Name, "success").Inc()
	fetchedAt := c.opts.Now()
	c.logger.Debug().Str("key", key).Dur("duration", time.Since(start)).Msg("Fetch complete")
	c.complete(key, gen, v, nil, fetchedAt)
	c.writeThrough(fetchCtx, key, v, fetchedAt)
	return v, nil
}

// complete publishes the outcome of flight gen and ends it in the same
// critical section. Failed fetches keep earlier data.
func (c *QueryCache[V]) complete(key string, gen uint64, v V, err error, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key, c.opts.Now())
	if e.flight == gen {
		e.flight = 0
	}
	invalidated := e.invalidatedInFlight
	e.invalidatedInFlight = false

	if err != nil {
		e.status = StatusError
		e.err = err
		return
	}
	e.data = v
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = fetchedAt
	e.invalidated = invalidated
}

// startLocked begins a new flight generation for key.
func (c *QueryCache[V]) startLocked(key string, now time.Time, staleTime time.Duration) uint64 {
	e := c.entryLocked(key, now)
	c.flightSeq++
	e.flight = c.flightSeq
	e.flightStale = staleTime
	e.status = StatusPending
	e.lastAccess = now
	return e.flight
}

func flightKey(key string, gen uint64) string {
	return key + "#" + strconv.FormatUint(gen, 10)
}

func (c *QueryCache[V]) entryLocked(key string, now time.Time) *entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{lastAccess: now}
		c.entries[key] = e
		Entries.WithLabelValues(c.opts.Name).Set(float64(len(c.entries)))
	}
	return e
}

// readThrough returns a store record younger than staleTime, if any.
// Store errors are logged and treated as misses.
func (c *QueryCache[V]) readThrough(ctx context.Context, key string, staleTime time.Duration, now time.Time) (V, time.Time, bool) {
	var zero V
	if c.opts.Store == nil {
		return zero, time.Time{}, false
	}

	rec, err := c.opts.Store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Store get failed")
		}
		return zero, time.Time{}, false
	}
	if now.Sub(rec.FetchedAt) >= staleTime {
		return zero, time.Time{}, false
	}

	var v V
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Store record decode failed")
		return zero, time.Time{}, false
	}

	CacheHits.WithLabelValues(c.opts.Name, "redis").Inc()
	return v, rec.FetchedAt, true
}

// touch extends the store expiry of a record served from memory, when the
// store supports it.
func (c *QueryCache[V]) touch(ctx context.Context, key string, now time.Time) {
	t, ok := c.opts.Store.(Toucher)
	if !ok {
		return
	}
	if err := t.Touch(ctx, key, now.Add(c.opts.GCTime)); err != nil && !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Store touch failed")
	}
}

// writeThrough stores v in the backing store for other instances.
func (c *QueryCache[V]) writeThrough(ctx context.Context, key string, v V, fetchedAt time.Time) {
	if c.opts.Store == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		CacheErrors.WithLabelValues("encode").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Store record encode failed")
		return
	}

	rec := &Record{Data: data, FetchedAt: fetchedAt, Expires: fetchedAt.Add(c.opts.GCTime)}
	if err := c.opts.Store.Set(ctx, key, rec); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Int("bytes", len(data)).Msg("Store set failed")
	}
}
