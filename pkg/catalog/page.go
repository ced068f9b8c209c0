// Package catalog wires filter state, speculative prefetch and the query
// cache into one catalog page view: hovering a filter option warms the
// results for the filter set a click would produce, and the click then
// reads those results from the cache.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dummy26/clothify/pkg/cache"
	"github.com/dummy26/clothify/pkg/filter"
	"github.com/dummy26/clothify/pkg/logging"
	"github.com/dummy26/clothify/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	hoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clothify_prefetch_hovers_total",
		Help: "Total hover prefetch requests by outcome",
	}, []string{"outcome"}) // "started", "cached", "gated"

	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clothify_prefetch_commits_total",
		Help: "Total committed reads by whether a warm entry was ready",
	}, []string{"warm"}) // "hit", "pending", "miss"
)

// DefaultStaleTime is how long clothes and filter options stay fresh.
const DefaultStaleTime = time.Minute

// Gate decides whether speculative prefetches may run.
type Gate interface {
	AllowSpeculative(ctx context.Context) bool
}

// Options configures a Page.
type Options struct {
	// StaleTime is the freshness window for warmed and read results
	// (default: 1 minute)
	StaleTime time.Duration

	// InitialPages is how many pages a query loads up front (default: 1)
	InitialPages int

	// Batch configures parallel page loading
	Batch pagination.Config

	// Gate suppresses hover prefetches when it disallows them (optional)
	Gate Gate

	// Source provides filter option lists (optional)
	Source OptionSource

	// OptionCache caches filter option lists (default: a new in-memory cache)
	OptionCache *cache.QueryCache[[]string]
}

// Page is the state of one catalog page view. It is safe for concurrent use.
type Page struct {
	state   *filter.State
	watcher *filter.GenderWatcher
	batch   *pagination.BatchFetcher
	results *cache.QueryCache[pagination.Result]
	opts    Options
	logger  zerolog.Logger
}

// New creates a page that loads results through fetcher and caches them in
// results.
func New(fetcher pagination.Fetcher, results *cache.QueryCache[pagination.Result], opts Options) *Page {
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.InitialPages < 1 {
		opts.InitialPages = 1
	}
	if opts.Batch.MaxConcurrency <= 0 || opts.Batch.Timeout <= 0 {
		opts.Batch = pagination.DefaultConfig()
	}
	if opts.OptionCache == nil {
		opts.OptionCache = cache.New[[]string](cache.Options{Name: "filter-options"})
	}

	state := filter.NewState()
	return &Page{
		state:   state,
		watcher: filter.WatchState(state),
		batch:   pagination.NewBatchFetcher(fetcher, opts.Batch),
		results: results,
		opts:    opts,
		logger:  logging.NewLogger(logging.ComponentCatalogPage),
	}
}

// State returns the committed filter state.
func (p *Page) State() *filter.State {
	return p.state
}

// Navigate applies the gender segment from the page URL. It returns true
// if the gender changed, in which case every filter was cleared.
func (p *Page) Navigate(q url.Values) bool {
	gender := filter.ParseGender(q)
	changed := p.watcher.Observe(gender)
	if changed {
		p.logger.Debug().Str("gender", gender).Msg("Gender changed, filters cleared")
	}
	return changed
}

// Hover warms the results of the filter set that accepting in would
// produce. Committed state is not touched. It returns the candidate key and
// whether a fetch was started.
func (p *Page) Hover(ctx context.Context, in filter.HoverInput) (filter.Key, bool) {
	candidate := filter.ComputeCandidate(p.state.Snapshot(), in)
	key := candidate.Key()

	if p.opts.Gate != nil && !p.opts.Gate.AllowSpeculative(ctx) {
		hoversTotal.WithLabelValues("gated").Inc()
		p.logger.Warn().Str("key", key.String()).Msg("Prefetch gated")
		return key, false
	}

	started := p.results.Warm(ctx, key.String(), p.loader(candidate), p.warmOptions())
	if started {
		hoversTotal.WithLabelValues("started").Inc()
	} else {
		hoversTotal.WithLabelValues("cached").Inc()
	}
	return key, started
}

// Toggle commits a toggle of value in dimension d.
func (p *Page) Toggle(d filter.Dimension, value string) {
	p.state.Toggle(d, value)
}

// SetPriceRange commits a price range, or clears it with filter.NoPrice.
func (p *Page) SetPriceRange(r filter.PriceRange) {
	p.state.SetPriceRange(r)
}

// ClearAll commits an empty filter set.
func (p *Page) ClearAll() {
	p.state.ClearAll()
}

// Apply commits set wholesale, e.g. when a page is opened from a shared
// URL. The set replaces the committed one, gender included, in a single
// mutation, so subscribers and concurrent hovers never see a partial set.
func (p *Page) Apply(set filter.Set) {
	p.watcher.Record(set.Gender)
	p.state.Replace(set)
}

// Key returns the cache key of the committed filter set.
func (p *Page) Key() filter.Key {
	return p.state.Snapshot().Key()
}

// Results returns the results of the committed filter set, served from a
// warm entry when one is fresh.
func (p *Page) Results(ctx context.Context) (pagination.Result, error) {
	set := p.state.Snapshot()
	key := set.Key().String()

	entry, ok := p.results.Read(key)
	switch {
	case ok && !entry.IsStale(p.opts.StaleTime, time.Now()):
		commitsTotal.WithLabelValues("hit").Inc()
	case ok && entry.IsLoading():
		commitsTotal.WithLabelValues("pending").Inc()
	default:
		commitsTotal.WithLabelValues("miss").Inc()
	}

	r, err := p.results.Fetch(ctx, key, p.loader(set), p.warmOptions())
	if err != nil {
		return pagination.Result{}, fmt.Errorf("load %s: %w", key, err)
	}
	return r, nil
}

// Cached returns the cache entry of the committed filter set without
// blocking. The entry may be stale, loading or failed.
func (p *Page) Cached() (cache.Entry[pagination.Result], bool) {
	return p.results.Read(p.Key().String())
}

// LoadMore fetches the next page of the committed results and appends it
// to the cached entry. Results without a next page are returned unchanged.
func (p *Page) LoadMore(ctx context.Context) (pagination.Result, error) {
	set := p.state.Snapshot()
	key := set.Key().String()

	r, err := p.Results(ctx)
	if err != nil {
		return pagination.Result{}, err
	}
	if !r.HasNext() {
		return r, nil
	}

	next, err := p.batch.FetchNext(ctx, set, r)
	if err != nil {
		return r, fmt.Errorf("load more %s: %w", key, err)
	}
	p.results.Set(key, next)

	p.logger.Debug().
		Str("key", key).
		Int("pages", len(next.Pages)).
		Bool("has_next", next.HasNext()).
		Msg("Loaded next page")
	return next, nil
}

// Invalidate marks the committed results stale.
func (p *Page) Invalidate(ctx context.Context) {
	p.results.Invalidate(ctx, p.Key().String())
}

func (p *Page) loader(set filter.Set) cache.FetchFunc[pagination.Result] {
	return func(ctx context.Context) (pagination.Result, error) {
		return p.batch.FetchFirst(ctx, set, p.opts.InitialPages)
	}
}

func (p *Page) warmOptions() cache.WarmOptions {
	return cache.WarmOptions{StaleTime: p.opts.StaleTime}
}
