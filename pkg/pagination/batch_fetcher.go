package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/dummy26/clothify/pkg/filter"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration for the catalog API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
	}
}

// BatchFetcher fetches several pages of one filter set in parallel
type BatchFetcher struct {
	fetcher Fetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher Fetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchFirst fetches pages 1..n of set. Page 1 is fetched first to learn the
// total page count; the remaining pages are fetched in parallel.
// Any page failure fails the whole batch, since a Result must be contiguous.
func (bf *BatchFetcher) FetchFirst(ctx context.Context, set filter.Set, n int) (Result, error) {
	start := time.Now()
	key := set.Key()

	first, err := bf.fetchPage(ctx, set, FirstCursor)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch first page: %w", err)
	}

	last := min(n, first.TotalPages)
	if last <= FirstCursor {
		log.Debug().
			Str("key", key.String()).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return Result{Pages: []Page{first}}, nil
	}

	pages := make([]Page, last)
	pages[0] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)
	for cursor := FirstCursor + 1; cursor <= last; cursor++ {
		g.Go(func() error {
			page, err := bf.fetchPage(gctx, set, cursor)
			if err != nil {
				log.Warn().
					Err(err).
					Str("key", key.String()).
					Int("page", cursor).
					Msg("Page fetch failed")
				return fmt.Errorf("page %d: %w", cursor, err)
			}
			pages[cursor-1] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	log.Info().
		Str("key", key.String()).
		Int("pages", last).
		Int("total", first.TotalPages).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return Result{Pages: pages}, nil
}

// FetchNext fetches the page after the last one in r and returns the
// extended result. It returns r unchanged when there is no next page.
func (bf *BatchFetcher) FetchNext(ctx context.Context, set filter.Set, r Result) (Result, error) {
	cursor := r.NextCursor()
	if cursor == 0 {
		return r, nil
	}

	page, err := bf.fetchPage(ctx, set, cursor)
	if err != nil {
		return r, fmt.Errorf("fetch page %d: %w", cursor, err)
	}
	return r.Append(page), nil
}

// fetchPage fetches one page with the per-page timeout and normalizes the
// page number the server reported.
func (bf *BatchFetcher) fetchPage(ctx context.Context, set filter.Set, cursor int) (Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	page, err := bf.fetcher.FetchPage(pageCtx, set, cursor)
	if err != nil {
		return Page{}, err
	}
	if page.Number == 0 {
		page.Number = cursor
	}
	return page, nil
}
