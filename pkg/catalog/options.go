package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dummy26/clothify/pkg/cache"
	"golang.org/x/sync/errgroup"
)

// ErrNoOptionSource is returned by FilterOptions when no source is configured.
var ErrNoOptionSource = errors.New("catalog: no filter option source")

// OptionSource lists the values each filter dimension can take.
type OptionSource interface {
	Colors(ctx context.Context) ([]string, error)
	Sizes(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
}

// Cache keys of the filter option lists.
const (
	ColorsKey     = "colors"
	SizesKey      = "sizes"
	CategoriesKey = "categories"
)

// FilterOptions holds the selectable values of every filter dimension.
type FilterOptions struct {
	Colors     []string `json:"colors"`
	Sizes      []string `json:"sizes"`
	Categories []string `json:"categories"`
}

// FilterOptions returns the sidebar option lists, each cached under its
// own key with the page's stale time. The lists load in parallel; any
// failure fails the call.
func (p *Page) FilterOptions(ctx context.Context) (FilterOptions, error) {
	src := p.opts.Source
	if src == nil {
		return FilterOptions{}, ErrNoOptionSource
	}

	var out FilterOptions
	g, gctx := errgroup.WithContext(ctx)
	load := func(key string, dst *[]string, fetch cache.FetchFunc[[]string]) {
		g.Go(func() error {
			values, err := p.opts.OptionCache.Fetch(gctx, key, fetch, p.warmOptions())
			if err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
			*dst = values
			return nil
		})
	}

	load(ColorsKey, &out.Colors, src.Colors)
	load(SizesKey, &out.Sizes, src.Sizes)
	load(CategoriesKey, &out.Categories, src.Categories)

	if err := g.Wait(); err != nil {
		return FilterOptions{}, err
	}
	return out, nil
}
