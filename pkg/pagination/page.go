package pagination

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dummy26/clothify/pkg/filter"
)

// FirstCursor is the cursor of the first page.
const FirstCursor = 1

// Fetcher is the interface the catalog API client implements for
// single-page fetching. Implementations own their retry policy.
type Fetcher interface {
	// FetchPage fetches the page at cursor for the given filter set.
	FetchPage(ctx context.Context, set filter.Set, cursor int) (Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, set filter.Set, cursor int) (Page, error)

// FetchPage implements Fetcher.
func (f FetcherFunc) FetchPage(ctx context.Context, set filter.Set, cursor int) (Page, error) {
	return f(ctx, set, cursor)
}

// Page is one page of catalog items. Items are opaque to this module.
type Page struct {
	Number     int               `json:"page"`
	Items      []json.RawMessage `json:"items"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// NextCursor returns the cursor of the following page, or 0 if this is
// the last one.
func (p Page) NextCursor() int {
	if p.Number <= 0 || p.Number >= p.TotalPages {
		return 0
	}
	return p.Number + 1
}

// Result is the accumulated pages of one infinite list, ordered by page
// number. It is the value cached per filter key.
type Result struct {
	Pages []Page `json:"pages"`
}

// Items returns every item across pages in order.
func (r Result) Items() []json.RawMessage {
	var n int
	for _, p := range r.Pages {
		n += len(p.Items)
	}
	items := make([]json.RawMessage, 0, n)
	for _, p := range r.Pages {
		items = append(items, p.Items...)
	}
	return items
}

// NextCursor returns the cursor after the last loaded page, or 0.
func (r Result) NextCursor() int {
	if len(r.Pages) == 0 {
		return FirstCursor
	}
	return r.Pages[len(r.Pages)-1].NextCursor()
}

// HasNext reports whether more pages can be loaded.
func (r Result) HasNext() bool {
	return r.NextCursor() != 0
}

// Append returns a copy of r with p added. A page whose number is already
// present replaces the existing one; pages stay ordered by number.
func (r Result) Append(p Page) Result {
	pages := make([]Page, 0, len(r.Pages)+1)
	for _, existing := range r.Pages {
		if existing.Number != p.Number {
			pages = append(pages, existing)
		}
	}
	pages = append(pages, p)
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return Result{Pages: pages}
}
