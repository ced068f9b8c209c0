// Package pagination provides page types and parallel batch fetching for the
// paginated catalog list endpoint.
//
// The catalog API returns one page per request together with the total page
// count. A Result accumulates pages for one filter set and is what the query
// cache stores under the set's key, the way an infinite list keeps its pages.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(apiClient, config)
//	result, err := fetcher.FetchFirst(ctx, set, 3)
//	more, err := fetcher.FetchNext(ctx, set, result)
//
// The batch fetcher:
//   - Fetches the first page to determine total pages
//   - Fetches the remaining requested pages with a bounded worker pool
//   - Fails the batch on any page error (results must be contiguous)
//
// Retrying failed pages is the Fetcher's concern.
package pagination
