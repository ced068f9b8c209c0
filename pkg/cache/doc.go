// Package cache provides the catalog query cache: a keyed, generic,
// in-memory cache with staleness tracking, in-flight de-duplication and an
// optional Redis backing store.
//
// The query cache implements the prefetch contract of the catalog page:
//
// - Warm starts a background fetch unless data is fresh or a fetch is in flight
// - At most one fetch per key runs at a time (singleflight)
// - Read returns stale-but-present, loading or failed entries without blocking
// - Fetch is a blocking read-through that joins any in-flight warm
// - Failed fetches keep the last good data
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	qc := cache.New[pagination.Result](cache.Options{Name: "clothes"})
//
//	// On hover: warm the candidate key
//	key := filter.CandidateKey(state.Snapshot(), filter.HoverInput{Color: "red"})
//	qc.Warm(ctx, key.String(), fetchFirstPage, cache.WarmOptions{StaleTime: time.Minute})
//
//	// On click: commit, then read the committed key
//	state.Toggle(filter.Colors, "red")
//	result, err := qc.Fetch(ctx, state.Snapshot().Key().String(), fetchFirstPage, opts)
//
// # Backing Store
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	qc := cache.New[pagination.Result](cache.Options{
//		Name:  "clothes",
//		Store: cache.NewRedisStore(redisClient, "clothify:"),
//	})
//
// Fresh store records satisfy a warm without an origin fetch; fetched values
// are written through. Store errors are logged and counted, never returned.
//
// # Metrics
//
//   - clothify_cache_hits_total{cache,layer} - Fresh reads by layer (memory, redis)
//   - clothify_cache_misses_total{cache} - Lookups that needed an origin fetch
//   - clothify_cache_warms_total{cache,outcome} - Warm calls (fresh, inflight, started)
//   - clothify_cache_fetches_total{cache,result} - Origin fetches (success, error)
//   - clothify_cache_entries{cache} - Resident entries
//   - clothify_cache_errors_total{operation} - Store operation errors
package cache
