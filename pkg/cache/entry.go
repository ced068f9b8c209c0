package cache

import (
	"time"
)

// Status is the fetch state of a cache entry.
type Status string

const (
	// StatusPending means a fetch for the key is in flight.
	StatusPending Status = "pending"

	// StatusSuccess means the last fetch succeeded.
	StatusSuccess Status = "success"

	// StatusError means the last fetch failed. Data from an earlier
	// success, if any, is still present.
	StatusError Status = "error"
)

// Entry is a point-in-time view of a cached query.
type Entry[V any] struct {
	// Key is the cache key
	Key string

	// Data is the last successfully fetched value
	Data V

	// HasData reports whether Data holds a fetched value
	HasData bool

	// Status is the state of the most recent fetch
	Status Status

	// Err is the error of the most recent failed fetch
	Err error

	// UpdatedAt is when Data was fetched
	UpdatedAt time.Time

	// Invalidated marks Data stale regardless of age
	Invalidated bool
}

// IsStale reports whether the entry's data is older than staleTime at now.
// Entries without data, and invalidated entries, are always stale.
func (e Entry[V]) IsStale(staleTime time.Duration, now time.Time) bool {
	if !e.HasData || e.Invalidated {
		return true
	}
	return now.Sub(e.UpdatedAt) >= staleTime
}

// IsLoading reports whether a fetch is in flight.
func (e Entry[V]) IsLoading() bool {
	return e.Status == StatusPending
}

// Record is the serialized form of a value in a backing Store.
type Record struct {
	// Data is the JSON-encoded value
	Data []byte `json:"data"`

	// FetchedAt is when the value was fetched from the origin
	FetchedAt time.Time `json:"fetched_at"`

	// Expires is when the store may drop the record
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the record has expired.
func (r *Record) IsExpired() bool {
	return time.Now().After(r.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (r *Record) TTL() time.Duration {
	ttl := time.Until(r.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
