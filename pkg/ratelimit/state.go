// Package ratelimit tracks the catalog API request budget and gates
// speculative prefetches. It reads the X-RateLimit-Remaining and
// X-RateLimit-Reset response headers so that hover warms stop before they
// eat the budget needed for committed reads.
package ratelimit

import (
	"time"
)

// Response headers reporting the request budget.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// RedisKeyState holds the JSON-encoded State shared by all proxy instances.
const RedisKeyState = "clothify:rate_limit:state"

// Thresholds for gating decisions.
const (
	// ThresholdCritical marks a nearly exhausted budget. Committed reads
	// still go out, but the state is logged at error level.
	ThresholdCritical = 5

	// ThresholdWarning suppresses speculative warms when remaining requests
	// fall below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 50
)

// DefaultRemaining is assumed until the API reports a budget.
const DefaultRemaining = 100

// State is the last reported request budget.
type State struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	// Calculated from the X-RateLimit-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last reported.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

func defaultState(now time.Time) *State {
	return &State{
		Remaining:  DefaultRemaining,
		ResetAt:    now,
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsCritical returns true if the budget is below ThresholdCritical and the
// window has not reset yet.
func (s *State) IsCritical() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// IsLow returns true if speculative requests should be held back: the
// budget is below ThresholdWarning and the window has not reset yet.
func (s *State) IsLow() bool {
	return s.Remaining < ThresholdWarning && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
