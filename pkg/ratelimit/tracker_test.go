package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker() *Tracker {
	return NewTracker(nil, zerolog.New(os.Stderr).Level(zerolog.Disabled))
}

func budgetHeaders(remain, reset string) http.Header {
	h := http.Header{}
	if remain != "" {
		h.Set(HeaderRemaining, remain)
	}
	if reset != "" {
		h.Set(HeaderReset, reset)
	}
	return h
}

func TestTracker_DefaultState(t *testing.T) {
	state, err := newTestTracker().GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != DefaultRemaining || !state.IsHealthy {
		t.Errorf("default state = %+v, want healthy with %d remaining", state, DefaultRemaining)
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		remain        string
		reset         string
		wantRemaining int
		wantHealthy   bool
	}{
		{name: "healthy", remain: "100", reset: "60", wantRemaining: 100, wantHealthy: true},
		{name: "warning", remain: "15", reset: "30", wantRemaining: 15},
		{name: "critical", remain: "3", reset: "45", wantRemaining: 3},
		{name: "at healthy threshold", remain: "50", reset: "60", wantRemaining: 50, wantHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker()
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, budgetHeaders(tt.remain, tt.reset)); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.GetState(ctx)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.wantHealthy)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		remain      string
		reset       string
		shouldError bool
	}{
		{name: "missing remain header", remain: "", reset: "60", shouldError: false},
		{name: "invalid remain header", remain: "invalid", reset: "60", shouldError: true},
		{name: "invalid reset header", remain: "100", reset: "invalid", shouldError: true},
		{name: "missing reset header", remain: "100", reset: "", shouldError: true},
		{name: "both headers missing", remain: "", reset: "", shouldError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestTracker().UpdateFromHeaders(context.Background(), budgetHeaders(tt.remain, tt.reset))
			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestTracker_AllowSpeculative(t *testing.T) {
	tests := []struct {
		name   string
		remain string
		reset  string
		want   bool
	}{
		{name: "no budget reported", want: true},
		{name: "healthy", remain: "80", reset: "60", want: true},
		{name: "at warning threshold", remain: "20", reset: "60", want: true},
		{name: "below warning", remain: "19", reset: "60", want: false},
		{name: "exhausted", remain: "0", reset: "60", want: false},
		{name: "exhausted window already reset", remain: "0", reset: "0", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker()
			ctx := context.Background()
			if err := tracker.UpdateFromHeaders(ctx, budgetHeaders(tt.remain, tt.reset)); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}
			if got := tracker.AllowSpeculative(ctx); got != tt.want {
				t.Errorf("AllowSpeculative() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTracker_BudgetRecovers(t *testing.T) {
	tracker := newTestTracker()
	ctx := context.Background()

	tracker.UpdateFromHeaders(ctx, budgetHeaders("3", "60"))
	if tracker.AllowSpeculative(ctx) {
		t.Fatal("AllowSpeculative() = true with 3 remaining")
	}

	tracker.UpdateFromHeaders(ctx, budgetHeaders("90", "60"))
	if !tracker.AllowSpeculative(ctx) {
		t.Error("AllowSpeculative() = false after budget recovered")
	}
}

func TestTracker_GetStateReturnsCopy(t *testing.T) {
	tracker := newTestTracker()
	ctx := context.Background()
	tracker.UpdateFromHeaders(ctx, budgetHeaders("40", "60"))

	s, _ := tracker.GetState(ctx)
	s.Remaining = 0
	s.ResetAt = time.Now().Add(time.Hour)

	if !tracker.AllowSpeculative(ctx) {
		t.Error("mutating a returned State changed the tracker")
	}
}
