package cache

import (
	"testing"
	"time"
)

func TestEntry_IsStale(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		entry     Entry[int]
		staleTime time.Duration
		want      bool
	}{
		{
			name:      "no data",
			entry:     Entry[int]{Status: StatusPending},
			staleTime: time.Hour,
			want:      true,
		},
		{
			name:      "fresh data",
			entry:     Entry[int]{HasData: true, UpdatedAt: now.Add(-10 * time.Second)},
			staleTime: time.Minute,
			want:      false,
		},
		{
			name:      "old data",
			entry:     Entry[int]{HasData: true, UpdatedAt: now.Add(-2 * time.Minute)},
			staleTime: time.Minute,
			want:      true,
		},
		{
			name:      "zero stale time",
			entry:     Entry[int]{HasData: true, UpdatedAt: now},
			staleTime: 0,
			want:      true,
		},
		{
			name:      "invalidated",
			entry:     Entry[int]{HasData: true, UpdatedAt: now, Invalidated: true},
			staleTime: time.Hour,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.IsStale(tt.staleTime, now); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired record",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid record",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Expires: tt.expires}
			if got := r.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_TTL(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "one hour remaining",
			expires: time.Now().Add(1 * time.Hour),
			wantMin: 59 * time.Minute,
			wantMax: 61 * time.Minute,
		},
		{
			name:    "already expired",
			expires: time.Now().Add(-1 * time.Hour),
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Expires: tt.expires}
			got := r.TTL()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}
