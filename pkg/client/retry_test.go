package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newRetryClient(t *testing.T, rc RetryConfig) *Client {
	t.Helper()
	cfg := DefaultConfig("http://catalog.invalid")
	cfg.Retry = rc
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 10*time.Second {
		t.Errorf("MaxBackoff = %v, want 10s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_WithDefaults(t *testing.T) {
	got := RetryConfig{InitialBackoff: 20 * time.Second}.withDefaults()

	if got.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got.MaxAttempts)
	}
	if got.MaxBackoff < got.InitialBackoff {
		t.Errorf("MaxBackoff %v below InitialBackoff %v", got.MaxBackoff, got.InitialBackoff)
	}
	if got.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", got.BackoffMultiplier)
	}
}

func TestRetry_Success(t *testing.T) {
	c := newRetryClient(t, fastRetry(3))
	calls := 0

	err := c.retry(context.Background(), "/clothes", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("retry() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	c := newRetryClient(t, fastRetry(3))
	calls := 0

	err := c.retry(context.Background(), "/clothes", func() error {
		calls++
		if calls < 3 {
			return &APIError{StatusCode: 503, Class: ErrorClassServer}
		}
		return nil
	})
	if err != nil {
		t.Errorf("retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_MaxAttemptsExhausted(t *testing.T) {
	c := newRetryClient(t, fastRetry(3))
	calls := 0

	err := c.retry(context.Background(), "/clothes", func() error {
		calls++
		return &APIError{StatusCode: 500, Class: ErrorClassServer}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("retry() error = %v, want ErrRetryExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("exhausted error should wrap the last APIError, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ClientErrorNoRetry(t *testing.T) {
	c := newRetryClient(t, fastRetry(3))
	calls := 0

	err := c.retry(context.Background(), "/clothes", func() error {
		calls++
		return &APIError{StatusCode: 404, Class: ErrorClassClient}
	})

	if errors.Is(err, ErrRetryExhausted) {
		t.Error("client errors should not report exhausted retries")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassClient {
		t.Errorf("retry() error = %v, want client APIError", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_PermanentError(t *testing.T) {
	c := newRetryClient(t, fastRetry(3))
	decodeErr := errors.New("bad json")
	calls := 0

	err := c.retry(context.Background(), "/clothes", func() error {
		calls++
		return backoff.Permanent(decodeErr)
	})
	if !errors.Is(err, decodeErr) {
		t.Errorf("retry() error = %v, want %v", err, decodeErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	c := newRetryClient(t, RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.retry(ctx, "/clothes", func() error {
		return &APIError{StatusCode: 502, Class: ErrorClassServer}
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("retry() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("retry() waited %v after cancellation", elapsed)
	}
}

func TestRetry_SingleAttempt(t *testing.T) {
	c := newRetryClient(t, fastRetry(1))
	calls := 0

	err := c.retry(context.Background(), "/clothes", func() error {
		calls++
		return &APIError{StatusCode: 500, Class: ErrorClassServer}
	})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("retry() error = %v, want ErrRetryExhausted", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
