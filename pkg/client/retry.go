package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clothify_api_retries_total",
		Help: "Total number of catalog API retry attempts by error class",
	}, []string{"error_class"})

	apiRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clothify_api_retry_backoff_seconds",
		Help:    "Backoff duration before catalog API retries by error class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"error_class"})

	apiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clothify_api_retry_exhausted_total",
		Help: "Total number of times catalog API retries were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (rc RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = def.MaxAttempts
	}
	if rc.InitialBackoff <= 0 {
		rc.InitialBackoff = def.InitialBackoff
	}
	if rc.MaxBackoff < rc.InitialBackoff {
		rc.MaxBackoff = max(def.MaxBackoff, rc.InitialBackoff)
	}
	if rc.BackoffMultiplier < 1 {
		rc.BackoffMultiplier = def.BackoffMultiplier
	}
	return rc
}

// backOff builds the policy for one request: exponential with ±20% jitter,
// capped at MaxAttempts and stopped by ctx.
func (rc RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialBackoff
	b.MaxInterval = rc.MaxBackoff
	b.Multiplier = rc.BackoffMultiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(rc.MaxAttempts-1)), ctx)
}

// retry runs op until it succeeds, fails permanently or runs out of
// attempts. Client errors are never retried. Exhausted retries wrap both
// ErrRetryExhausted and the last error.
func (c *Client) retry(ctx context.Context, endpoint string, op func() error) error {
	attempts := 0
	permanent := false

	err := backoff.RetryNotify(func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = true
			return err
		}
		if !shouldRetry(classOf(err)) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}, c.config.Retry.backOff(ctx), func(err error, wait time.Duration) {
		class := string(classOf(err))
		apiRetriesTotal.WithLabelValues(class).Inc()
		apiRetryBackoffSeconds.WithLabelValues(class).Observe(wait.Seconds())

		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Str("error_class", class).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	})

	if err == nil {
		if attempts > 1 {
			c.logger.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempts).
				Msg("Request succeeded after retry")
		}
		return nil
	}

	if permanent {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	class := string(classOf(err))
	apiRetryExhaustedTotal.WithLabelValues(class).Inc()
	c.logger.Error().
		Err(err).
		Str("endpoint", endpoint).
		Str("error_class", class).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
}
