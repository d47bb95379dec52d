package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
)

// withRetry runs fn until it succeeds, fails with a non-retryable error, or
// cfg.MaxAttempts is reached. Delays grow by BackoffMultiplier up to
// MaxDelay.
func withRetry(ctx context.Context, cfg model.RetryConfig, op string, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn()
		if err != nil && !isRetryableError(err, cfg) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(newBackOff(cfg)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			log.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Dur("retry_in", delay).Msg("🔁 retrying")
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

// newBackOff is the exponential policy described by cfg, without jitter.
func newBackOff(cfg model.RetryConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = cfg.BackoffMultiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if cfg.MaxDelay > 0 {
		b.MaxInterval = cfg.MaxDelay
	}
	b.Reset()
	return b
}

// isRetryableError matches the error text against the configured fragments.
func isRetryableError(err error, cfg model.RetryConfig) bool {
	msg := strings.ToLower(err.Error())
	for _, fragment := range cfg.RetryableErrors {
		if strings.Contains(msg, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}
