package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/pkg/logger"
)

// Policy is a bounded retry policy with fixed delays. Rate-limited responses
// get a longer pause but still consume the same attempt budget. Terminal
// errors abort immediately.
type Policy struct {
	MaxAttempts    int
	Delay          time.Duration
	RateLimitDelay time.Duration

	// IsRetryable reports whether an error is worth another attempt.
	// Nil means every error is retryable.
	IsRetryable func(error) bool

	// IsRateLimited reports whether an error is a rate-limit response.
	IsRateLimited func(error) bool
}

// Do runs op under the policy until it succeeds, exhausts attempts, or hits
// a terminal error
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    p.Delay,
		Max:    p.Delay,
		Factor: 1,
	}

	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.IsRetryable != nil && !p.IsRetryable(err) {
			logger.Warn("non-retryable error, aborting",
				zap.String("op", name),
				zap.Error(err),
			)
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := b.Duration()
		if p.IsRateLimited != nil && p.IsRateLimited(err) {
			delay = p.RateLimitDelay
			logger.Warn("rate limited, backing off",
				zap.String("op", name),
				zap.Duration("delay", delay),
			)
		} else {
			logger.Warn("attempt failed, retrying",
				zap.String("op", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxAttempts, lastErr)
}
