package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries is the default number of retries before giving up.
	DefaultMaxRetries = 5
	// DefaultInitialInterval is the default first retry delay.
	DefaultInitialInterval = 1 * time.Second
	// DefaultMaxInterval is the default cap on a single retry delay.
	DefaultMaxInterval = 30 * time.Second
)

// RetryPolicy retries an operation with exponential backoff. Sessions
// never retry on their own; wrap a call in a policy when retrying is
// wanted:
//
//	var text string
//	err := llm.RetryPolicy{}.Do(ctx, func() error {
//		var err error
//		text, err = session.Generate(ctx, prompt)
//		return err
//	})
//
// The zero value is a usable policy with the default settings.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
	Multiplier      float64

	// ShouldRetry decides whether a failure is worth retrying. When
	// nil, only errors marked retryable are retried: rate limits and
	// server-side status failures. Transport errors pass through the
	// session unwrapped, so callers wanting to retry those supply
	// their own predicate.
	ShouldRetry func(error) bool
}

// Do runs op, retrying retryable failures until the policy gives up or
// ctx is done. The last failure is returned.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryableError
	}

	b := p.newBackOff()
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}

		next := b.NextBackOff()
		if next == backoff.Stop {
			return err
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// newBackOff builds the backoff schedule for one Do invocation.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = DefaultInitialInterval
	eb.MaxInterval = DefaultMaxInterval
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.MaxElapsedTime > 0 {
		eb.MaxElapsedTime = p.MaxElapsedTime
	}
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.Reset()

	retries := p.MaxRetries
	if retries == 0 {
		retries = DefaultMaxRetries
	}
	return backoff.WithMaxRetries(eb, retries)
}
