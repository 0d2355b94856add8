// Package resilience retries upstream calls that fail transiently.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy describes how a failing call is retried. Zero fields fall back to
// DefaultPolicy.
type Policy struct {
	// MaxAttempts counts the first call.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// JitterFraction spreads each delay by up to ±fraction.
	JitterFraction float64

	// Retryable replaces IsTransient when set.
	Retryable func(err error) bool

	// OnRetry runs before each sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is tuned for the open-data and geocoder endpoints, which
// throttle hard and recover within a minute.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     time.Minute,
		Multiplier:     2,
		JitterFraction: 0.25,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	p.JitterFraction = max(p.JitterFraction, 0)
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// delay is the sleep before retry number attempt+1. A Retry-After hint from
// the server wins when it is longer, up to MaxBackoff.
func (p Policy) delay(attempt int, err error) time.Duration {
	d := min(float64(p.InitialBackoff)*math.Pow(p.Multiplier, float64(attempt)), float64(p.MaxBackoff))
	if p.JitterFraction > 0 {
		d += (rand.Float64()*2 - 1) * d * p.JitterFraction
	}
	out := time.Duration(max(d, 0))

	var te *TransientError
	if errors.As(err, &te) && te.RetryAfter > out {
		out = min(te.RetryAfter, p.MaxBackoff)
	}
	return out
}

// Run calls fn until it succeeds, fails permanently or runs out of attempts.
// Cancelling ctx stops the loop and returns the last error.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Run for functions that produce a value.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt+1 >= p.MaxAttempts {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// LogRetries returns an OnRetry hook that logs a warning per retry.
func LogRetries(service, operation string) func(int, error) {
	log := zap.L().With(zap.String("service", service), zap.String("operation", operation))
	return func(attempt int, err error) {
		log.Warn("retrying upstream call", zap.Int("attempt", attempt), zap.Error(err))
	}
}
