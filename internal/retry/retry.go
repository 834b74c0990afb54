package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxRetries is the number of additional attempts after the first one.
const DefaultMaxRetries = 3

// DefaultBase is the exponential base, in seconds.
const DefaultBase = 2.0

// ErrExhausted is wrapped into the error returned once every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy holds the backoff settings. Attempt state lives in each Do call, never in the Policy.
type Policy struct {
	MaxRetries int
	Base       float64
	Sleep      func(ctx context.Context, d time.Duration) error
	Jitter     func() float64
	Logger     logrus.FieldLogger
}

// NewPolicy returns a policy that sleeps on the wall clock with uniform [0,1) second jitter.
func NewPolicy(maxRetries int, base float64, logger logrus.FieldLogger) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base <= 0 {
		base = DefaultBase
	}
	return &Policy{
		MaxRetries: maxRetries,
		Base:       base,
		Sleep:      sleepContext,
		Jitter:     rand.Float64,
		Logger:     logger,
	}
}

// Delay returns the wait before retry number attempt (1-based): base^attempt + jitter seconds.
func (p *Policy) Delay(attempt int) time.Duration {
	jitter := 0.0
	if p.Jitter != nil {
		jitter = p.Jitter()
	}
	seconds := math.Pow(p.Base, float64(attempt)) + jitter
	return time.Duration(seconds * float64(time.Second))
}

// Do runs fn until it succeeds, fails terminally, or MaxRetries retries are used up.
func Do[T any](ctx context.Context, p *Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			p.logger().WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debugf("retrying after %s error", Classify(lastErr))
			if err := p.sleep(ctx, delay); err != nil {
				return zero, fmt.Errorf("%s: %w", op, err)
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		class := Classify(err)
		if !class.Retryable() {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		p.logger().WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"class":   class.String(),
		}).WithError(err).Warn("remote call failed")
	}

	p.logger().WithFields(logrus.Fields{
		"op":       op,
		"attempts": p.MaxRetries + 1,
	}).WithError(lastErr).Error("giving up on remote call")
	return zero, fmt.Errorf("%s: %w after %d attempts: %w", op, ErrExhausted, p.MaxRetries+1, lastErr)
}

// Value is Do for callers that must not see an error: failures yield fallback.
func Value[T any](ctx context.Context, p *Policy, op string, fn func(context.Context) (T, error), fallback T) T {
	result, err := Do(ctx, p, op, fn)
	if err != nil {
		if !errors.Is(err, ErrExhausted) {
			p.logger().WithField("op", op).WithError(err).Warn("remote call failed terminally")
		}
		return fallback
	}
	return result
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return p.Sleep(ctx, d)
}

func (p *Policy) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
