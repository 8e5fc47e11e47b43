// Package retry runs an operation through an explicit delay schedule.
//
// Two policies exist on purpose: Interactive is bounded to well under a second
// of waiting and is used on query paths; Ingestion walks the long background
// schedule and must never sit behind an HTTP request.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/httpx"
)

type Policy struct {
	Name string
	// Delays[i] is the wait before retry i+1. When MaxRetries exceeds
	// len(Delays) the last delay repeats.
	Delays     []time.Duration
	MaxRetries int
	Jitter     bool
	// Retryable decides whether an error is worth another attempt.
	// Defaults to DefaultRetryable.
	Retryable func(error) bool
	// OnRetry is called before each sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

var (
	Interactive = Policy{
		Name:       "interactive",
		Delays:     []time.Duration{200 * time.Millisecond, 800 * time.Millisecond},
		MaxRetries: 2,
		Jitter:     true,
	}
	Ingestion = Policy{
		Name: "ingestion",
		Delays: []time.Duration{
			time.Second,
			time.Minute,
			10 * time.Minute,
			30 * time.Minute,
			6 * time.Hour,
			12 * time.Hour,
			24 * time.Hour,
		},
		MaxRetries: 7,
	}
)

// DefaultRetryable retries anything that is not a caller mistake, an
// invariant violation, or a cancelled context.
func DefaultRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !domain.IsPermanent(err)
}

// Delay returns the wait before retry number attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if len(p.Delays) == 0 || attempt <= 0 {
		return 0
	}
	i := attempt - 1
	if i >= len(p.Delays) {
		i = len(p.Delays) - 1
	}
	d := p.Delays[i]
	if p.Jitter {
		d = httpx.JitterSleep(d)
	}
	return d
}

func (p Policy) WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Policy {
	p.OnRetry = fn
	return p
}

// Do runs op until it succeeds, returns a non-retryable error, the policy is
// exhausted, or ctx ends. The last operation error is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
		delay := p.Delay(attempt + 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if sleepErr := httpx.Sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
