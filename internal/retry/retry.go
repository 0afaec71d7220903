// Package retry runs an operation under a capped exponential backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how an operation is retried. The wait before retry n
// (1-based) is Base * 2^n, so a Base of one second yields 2s, 4s, 8s, ...
type Policy struct {
	// Retries is the number of retries after the first attempt.
	Retries int
	Base    time.Duration
	// Retryable reports whether err is transient. Nil treats every error as transient.
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Exponential returns a policy with the given retry count and base unit.
func Exponential(retries int, base time.Duration) Policy {
	return Policy{Retries: retries, Base: base}
}

// TotalWait is the sum of all waits when every retry is used.
func (p Policy) TotalWait() time.Duration {
	var total time.Duration
	for n := 1; n <= p.Retries; n++ {
		total += p.Base * time.Duration(uint64(1)<<n)
	}
	return total
}

type powerOfTwo struct {
	base    time.Duration
	attempt uint
}

func (p *powerOfTwo) NextBackOff() time.Duration {
	p.attempt++
	return p.base * time.Duration(uint64(1)<<p.attempt)
}

func (p *powerOfTwo) Reset() { p.attempt = 0 }

// Do calls op until it succeeds, returns a non-retryable error, the policy is
// exhausted or ctx is done. It returns the last error seen, or ctx.Err() when
// the context ended the loop.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(&powerOfTwo{base: p.Base}, uint64(retries)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
	}
	return backoff.RetryNotify(operation, b, notify)
}
