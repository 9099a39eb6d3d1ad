// Package retry provides the small bounded-retry primitive behind
// favicon polling.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a fixed-delay, fixed-attempt retry schedule.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the fixed wait between consecutive attempts.
	Delay time.Duration
}

// Do runs fn until it succeeds, all attempts are used, or ctx is
// cancelled. The last error is returned when all attempts fail.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.MaxAttempts-1)),
		ctx,
	)
	return backoff.Retry(fn, b)
}
