package crawl

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/fwojciec/akiwatch"
	"golang.org/x/time/rate"
)

// Pacer spaces out page loads. Consecutive Waits are at least Min apart,
// and each Wait adds a random jitter of up to Max-Min on top.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration

	// Rand returns a pseudo-random number in [0, n). Defaults to rand.Int64N.
	Rand func(n int64) int64
}

// NewPacer creates a Pacer for the delay range d. A zero range never waits.
func NewPacer(d akiwatch.DelayRange) *Pacer {
	limit := rate.Inf
	if d.Min > 0 {
		limit = rate.Every(d.Min)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		jitter:  max(d.Max-d.Min, 0),
		Rand:    rand.Int64N,
	}
}

// Wait blocks until the next page load is allowed.
// Returns an error if the context is canceled before the wait completes.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if p.jitter <= 0 {
		return nil
	}
	return sleep(ctx, time.Duration(p.Rand(int64(p.jitter)+1)))
}

// SleepRandom sleeps for a random duration within d.
func SleepRandom(ctx context.Context, d akiwatch.DelayRange) error {
	span := d.Max - d.Min
	wait := d.Min
	if span > 0 {
		wait += time.Duration(rand.Int64N(int64(span) + 1))
	}
	return sleep(ctx, wait)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
