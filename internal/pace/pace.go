// Package pace enforces bounded random delays between scroll actions.
// Delays are sampled uniformly from a fixed range; a constant cadence
// reads as automation.
package pace

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer samples a delay uniformly from [min, max] on every Wait.
type Pacer struct {
	min time.Duration
	max time.Duration
}

// New creates a Pacer. Non-positive min defaults to 800ms; a max below
// min is raised to min+700ms so the range stays non-degenerate.
func New(min, max time.Duration) *Pacer {
	if min <= 0 {
		min = 800 * time.Millisecond
	}
	if max < min {
		max = min + 700*time.Millisecond
	}
	return &Pacer{min: min, max: max}
}

// Delay returns one sampled delay without sleeping.
func (p *Pacer) Delay() time.Duration {
	if p.max == p.min {
		return p.min
	}
	return p.min + time.Duration(rand.Int64N(int64(p.max-p.min)+1))
}

// Wait sleeps for one sampled delay, aborting early if the context is
// cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	t := time.NewTimer(p.Delay())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
