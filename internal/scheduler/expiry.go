// Package scheduler runs the background sweep that returns lapsed holds
// to available.  Correctness never depends on the sweep: the store's
// conditional guards already treat lapsed holds as available, so a
// stopped scheduler only delays the released-seats broadcast.
package scheduler

import (
	"context"
	"log"
	"time"
)

// Sweeper is the slice of the arbiter the scheduler needs.
type Sweeper interface {
	ReleaseExpired(ctx context.Context) (int, error)
}

// Expiry periodically sweeps lapsed holds through the arbiter.
type Expiry struct {
	sweeper  Sweeper
	interval time.Duration
}

// NewExpiry builds a scheduler.  A non-positive interval falls back to
// ten seconds.
func NewExpiry(sweeper Sweeper, interval time.Duration) *Expiry {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Expiry{sweeper: sweeper, interval: interval}
}

// Run ticks until the context is cancelled.  Sweep errors are logged and
// the loop keeps going; the sweep never raises to any caller.
func (e *Expiry) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	log.Printf("expiry scheduler started (interval %s)", e.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("expiry scheduler stopped")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep runs one pass.  Exposed so interactive paths and tests can force
// a sweep without waiting for the ticker.
func (e *Expiry) Sweep(ctx context.Context) {
	n, err := e.sweeper.ReleaseExpired(ctx)
	if err != nil {
		log.Printf("expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("expiry sweep released %d seat(s)", n)
	}
}
