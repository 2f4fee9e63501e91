package crawl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out item fetches on the shared browser session. A single
// token bucket with no bursting keeps the request pattern close to a human
// paging through their history.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer enforcing at least minInterval between waits.
func NewPacer(minInterval time.Duration) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Wait blocks until the next fetch is allowed. Returns an error if the
// context is canceled before the wait completes.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
