package ingest

import (
	"context"
	"sync"
	"time"
)

// Pacer is the client-side request throttle shared by every fetch worker: a
// single counter across all callers, with every everyN-th request paying a
// long pause and all others a short one. It is a coarse approximation of the
// broker's published rate limit, not a precise token bucket.
type Pacer struct {
	mu      sync.Mutex
	count   uint64
	everyN  uint64
	long    time.Duration
	short   time.Duration
	sleepFn func(ctx context.Context, d time.Duration) error
}

func NewPacer() *Pacer {
	return &Pacer{
		everyN:  10,
		long:    time.Second,
		short:   100 * time.Millisecond,
		sleepFn: sleepWithContext,
	}
}

// Wait counts this request and pays the corresponding pause. The lock is held
// through the sleep so the counter update and the pause form one atomic step
// across concurrent workers: requests leave the process serialized.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	d := p.short
	if p.count%p.everyN == 0 {
		d = p.long
	}
	return p.sleepFn(ctx, d)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
