package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rhetenor/internal/logger"
	"rhetenor/internal/market"
)

// BarSource fetches all available minute bars for one instrument. Implemented
// by the hantoo client.
type BarSource interface {
	FetchMinuteBars(ctx context.Context, code, queryDate, queryTime string) ([]market.RawBar, error)
}

// InstrumentSkip records one instrument dropped from the current cycle.
type InstrumentSkip struct {
	Code   string
	Reason string
}

// Coordinator fetches bars for the whole universe in bounded-concurrency
// chunks and merges them into TimeBuckets.
type Coordinator struct {
	source     BarSource
	chunkSize  int
	workers    int
	chunkPause time.Duration
	loc        *time.Location
	now        func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithChunking(chunkSize, workers int, pause time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if chunkSize > 0 {
			c.chunkSize = chunkSize
		}
		if workers > 0 {
			c.workers = workers
		}
		if pause >= 0 {
			c.chunkPause = pause
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCoordinator(source BarSource, loc *time.Location, opts ...CoordinatorOption) *Coordinator {
	if loc == nil {
		loc = time.UTC
	}
	c := &Coordinator{
		source:     source,
		chunkSize:  50,
		workers:    5,
		chunkPause: 500 * time.Millisecond,
		loc:        loc,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fill fetches every instrument and returns the merged buckets for bars with
// after < ts <= snapshot, where snapshot is the wall clock read once at entry.
// The single snapshot gives the whole run one consistent completeness
// boundary. Per-instrument failures are collected as skips and never abort
// the fill; only context cancellation does.
func (c *Coordinator) Fill(ctx context.Context, codes []string, after time.Time) ([]*market.TimeBucket, []InstrumentSkip, error) {
	snapshot := c.now().In(c.loc)
	queryDate := snapshot.Format("20060102")
	queryTime := snapshot.Format("150405")

	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Strings(sorted)

	agg := newAggregator(4 * c.chunkSize)
	var skipMu sync.Mutex
	var skips []InstrumentSkip

	for start := 0; start < len(sorted); start += c.chunkSize {
		if err := ctx.Err(); err != nil {
			agg.Close()
			return nil, skips, err
		}
		end := start + c.chunkSize
		if end > len(sorted) {
			end = len(sorted)
		}
		chunk := sorted[start:end]

		var g errgroup.Group
		g.SetLimit(c.workers)
		for _, code := range chunk {
			code := code
			g.Go(func() error {
				bars, err := c.source.FetchMinuteBars(ctx, code, queryDate, queryTime)
				if err != nil {
					logger.Warnf("ingest: skipping %s this cycle: %v", code, err)
					skipMu.Lock()
					skips = append(skips, InstrumentSkip{Code: code, Reason: err.Error()})
					skipMu.Unlock()
					return nil
				}
				merged := 0
				for _, bar := range bars {
					if !bar.Time.After(after) || bar.Time.After(snapshot) {
						continue
					}
					agg.Add(bar)
					merged++
				}
				logger.Debugf("ingest: %s fetched=%d merged=%d", code, len(bars), merged)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(sorted) && c.chunkPause > 0 {
			if err := sleepWithContext(ctx, c.chunkPause); err != nil {
				agg.Close()
				return nil, skips, err
			}
		}
	}

	buckets := agg.Close()
	logger.Infof("ingest: fill produced %d buckets from %d instruments (%d skipped)",
		len(buckets), len(sorted), len(skips))
	return buckets, skips, nil
}

// Snapshot returns what Fill would use as its upper bound right now.
func (c *Coordinator) Snapshot() time.Time {
	return c.now().In(c.loc)
}
