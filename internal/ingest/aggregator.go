package ingest

import (
	"time"

	"rhetenor/internal/market"
)

// aggregator merges RawBars from concurrent fetch workers into per-minute
// TimeBuckets. Workers send over a channel and a single consumer goroutine
// owns the bucket map exclusively, so no locking around the composite maps is
// needed and merge order across instruments stays irrelevant: each write is a
// per-(instrument, field) overwrite.
type aggregator struct {
	ch      chan market.RawBar
	done    chan struct{}
	buckets map[int64]*market.TimeBucket
}

func newAggregator(buffer int) *aggregator {
	if buffer <= 0 {
		buffer = 1024
	}
	a := &aggregator{
		ch:      make(chan market.RawBar, buffer),
		done:    make(chan struct{}),
		buckets: make(map[int64]*market.TimeBucket),
	}
	go a.run()
	return a
}

func (a *aggregator) run() {
	defer close(a.done)
	for bar := range a.ch {
		minute := bar.Time.Truncate(time.Minute)
		key := minute.Unix()
		bucket, ok := a.buckets[key]
		if !ok {
			bucket = market.NewTimeBucket(minute)
			a.buckets[key] = bucket
		}
		bucket.Merge(bar)
	}
}

// Add merges one bar. Safe for concurrent use.
func (a *aggregator) Add(bar market.RawBar) {
	a.ch <- bar
}

// Close stops intake and returns the merged buckets. Call only after every
// producer has finished.
func (a *aggregator) Close() []*market.TimeBucket {
	close(a.ch)
	<-a.done
	out := make([]*market.TimeBucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, b)
	}
	return out
}
