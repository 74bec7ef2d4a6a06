package market

import (
	"sort"
	"time"
)

// DefaultCompletenessWindow withholds the newest bucket if it sits this close
// to the wall clock: the broker returns a live, still-forming candle for the
// current minute and persisting it would force an overwrite later.
const DefaultCompletenessWindow = 60 * time.Second

// DropForming returns the buckets eligible for write, sorted by time, plus the
// withheld bucket (nil if nothing was dropped). Only the maximum-timestamp
// bucket is ever a candidate; everything older is final by definition.
func DropForming(buckets []*TimeBucket, now time.Time, window time.Duration) (kept []*TimeBucket, dropped *TimeBucket) {
	if window <= 0 {
		window = DefaultCompletenessWindow
	}
	if len(buckets) == 0 {
		return nil, nil
	}
	sorted := make([]*TimeBucket, len(buckets))
	copy(sorted, buckets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	last := sorted[len(sorted)-1]
	if now.Sub(last.Time) < window {
		return sorted[:len(sorted)-1], last
	}
	return sorted, nil
}
