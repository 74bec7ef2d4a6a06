package ingest

import (
	"context"
	"time"

	"rhetenor/internal/objstore"
)

// Lister is the slice of the object store the watermark needs.
type Lister interface {
	List(ctx context.Context, rng *objstore.TimeRange) ([]string, error)
}

// ResolveWatermark scans the full listing and returns the maximum timestamp
// parsed from stored object keys, or ok=false when nothing stored parses.
// Keys that don't follow the naming convention are skipped, never fatal, so
// future key formats can coexist under the same prefix. The whole listing is
// scanned rather than trusting lexical order: object-store ordering is only a
// weak proxy for time.
func ResolveWatermark(ctx context.Context, l Lister, loc *time.Location) (time.Time, bool, error) {
	keys, err := l.List(ctx, nil)
	if err != nil {
		return time.Time{}, false, err
	}
	var max time.Time
	found := false
	for _, key := range keys {
		ts, ok := objstore.ParseKeyTime(key, loc)
		if !ok {
			continue
		}
		if !found || ts.After(max) {
			max = ts
			found = true
		}
	}
	return max, found, nil
}
