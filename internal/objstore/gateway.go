package objstore

import (
	"context"
	"errors"
	"time"

	"rhetenor/internal/market"
)

// ErrStorage is any list/get/put failure against the object store. Callers log
// and move on; the watermark makes the next run re-attempt the gap.
var ErrStorage = errors.New("object storage error")

// TimeRange filters listed keys by the timestamp embedded in their names.
// Both bounds are inclusive.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) contains(ts time.Time) bool {
	if !r.From.IsZero() && ts.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && ts.After(r.To) {
		return false
	}
	return true
}

// Gateway is a prefix-scoped view of the bucket holding compressed JSONL
// kline objects.
type Gateway interface {
	// List returns every key under the prefix, optionally filtered by the
	// time embedded in each key's name. Keys whose names don't parse are
	// included when rng is nil and excluded otherwise.
	List(ctx context.Context, rng *TimeRange) ([]string, error)
	// Get downloads one object, decompresses it and parses its JSONL lines.
	// Malformed lines are logged and skipped.
	Get(ctx context.Context, key string) ([]market.Record, error)
	// Put uploads a compressed payload under key.
	Put(ctx context.Context, key string, payload []byte) error
}
