package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"rhetenor/internal/logger"
	"rhetenor/internal/market"
	"rhetenor/internal/objstore"
)

// Manifest remembers what has been uploaded, keyed by object key and payload
// digest, so re-runs over overlapping ranges skip byte-identical uploads.
// Optional: a nil manifest just uploads everything.
type Manifest interface {
	SeenObject(ctx context.Context, key, digest string) (bool, error)
	RecordObject(ctx context.Context, runID, key, digest string, size int, buckets int) error
}

// KeyFailure records one object whose upload was abandoned. The key stays a
// watermark gap and is re-attempted by the next scheduled run.
type KeyFailure struct {
	Key    string
	Reason string
}

// WriteStats summarizes one write pass.
type WriteStats struct {
	Written   []string
	Identical []string
	Failures  []KeyFailure
}

// Writer serializes finalized buckets to newline-delimited JSON, compresses
// them and uploads one object per minute, or one per day in the batch
// variant. A single key's failure never aborts the remaining writes.
type Writer struct {
	gw       objstore.Gateway
	prefix   string
	dayBatch bool
	manifest Manifest
	runID    string
}

func NewWriter(gw objstore.Gateway, prefix string, dayBatch bool, manifest Manifest, runID string) *Writer {
	return &Writer{
		gw:       gw,
		prefix:   prefix,
		dayBatch: dayBatch,
		manifest: manifest,
		runID:    runID,
	}
}

// Write uploads the given buckets, which must already be final (completeness
// filtered) and sorted by time.
func (w *Writer) Write(ctx context.Context, buckets []*market.TimeBucket) WriteStats {
	if w.dayBatch {
		return w.writeDayBatches(ctx, buckets)
	}
	return w.writeMinutes(ctx, buckets)
}

func (w *Writer) writeMinutes(ctx context.Context, buckets []*market.TimeBucket) WriteStats {
	var stats WriteStats
	for _, bucket := range buckets {
		key := objstore.MinuteKey(w.prefix, bucket.Time)
		line, err := bucket.MarshalLine()
		if err != nil {
			stats.Failures = append(stats.Failures, KeyFailure{Key: key, Reason: err.Error()})
			logger.Errorf("writer: serializing %s: %v", key, err)
			continue
		}
		w.upload(ctx, key, [][]byte{line}, 1, &stats)
	}
	return stats
}

func (w *Writer) writeDayBatches(ctx context.Context, buckets []*market.TimeBucket) WriteStats {
	var stats WriteStats
	type batch struct {
		day   time.Time
		lines [][]byte
	}
	var order []string
	groups := make(map[string]*batch)
	for _, bucket := range buckets {
		day := bucket.Time.Format("20060102")
		grp, ok := groups[day]
		if !ok {
			grp = &batch{day: bucket.Time}
			groups[day] = grp
			order = append(order, day)
		}
		line, err := bucket.MarshalLine()
		if err != nil {
			logger.Errorf("writer: serializing bucket %s: %v", bucket.Time.Format(market.TimestampLayout), err)
			continue
		}
		grp.lines = append(grp.lines, line)
	}
	for _, day := range order {
		grp := groups[day]
		if len(grp.lines) == 0 {
			continue
		}
		// Day-batch keys end in a fixed 235959 literal regardless of the
		// batch's actual last bucket; kept for compatibility with objects
		// written by the research tooling.
		key := objstore.DayKey(w.prefix, grp.day)
		w.upload(ctx, key, grp.lines, len(grp.lines), &stats)
	}
	return stats
}

func (w *Writer) upload(ctx context.Context, key string, lines [][]byte, bucketCount int, stats *WriteStats) {
	payload, err := objstore.CompressLines(lines)
	if err != nil {
		stats.Failures = append(stats.Failures, KeyFailure{Key: key, Reason: err.Error()})
		logger.Errorf("writer: compressing %s: %v", key, err)
		return
	}
	digest := sha256Hex(payload)
	if w.manifest != nil {
		seen, err := w.manifest.SeenObject(ctx, key, digest)
		if err != nil {
			logger.Warnf("writer: manifest lookup for %s: %v", key, err)
		} else if seen {
			stats.Identical = append(stats.Identical, key)
			logger.Debugf("writer: %s unchanged, skipping upload", key)
			return
		}
	}
	if err := w.gw.Put(ctx, key, payload); err != nil {
		stats.Failures = append(stats.Failures, KeyFailure{Key: key, Reason: err.Error()})
		logger.Errorf("writer: upload %s abandoned: %v", key, err)
		return
	}
	stats.Written = append(stats.Written, key)
	logger.Infof("writer: uploaded %s (%d buckets, %d bytes)", key, bucketCount, len(payload))
	if w.manifest != nil {
		if err := w.manifest.RecordObject(ctx, w.runID, key, digest, len(payload), bucketCount); err != nil {
			logger.Warnf("writer: manifest record for %s: %v", key, err)
		}
	}
}

func sha256Hex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
