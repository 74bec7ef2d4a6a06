package objstore

import (
	"path"
	"strings"
	"time"
)

// ObjectSuffix is the fixed extension of every stored object.
const ObjectSuffix = ".jsonl.zstd"

const keyTimeLayout = "20060102_150405"

// dayBatchTimeLiteral is the fixed trailing time of day-batch objects. It does
// not reflect the batch's actual last bucket; the per-minute key form is the
// authoritative convention.
const dayBatchTimeLiteral = "235959"

// MinuteKey builds the object key for a single minute bucket.
func MinuteKey(prefix string, ts time.Time) string {
	return prefix + "/" + ts.Format(keyTimeLayout) + ObjectSuffix
}

// DayKey builds the object key for a whole-day batch.
func DayKey(prefix string, day time.Time) string {
	return prefix + "/" + day.Format("20060102") + "_" + dayBatchTimeLiteral + ObjectSuffix
}

// ParseKeyTime extracts the timestamp embedded in a key's basename. The first
// two underscore-delimited tokens must read YYYYMMDD and HHMMSS (the second
// token may carry the extension). Returns false for keys that don't follow the
// convention; callers decide whether that means skip or pass-through.
func ParseKeyTime(key string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	name := path.Base(strings.TrimSpace(key))
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	datePart := parts[0]
	timePart := parts[1]
	if dot := strings.IndexByte(timePart, '.'); dot >= 0 {
		timePart = timePart[:dot]
	}
	ts, err := time.ParseInLocation(keyTimeLayout, datePart+"_"+timePart, loc)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
