package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the human-readable timestamp embedded in stored records.
const TimestampLayout = "2006-01-02_15:04:05"

// timestampLayoutShort tolerates records written without a seconds component.
const timestampLayoutShort = "2006-01-02_15:04"

// RawBar is one instrument's one-minute sample as returned by the broker.
type RawBar struct {
	Code   string
	Time   time.Time
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
}

// TimeBucket is the unit of storage: one wall-clock minute holding every
// instrument's OHLCV keyed by instrument code.
type TimeBucket struct {
	Time   time.Time
	Open   map[string]int64
	High   map[string]int64
	Low    map[string]int64
	Close  map[string]int64
	Volume map[string]int64
}

func NewTimeBucket(ts time.Time) *TimeBucket {
	return &TimeBucket{
		Time:   ts,
		Open:   make(map[string]int64),
		High:   make(map[string]int64),
		Low:    make(map[string]int64),
		Close:  make(map[string]int64),
		Volume: make(map[string]int64),
	}
}

// Merge sets the bar's instrument in all five fields. Last write wins when the
// same (instrument, minute) pair arrives twice.
func (b *TimeBucket) Merge(bar RawBar) {
	b.Open[bar.Code] = bar.Open
	b.High[bar.Code] = bar.High
	b.Low[bar.Code] = bar.Low
	b.Close[bar.Code] = bar.Close
	b.Volume[bar.Code] = bar.Volume
}

// Codes returns the instrument set of the bucket.
func (b *TimeBucket) Codes() []string {
	out := make([]string, 0, len(b.Close))
	for code := range b.Close {
		out = append(out, code)
	}
	return out
}

// Record is the JSONL wire form of a TimeBucket.
type Record struct {
	Timestamp string           `json:"timestamp"`
	Open      map[string]int64 `json:"open"`
	High      map[string]int64 `json:"high"`
	Low       map[string]int64 `json:"low"`
	Close     map[string]int64 `json:"close"`
	Volume    map[string]int64 `json:"volume"`
}

// ToRecord converts the bucket to its wire form.
func (b *TimeBucket) ToRecord() Record {
	return Record{
		Timestamp: b.Time.Format(TimestampLayout),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

// MarshalLine serializes the bucket to a single JSON line (no trailing newline).
// Go's map marshalling sorts keys, so output is deterministic for a given bucket.
func (b *TimeBucket) MarshalLine() ([]byte, error) {
	return json.Marshal(b.ToRecord())
}

// ParseRecord parses one JSONL line. The timestamp is interpreted in loc.
func ParseRecord(line []byte, loc *time.Location) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("malformed record line: %w", err)
	}
	if _, err := rec.Time(loc); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Time parses the record's embedded timestamp.
func (r Record) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.TrimSpace(r.Timestamp)
	if ts, err := time.ParseInLocation(TimestampLayout, raw, loc); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(timestampLayoutShort, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed record timestamp %q", r.Timestamp)
	}
	return ts, nil
}

// Bucket converts the record back to a TimeBucket.
func (r Record) Bucket(loc *time.Location) (*TimeBucket, error) {
	ts, err := r.Time(loc)
	if err != nil {
		return nil, err
	}
	b := NewTimeBucket(ts)
	for code, v := range r.Open {
		b.Open[code] = v
	}
	for code, v := range r.High {
		b.High[code] = v
	}
	for code, v := range r.Low {
		b.Low[code] = v
	}
	for code, v := range r.Close {
		b.Close[code] = v
	}
	for code, v := range r.Volume {
		b.Volume[code] = v
	}
	return b, nil
}
