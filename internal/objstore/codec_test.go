package objstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhetenor/internal/market"
)

func TestCompressDecodeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 2, 9, 0, 0, 0, seoul)
	bucket := market.NewTimeBucket(ts)
	bucket.Merge(market.RawBar{Code: "005930", Time: ts, Open: 71000, High: 71200, Low: 70900, Close: 71100, Volume: 123456})
	line, err := bucket.MarshalLine()
	require.NoError(t, err)

	payload, err := CompressLines([][]byte{line})
	require.NoError(t, err)
	assert.NotEqual(t, line, payload)

	records, err := DecodeRecords(bytes.NewReader(payload), "test-key", seoul)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-02_09:00:00", records[0].Timestamp)
	assert.Equal(t, int64(71100), records[0].Close["005930"])
}

func TestCompressLinesDeterministic(t *testing.T) {
	lines := [][]byte{[]byte(`{"a":1}`), []byte(`{"b":2}`)}
	first, err := CompressLines(lines)
	require.NoError(t, err)
	second, err := CompressLines(lines)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeRecordsSkipsMalformedLines(t *testing.T) {
	good := []byte(`{"timestamp":"2024-01-02_09:00:00","open":{},"high":{},"low":{},"close":{},"volume":{}}`)
	payload, err := CompressLines([][]byte{[]byte("not json"), good, []byte(`{"timestamp":"junk"}`)})
	require.NoError(t, err)

	records, err := DecodeRecords(bytes.NewReader(payload), "test-key", seoul)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-02_09:00:00", records[0].Timestamp)
}

func TestDecodeRecordsRejectsNonZstd(t *testing.T) {
	_, err := DecodeRecords(bytes.NewReader([]byte("plain text")), "test-key", seoul)
	assert.Error(t, err)
}

func TestMemoryGatewayRangeFilter(t *testing.T) {
	m := NewMemory("p", seoul)
	ctx := context.Background()
	for _, hhmm := range []string{"090000", "093000", "100000"} {
		require.NoError(t, m.Put(ctx, "p/20240102_"+hhmm+".jsonl.zstd", []byte{}))
	}
	require.NoError(t, m.Put(ctx, "p/manifest.txt", []byte{}))

	all, err := m.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	rng := &TimeRange{
		From: time.Date(2024, 1, 2, 9, 0, 0, 0, seoul),
		To:   time.Date(2024, 1, 2, 9, 59, 0, 0, seoul),
	}
	filtered, err := m.List(ctx, rng)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"p/20240102_090000.jsonl.zstd",
		"p/20240102_093000.jsonl.zstd",
	}, filtered)
}
