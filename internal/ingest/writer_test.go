package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhetenor/internal/market"
	"rhetenor/internal/objstore"
)

type failingGateway struct {
	*objstore.Memory
	failKeys map[string]bool
}

func (g *failingGateway) Put(ctx context.Context, key string, payload []byte) error {
	if g.failKeys[key] {
		return fmt.Errorf("%w: put %s: injected failure", objstore.ErrStorage, key)
	}
	return g.Memory.Put(ctx, key, payload)
}

type memManifest struct {
	mu      sync.Mutex
	digests map[string]string
	records int
}

func (m *memManifest) SeenObject(_ context.Context, key, digest string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.digests[key] == digest, nil
}

func (m *memManifest) RecordObject(_ context.Context, _, key, digest string, _ int, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.digests == nil {
		m.digests = make(map[string]string)
	}
	m.digests[key] = digest
	m.records++
	return nil
}

func minuteBucket(ts time.Time, code string, close int64) *market.TimeBucket {
	b := market.NewTimeBucket(ts)
	b.Merge(market.RawBar{Code: code, Time: ts, Open: close, High: close, Low: close, Close: close, Volume: 1})
	return b
}

func TestWriterOneObjectPerMinute(t *testing.T) {
	loc := time.UTC
	mem := objstore.NewMemory("p", loc)
	w := NewWriter(mem, "p", false, nil, "run-1")

	buckets := []*market.TimeBucket{
		minuteBucket(time.Date(2024, 1, 2, 9, 0, 0, 0, loc), "005930", 100),
		minuteBucket(time.Date(2024, 1, 2, 9, 1, 0, 0, loc), "005930", 101),
	}
	stats := w.Write(context.Background(), buckets)
	assert.Empty(t, stats.Failures)
	assert.Equal(t, []string{
		"p/20240102_090000.jsonl.zstd",
		"p/20240102_090100.jsonl.zstd",
	}, stats.Written)
	assert.Equal(t, 2, mem.Len())

	records, err := mem.Get(context.Background(), "p/20240102_090000.jsonl.zstd")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(100), records[0].Close["005930"])
}

func TestWriterDayBatchGroupsByDay(t *testing.T) {
	loc := time.UTC
	mem := objstore.NewMemory("p", loc)
	w := NewWriter(mem, "p", true, nil, "run-1")

	buckets := []*market.TimeBucket{
		minuteBucket(time.Date(2024, 1, 2, 9, 0, 0, 0, loc), "005930", 100),
		minuteBucket(time.Date(2024, 1, 2, 9, 1, 0, 0, loc), "005930", 101),
		minuteBucket(time.Date(2024, 1, 3, 9, 0, 0, 0, loc), "005930", 102),
	}
	stats := w.Write(context.Background(), buckets)
	assert.Empty(t, stats.Failures)
	assert.ElementsMatch(t, []string{
		"p/20240102_235959.jsonl.zstd",
		"p/20240103_235959.jsonl.zstd",
	}, stats.Written)

	records, err := mem.Get(context.Background(), "p/20240102_235959.jsonl.zstd")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriterKeyFailureDoesNotAbortRemaining(t *testing.T) {
	loc := time.UTC
	gw := &failingGateway{
		Memory:   objstore.NewMemory("p", loc),
		failKeys: map[string]bool{"p/20240102_090000.jsonl.zstd": true},
	}
	w := NewWriter(gw, "p", false, nil, "run-1")

	buckets := []*market.TimeBucket{
		minuteBucket(time.Date(2024, 1, 2, 9, 0, 0, 0, loc), "005930", 100),
		minuteBucket(time.Date(2024, 1, 2, 9, 1, 0, 0, loc), "005930", 101),
	}
	stats := w.Write(context.Background(), buckets)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "p/20240102_090000.jsonl.zstd", stats.Failures[0].Key)
	assert.Equal(t, []string{"p/20240102_090100.jsonl.zstd"}, stats.Written)
	assert.Equal(t, 1, gw.Len())
}

func TestWriterSkipsIdenticalPayloads(t *testing.T) {
	loc := time.UTC
	mem := objstore.NewMemory("p", loc)
	manifest := &memManifest{}
	buckets := []*market.TimeBucket{
		minuteBucket(time.Date(2024, 1, 2, 9, 0, 0, 0, loc), "005930", 100),
	}

	w1 := NewWriter(mem, "p", false, manifest, "run-1")
	stats := w1.Write(context.Background(), buckets)
	assert.Len(t, stats.Written, 1)
	assert.Empty(t, stats.Identical)

	w2 := NewWriter(mem, "p", false, manifest, "run-2")
	stats = w2.Write(context.Background(), buckets)
	assert.Empty(t, stats.Written)
	assert.Equal(t, []string{"p/20240102_090000.jsonl.zstd"}, stats.Identical)
	assert.Equal(t, 1, manifest.records)
}

func TestWriterReuploadsChangedPayloads(t *testing.T) {
	loc := time.UTC
	mem := objstore.NewMemory("p", loc)
	manifest := &memManifest{}
	ts := time.Date(2024, 1, 2, 9, 0, 0, 0, loc)

	w := NewWriter(mem, "p", false, manifest, "run-1")
	w.Write(context.Background(), []*market.TimeBucket{minuteBucket(ts, "005930", 100)})

	stats := w.Write(context.Background(), []*market.TimeBucket{minuteBucket(ts, "005930", 999)})
	assert.Len(t, stats.Written, 1)
	assert.Empty(t, stats.Identical)
	assert.Equal(t, 2, manifest.records)
}
