package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhetenor/internal/objstore"
)

type staticLister struct {
	keys []string
	err  error
}

func (l *staticLister) List(context.Context, *objstore.TimeRange) ([]string, error) {
	return l.keys, l.err
}

func TestResolveWatermarkPicksMaximum(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	lister := &staticLister{keys: []string{
		"p/20240101_090000.jsonl.zstd",
		"p/20240102_090000.jsonl.zstd",
		"p/garbage-key.txt",
		"p/20240101_153000.jsonl.zstd",
		"p/not_atime.jsonl.zstd",
	}}
	mark, ok, err := ResolveWatermark(context.Background(), lister, seoul)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, seoul), mark)
}

func TestResolveWatermarkNothingParsable(t *testing.T) {
	lister := &staticLister{keys: []string{"p/readme.txt", "p/other.bin"}}
	_, ok, err := ResolveWatermark(context.Background(), lister, time.UTC)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveWatermarkEmptyStore(t *testing.T) {
	_, ok, err := ResolveWatermark(context.Background(), &staticLister{}, time.UTC)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveWatermarkListError(t *testing.T) {
	lister := &staticLister{err: errors.New("listing failed")}
	_, _, err := ResolveWatermark(context.Background(), lister, time.UTC)
	assert.Error(t, err)
}
