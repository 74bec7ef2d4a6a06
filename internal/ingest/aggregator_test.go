package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhetenor/internal/market"
)

func TestAggregatorMergesAcrossInstruments(t *testing.T) {
	agg := newAggregator(8)
	minute := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	agg.Add(market.RawBar{Code: "005930", Time: minute, Open: 100, Close: 105, Volume: 10})
	agg.Add(market.RawBar{Code: "000660", Time: minute.Add(10 * time.Second), Open: 50, Close: 52, Volume: 5})
	agg.Add(market.RawBar{Code: "005930", Time: minute.Add(time.Minute), Open: 106, Close: 107, Volume: 7})

	buckets := agg.Close()
	require.Len(t, buckets, 2)

	byTime := make(map[int64]*market.TimeBucket)
	for _, b := range buckets {
		byTime[b.Time.Unix()] = b
	}
	first := byTime[minute.Unix()]
	require.NotNil(t, first, "sub-minute timestamps truncate into the same bucket")
	assert.Equal(t, int64(105), first.Close["005930"])
	assert.Equal(t, int64(52), first.Close["000660"])

	second := byTime[minute.Add(time.Minute).Unix()]
	require.NotNil(t, second)
	assert.Equal(t, int64(107), second.Close["005930"])
	assert.NotContains(t, second.Close, "000660")
}

func TestAggregatorConcurrentProducers(t *testing.T) {
	agg := newAggregator(64)
	minute := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	var wg sync.WaitGroup
	codes := []string{"005930", "000660", "035420", "035720", "051910"}
	for _, code := range codes {
		code := code
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				agg.Add(market.RawBar{Code: code, Time: minute.Add(time.Duration(i) * time.Minute), Close: int64(i)})
			}
		}()
	}
	wg.Wait()

	buckets := agg.Close()
	require.Len(t, buckets, 100)
	for _, b := range buckets {
		assert.Len(t, b.Close, len(codes))
	}
}

func TestAggregatorDuplicateBarLastWriteWins(t *testing.T) {
	agg := newAggregator(4)
	minute := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	agg.Add(market.RawBar{Code: "005930", Time: minute, Close: 100, Volume: 1})
	agg.Add(market.RawBar{Code: "005930", Time: minute, Close: 200, Volume: 2})

	buckets := agg.Close()
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(200), buckets[0].Close["005930"])
	assert.Equal(t, int64(2), buckets[0].Volume["005930"])
}
