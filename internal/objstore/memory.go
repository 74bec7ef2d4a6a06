package objstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rhetenor/internal/market"
)

// Memory is an in-process Gateway used by tests and dry runs. Semantics match
// S3Gateway, including range filtering against key-embedded timestamps.
type Memory struct {
	prefix string
	loc    *time.Location

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory(prefix string, loc *time.Location) *Memory {
	if loc == nil {
		loc = time.UTC
	}
	return &Memory{
		prefix:  prefix,
		loc:     loc,
		objects: make(map[string][]byte),
	}
}

func (m *Memory) List(ctx context.Context, rng *TimeRange) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if rng != nil {
			ts, ok := ParseKeyTime(key, m.loc)
			if !ok || !rng.contains(ts) {
				continue
			}
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]market.Record, error) {
	m.mu.RLock()
	payload, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: get %s: not found", ErrStorage, key)
	}
	return DecodeRecords(bytes.NewReader(payload), key, m.loc)
}

func (m *Memory) Put(ctx context.Context, key string, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.mu.Lock()
	m.objects[key] = cp
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Raw returns the stored payload for key, for test assertions.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.objects[key]
	return payload, ok
}

var _ Gateway = (*Memory)(nil)
