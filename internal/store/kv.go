package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrCapacityExceeded is returned by a KV when a value does not fit.
	ErrCapacityExceeded = errors.New("kv: capacity exceeded")
	// ErrNotFound is returned when a category has never been saved.
	ErrNotFound = errors.New("store: not found")
)

// KV is the key/value persistence port. Values are JSON documents.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Lister is implemented by KVs that can enumerate keys by prefix.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemoryKV is an in-process KV with an optional byte capacity.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string][]byte
	used     int
	capacity int
}

// NewMemoryKV returns a MemoryKV; capacity <= 0 means unlimited.
func NewMemoryKV(capacity int) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), capacity: capacity}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.used - len(m.data[key]) + len(value)
	if m.capacity > 0 && next > m.capacity {
		return ErrCapacityExceeded
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.used = next
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= len(m.data[key])
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Used reports the bytes currently stored.
func (m *MemoryKV) Used() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
