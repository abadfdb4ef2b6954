// Package cache provides a keyed, expiring, single-flight cache gateway
// placed in front of data source fetches.
//
// The gateway owns key handling and the get/compute/set protocol; the
// backing store is a pluggable Backend supplied by the caller.
package cache

import (
	"context"
	"sync"
	"time"
)

// Backend is a key-value store with optional per-entry expiry.
type Backend interface {
	// Get returns the stored value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A zero ttl means the entry never
	// expires until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// memoryEntry is a stored value with its expiry deadline.
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process Backend for tests and single-node use.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the stored value, dropping it lazily when expired.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}

	return entry.data, true, nil
}

// Set stores the value, with an expiry deadline when ttl is positive.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{data: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes a key, if present.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
