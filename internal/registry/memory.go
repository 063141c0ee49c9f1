// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package registry

import (
	"context"
	"sync"
)

type memoryEntry struct {
	data     []byte
	revision uint64
}

// MemoryRegistry is an in-process Registry with the same revision rules as
// the KV backend.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	writes  int
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]memoryEntry)}
}

// Seed stores a blob directly, bumping the revision.
func (m *MemoryRegistry) Seed(deviceID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[deviceID]
	m.entries[deviceID] = memoryEntry{data: append([]byte{}, data...), revision: e.revision + 1}
}

// Writes returns how many WriteConfig calls succeeded.
func (m *MemoryRegistry) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// ReadConfig implements Registry.
func (m *MemoryRegistry) ReadConfig(_ context.Context, deviceID string) (Config, error) {
	if deviceID == "" {
		return Config{}, ErrEmptyDeviceID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[deviceID]
	if !ok {
		return Config{Data: append([]byte{}, emptyConfig...)}, nil
	}
	return Config{Data: append([]byte{}, e.data...), Revision: e.revision}, nil
}

// WriteConfig implements Registry.
func (m *MemoryRegistry) WriteConfig(_ context.Context, deviceID string, cfg Config) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[deviceID].revision != cfg.Revision {
		return ErrConflict
	}
	m.entries[deviceID] = memoryEntry{data: append([]byte{}, cfg.Data...), revision: cfg.Revision + 1}
	m.writes++
	return nil
}
