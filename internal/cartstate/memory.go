// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package cartstate

import (
	"context"
	"sync"

	"github.com/tomtom215/cartsense/internal/models"
)

// MemoryStore keeps state in process memory. Values are deep-copied on the
// way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	history map[string]models.CartHistory
	display map[string]models.DeviceDisplayState
	setting *models.Setting
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history: make(map[string]models.CartHistory),
		display: make(map[string]models.DeviceDisplayState),
	}
}

func cloneHistory(h models.CartHistory) models.CartHistory {
	out := make(models.CartHistory, len(h))
	for i, s := range h {
		out[i] = s.Clone()
	}
	return out
}

func cloneDisplay(s models.DeviceDisplayState) models.DeviceDisplayState {
	s.LastKnownItems = s.LastKnownItems.Clone()
	contents := make([]models.ContentRef, len(s.Recommendation))
	for i, c := range s.Recommendation {
		c.MissingItems = append([]string{}, c.MissingItems...)
		contents[i] = c
	}
	s.Recommendation = contents
	return s
}

// GetHistory implements Store.
func (m *MemoryStore) GetHistory(_ context.Context, deviceID string) (models.CartHistory, error) {
	if err := checkDevice(deviceID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	h, ok := m.history[deviceID]
	if !ok || len(h) == 0 {
		return models.NewCartHistory(), nil
	}
	return cloneHistory(h), nil
}

// PutHistory implements Store.
func (m *MemoryStore) PutHistory(_ context.Context, deviceID string, history models.CartHistory) error {
	if err := checkDevice(deviceID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if len(history) == 0 {
		history = models.NewCartHistory()
	}
	m.history[deviceID] = cloneHistory(history)
	return nil
}

// ResetHistory implements Store.
func (m *MemoryStore) ResetHistory(ctx context.Context, deviceID string) error {
	return m.PutHistory(ctx, deviceID, models.NewCartHistory())
}

// GetDisplayState implements Store.
func (m *MemoryStore) GetDisplayState(_ context.Context, deviceID string) (models.DeviceDisplayState, error) {
	if err := checkDevice(deviceID); err != nil {
		return models.DeviceDisplayState{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return models.DeviceDisplayState{}, ErrClosed
	}
	s, ok := m.display[deviceID]
	if !ok {
		return models.DeviceDisplayState{}, ErrNotFound
	}
	return cloneDisplay(s), nil
}

// PutDisplayState implements Store.
func (m *MemoryStore) PutDisplayState(_ context.Context, state models.DeviceDisplayState) error {
	if err := checkDevice(state.DeviceID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.display[state.DeviceID] = cloneDisplay(state)
	return nil
}

// GetSetting implements Store.
func (m *MemoryStore) GetSetting(_ context.Context) (models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return models.Setting{}, ErrClosed
	}
	if m.setting == nil {
		return models.DefaultSetting(), nil
	}
	s := *m.setting
	if s.Recommend != nil {
		boost := *s.Recommend
		s.Recommend = &boost
	}
	return s, nil
}

// PutSetting implements Store.
func (m *MemoryStore) PutSetting(_ context.Context, setting models.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if setting.Recommend != nil {
		boost := *setting.Recommend
		setting.Recommend = &boost
	}
	m.setting = &setting
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
