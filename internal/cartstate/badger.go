// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package cartstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/models"
)

// BadgerConfig configures the embedded BadgerDB backend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM (tests, dry runs).
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCRatio is the value-log discard ratio passed to RunValueLogGC.
	GCRatio float64

	// CloseTimeout bounds how long Close waits for BadgerDB.
	CloseTimeout time.Duration
}

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	config BadgerConfig

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens (or creates) the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger path is required unless in-memory")
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Cart state store opened")

	return &BadgerStore{db: db, config: cfg}, nil
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// get returns the raw value for key, or nil when absent.
func (s *BadgerStore) get(key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *BadgerStore) set(key string, data []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data))
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// GetHistory implements Store.
func (s *BadgerStore) GetHistory(_ context.Context, deviceID string) (models.CartHistory, error) {
	if err := checkDevice(deviceID); err != nil {
		return nil, err
	}
	data, err := s.get(historyKey(deviceID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return models.NewCartHistory(), nil
	}
	return decodeHistory(data)
}

// PutHistory implements Store.
func (s *BadgerStore) PutHistory(_ context.Context, deviceID string, history models.CartHistory) error {
	if err := checkDevice(deviceID); err != nil {
		return err
	}
	data, err := encodeHistory(history)
	if err != nil {
		return err
	}
	return s.set(historyKey(deviceID), data)
}

// ResetHistory implements Store.
func (s *BadgerStore) ResetHistory(ctx context.Context, deviceID string) error {
	return s.PutHistory(ctx, deviceID, models.NewCartHistory())
}

// GetDisplayState implements Store.
func (s *BadgerStore) GetDisplayState(_ context.Context, deviceID string) (models.DeviceDisplayState, error) {
	if err := checkDevice(deviceID); err != nil {
		return models.DeviceDisplayState{}, err
	}
	data, err := s.get(displayKey(deviceID))
	if err != nil {
		return models.DeviceDisplayState{}, err
	}
	if data == nil {
		return models.DeviceDisplayState{}, ErrNotFound
	}
	var state models.DeviceDisplayState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.DeviceDisplayState{}, fmt.Errorf("decode display state: %w", err)
	}
	return state, nil
}

// PutDisplayState implements Store.
func (s *BadgerStore) PutDisplayState(_ context.Context, state models.DeviceDisplayState) error {
	if err := checkDevice(state.DeviceID); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode display state: %w", err)
	}
	return s.set(displayKey(state.DeviceID), data)
}

// GetSetting implements Store.
func (s *BadgerStore) GetSetting(_ context.Context) (models.Setting, error) {
	data, err := s.get(keySetting)
	if err != nil {
		return models.Setting{}, err
	}
	if data == nil {
		return models.DefaultSetting(), nil
	}
	return decodeSetting(data)
}

// PutSetting implements Store.
func (s *BadgerStore) PutSetting(_ context.Context, setting models.Setting) error {
	data, err := json.Marshal(setting)
	if err != nil {
		return fmt.Errorf("encode setting: %w", err)
	}
	return s.set(keySetting, data)
}

// RunGC runs value-log GC until BadgerDB reports nothing left to rewrite.
func (s *BadgerStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.config.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close implements Store. It gives up after CloseTimeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Cart state store closed")
		return nil
	case <-time.After(s.config.CloseTimeout):
		return fmt.Errorf("badgerdb close timeout after %v", s.config.CloseTimeout)
	}
}
