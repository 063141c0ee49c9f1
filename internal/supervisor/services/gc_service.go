// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package services

import (
	"context"
	"time"

	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
)

// GarbageCollector matches the badger store's RunGC method.
//
// Satisfied by *cartstate.BadgerStore from internal/cartstate/badger.go.
type GarbageCollector interface {
	RunGC() error
}

// StateGCService runs value-log GC on the cart state store every interval.
//
// GC errors are logged and counted, never returned: a failed pass is retried
// on the next tick rather than restarting the service.
type StateGCService struct {
	store    GarbageCollector
	interval time.Duration
	name     string
}

// NewStateGCService creates a GC service. A non-positive interval defaults
// to ten minutes.
func NewStateGCService(store GarbageCollector, interval time.Duration) *StateGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StateGCService{
		store:    store,
		interval: interval,
		name:     "state-gc",
	}
}

// Serve implements suture.Service.
func (s *StateGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *StateGCService) runOnce() {
	start := time.Now()
	err := s.store.RunGC()
	metrics.RecordStateGC(err)
	if err != nil {
		logging.Warn().Err(err).Msg("Cart state GC failed")
		return
	}
	logging.Debug().Dur("duration", time.Since(start)).Msg("Cart state GC completed")
}

// String implements fmt.Stringer for logging.
func (s *StateGCService) String() string {
	return s.name
}
