// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrServerStopped means the embedded server went down while the tree was
// still running.
var ErrServerStopped = errors.New("embedded NATS server stopped")

// EmbeddedServer is satisfied by *eventprocessor.EmbeddedServer.
type EmbeddedServer interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedServerService watches an embedded NATS server that was started
// before the tree (the consumer and registry dial it during init) and stops
// it when the tree stops.
//
// A server that dies cannot be restarted in place, so Serve reports
// ErrServerStopped and leaves the restart decision to suture.
type EmbeddedServerService struct {
	server        EmbeddedServer
	grace         time.Duration
	checkInterval time.Duration
}

// NewEmbeddedServerService wraps server. A non-positive grace falls back to 10s.
func NewEmbeddedServerService(server EmbeddedServer, grace time.Duration) *EmbeddedServerService {
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &EmbeddedServerService{server: server, grace: grace, checkInterval: 5 * time.Second}
}

func (s *EmbeddedServerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.stop(ctx); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return ErrServerStopped
			}
		}
	}
}

func (s *EmbeddedServerService) stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
	defer cancel()
	if err := s.server.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("stop embedded NATS server: %w", err)
	}
	return nil
}

func (s *EmbeddedServerService) String() string { return "nats-embedded-server" }
