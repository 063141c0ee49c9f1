// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const (
	// maxCapturePayload bounds a single JPEG capture.
	maxCapturePayload = 8 << 20

	serverReadyTimeout = 30 * time.Second
)

func (c ServerConfig) options() *server.Options {
	return &server.Options{
		ServerName:         "cartsense",
		Host:               c.Host,
		Port:               c.Port,
		MaxPayload:         maxCapturePayload,
		JetStream:          true,
		StoreDir:           c.StoreDir,
		JetStreamMaxMemory: c.JetStreamMaxMem,
		JetStreamMaxStore:  c.JetStreamMaxStore,
		NoLog:              true,
		NoSigs:             true,
	}
}

// EmbeddedServer is an in-process, single-node JetStream server for
// deployments without a NATS cluster. Tests run one with Port -1 to get a
// random free port.
type EmbeddedServer struct {
	ns *server.Server
}

// NewEmbeddedServer starts a server and waits until it accepts clients.
func NewEmbeddedServer(cfg *ServerConfig) (*EmbeddedServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: server config required", ErrInvalidConfig)
	}
	ns, err := server.NewServer(cfg.options())
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	ns.Start()
	if !ns.ReadyForConnections(serverReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server on %s:%d not ready after %s", cfg.Host, cfg.Port, serverReadyTimeout)
	}
	return &EmbeddedServer{ns: ns}, nil
}

// ClientURL is the nats:// URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.ns.ClientURL()
}

// Shutdown stops the server. It returns ctx.Err() if ctx ends before the
// server has finished stopping.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.ns.Shutdown()
		s.ns.WaitForShutdown()
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EmbeddedServer) IsRunning() bool {
	return s.ns.Running()
}

func (s *EmbeddedServer) JetStreamEnabled() bool {
	return s.ns.JetStreamEnabled()
}
