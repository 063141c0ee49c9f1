// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"fmt"

	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/cartsense/internal/logging"
)

// natsOptions builds the client options shared by every connection: a
// short connect timeout and unlimited reconnects with logging.
func natsOptions(cfg ConnectionConfig) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name(cfg.Name),
		natsgo.Timeout(cfg.ConnectTimeout),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("connection", cfg.Name).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Str("connection", cfg.Name).Msg("NATS reconnected")
		}),
	}
}

// Connect opens a NATS connection with the shared options.
func Connect(cfg ConnectionConfig) (*natsgo.Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: NATS url is required", ErrInvalidConfig)
	}
	nc, err := natsgo.Connect(cfg.URL, natsOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", cfg.URL, err)
	}
	return nc, nil
}
