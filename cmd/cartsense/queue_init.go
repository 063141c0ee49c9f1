// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartsense/internal/config"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/logging"
)

// QueueComponents holds the NATS pieces for lifecycle management.
type QueueComponents struct {
	server    *eventprocessor.EmbeddedServer
	conn      *natsgo.Conn
	js        jetstream.JetStream
	consumer  *eventprocessor.Consumer
	publisher *eventprocessor.Publisher
}

// InitQueue starts the embedded server if configured, connects, provisions
// the streams and opens the capture consumer. The consumer gets its own
// connection because cancelling a pull closes it.
func InitQueue(ctx context.Context, cfg *config.Config) (*QueueComponents, error) {
	q := &QueueComponents{}
	fail := func(err error) (*QueueComponents, error) {
		q.Close()
		if q.server != nil {
			if shutdownErr := q.server.Shutdown(context.Background()); shutdownErr != nil {
				logging.Warn().Err(shutdownErr).Msg("Failed to shut down embedded NATS server")
			}
		}
		return nil, err
	}

	connCfg := cfg.Queue.ConnectionConfig()
	if cfg.Queue.EmbeddedServer {
		serverCfg := cfg.Queue.ServerConfig()
		server, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		q.server = server
		connCfg.URL = server.ClientURL()
		logging.Info().Str("url", connCfg.URL).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", connCfg.URL).Msg("Using external NATS server")
	}

	nc, err := eventprocessor.Connect(connCfg)
	if err != nil {
		return fail(err)
	}
	q.conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fail(fmt.Errorf("create JetStream context: %w", err))
	}
	q.js = js

	streams := []eventprocessor.StreamConfig{cfg.Queue.StreamConfig()}
	if cfg.Notify.Enabled {
		streams = append(streams, eventprocessor.DefaultDisplayStreamConfig())
	}
	if err := eventprocessor.EnsureStreams(ctx, js, streams...); err != nil {
		return fail(err)
	}

	consumerConnCfg := connCfg
	consumerConnCfg.Name = connCfg.Name + "-consumer"
	consumerConn, err := eventprocessor.Connect(consumerConnCfg)
	if err != nil {
		return fail(err)
	}
	consumer, err := eventprocessor.NewConsumer(ctx, consumerConn, cfg.Queue.ConsumerConfig())
	if err != nil {
		consumerConn.Close()
		return fail(err)
	}
	q.consumer = consumer

	if cfg.Notify.Enabled {
		pubCfg := eventprocessor.DefaultPublisherConfig(connCfg.URL)
		pubCfg.Connection.Name = connCfg.Name + "-notify"
		pub, err := eventprocessor.NewPublisher(pubCfg, watermill.NewSlogLogger(logging.NewSlogLogger()))
		if err != nil {
			return fail(err)
		}
		pub.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
			eventprocessor.DefaultCircuitBreakerConfig("display-notify"), nil))
		q.publisher = pub
		logging.Info().Msg("Display change notifications enabled")
	}

	return q, nil
}

// Ping reports whether the shared connection is usable.
func (q *QueueComponents) Ping(context.Context) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return errors.New("nats: not connected")
	}
	return nil
}

// Close tears down the clients in reverse order of creation. The embedded
// server belongs to its supervised service once the tree is running.
func (q *QueueComponents) Close() {
	if q.publisher != nil {
		if err := q.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close display publisher")
		}
	}
	if q.consumer != nil {
		q.consumer.Close()
	}
	if q.conn != nil {
		if err := q.conn.Drain(); err != nil {
			q.conn.Close()
		}
	}
}
