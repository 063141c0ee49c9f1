// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamManager is the slice of jetstream.JetStream needed to provision streams.
type StreamManager interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// Validate checks that the stream can be provisioned.
func (c StreamConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: stream name is required", ErrInvalidConfig)
	}
	if len(c.Subjects) == 0 {
		return fmt.Errorf("%w: stream %s has no subjects", ErrInvalidConfig, c.Name)
	}
	return nil
}

// jetStream maps c onto a file-backed, limits-retention stream that drops
// the oldest captures once full.
func (c StreamConfig) jetStream() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       c.Name,
		Subjects:   c.Subjects,
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
		MaxAge:     c.MaxAge,
		MaxBytes:   c.MaxBytes,
		MaxMsgs:    c.MaxMsgs,
		Duplicates: c.DuplicateWindow,
		Replicas:   max(c.Replicas, 1),
	}
}

// EnsureStreams creates each stream or brings an existing one up to date.
// It runs at startup before any consumer or publisher attaches and is safe
// to repeat.
func EnsureStreams(ctx context.Context, js StreamManager, streams ...StreamConfig) error {
	if js == nil {
		return fmt.Errorf("%w: JetStream context required", ErrInvalidConfig)
	}
	for _, s := range streams {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, err := js.CreateOrUpdateStream(ctx, s.jetStream()); err != nil {
			return fmt.Errorf("ensure stream %s: %w", s.Name, err)
		}
	}
	return nil
}
