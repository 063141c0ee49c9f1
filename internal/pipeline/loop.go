// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package pipeline

import (
	"context"
	"time"

	"github.com/tomtom215/cartsense/internal/cache"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
)

// Source yields one capture at a time. A nil Delivery with a nil error is
// an empty pull.
type Source interface {
	Pull(ctx context.Context) (*eventprocessor.Delivery, error)
}

// LoopConfig tunes the driver.
type LoopConfig struct {
	// RedeliveryCacheSize bounds how many processed message ids are kept.
	RedeliveryCacheSize int `koanf:"redelivery_cache_size" validate:"min=0"`

	// RedeliveryTTL is how long a processed message id is remembered.
	RedeliveryTTL time.Duration `koanf:"redelivery_ttl" validate:"min=0"`

	// NakDelay is the redelivery delay after the first failed attempt. It
	// doubles with each further delivery up to NakMaxDelay.
	NakDelay    time.Duration `koanf:"nak_delay" validate:"min=0"`
	NakMaxDelay time.Duration `koanf:"nak_max_delay" validate:"min=0"`
}

// DefaultLoopConfig returns production defaults.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		RedeliveryCacheSize: 1024,
		RedeliveryTTL:       30 * time.Minute,
		NakDelay:            time.Second,
		NakMaxDelay:         time.Minute,
	}
}

// nakDelay returns the redelivery delay for a capture that has been
// delivered n times.
func (c LoopConfig) nakDelay(n uint64) time.Duration {
	if c.NakDelay <= 0 {
		return 0
	}
	limit := max(c.NakMaxDelay, c.NakDelay)
	delay := c.NakDelay
	for i := uint64(1); i < n && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

// Loop pulls captures and runs them through a Processor, one at a time.
type Loop struct {
	source    Source
	processor *Processor
	processed *cache.LRU[Outcome]
	cfg       LoopConfig
	log       *logging.PipelineLogger
}

// NewLoop creates a Loop.
func NewLoop(source Source, processor *Processor, cfg LoopConfig) *Loop {
	return &Loop{
		source:    source,
		processor: processor,
		processed: cache.NewLRU[Outcome](cfg.RedeliveryCacheSize, cfg.RedeliveryTTL),
		cfg:       cfg,
		log:       logging.NewPipelineLogger("ingest"),
	}
}

// Run processes captures until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	logging.Info().Msg("Ingestion loop started")
	defer logging.Info().Msg("Ingestion loop stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.RunOnce(ctx)
	}
}

// RunOnce pulls and handles at most one capture. It reports whether a
// capture was received.
func (l *Loop) RunOnce(ctx context.Context) bool {
	d, err := l.source.Pull(ctx)
	metrics.RecordPull(boolToInt(d != nil), err)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn().Err(err).Msg("Pull failed, treating as empty")
		}
		return false
	}
	if d == nil {
		return false
	}

	evt := d.Event
	ectx := logging.ContextForEvent(ctx, evt.DeviceID)
	l.log.LogEventReceived(ectx, evt.MessageID, len(evt.Image), evt.CapturedAt)

	if evt.MessageID != "" {
		if prev, ok := l.processed.Get(evt.MessageID); ok {
			metrics.RecordRedeliveryHit()
			logging.Ctx(ectx).Info().
				Str("message_id", evt.MessageID).
				Str("outcome", string(prev.Transition)).
				Uint64("deliveries", d.NumDelivered).
				Msg("Capture already processed, acknowledging again")
			l.ack(ectx, d)
			return true
		}
	}

	start := time.Now()
	outcome, err := l.processor.Process(ectx, evt)
	if err != nil {
		metrics.RecordEvent("failed", time.Since(start))
		delay := l.cfg.nakDelay(d.NumDelivered)
		logging.Ctx(ectx).Error().Err(err).
			Uint64("deliveries", d.NumDelivered).
			Dur("redeliver_in", delay).
			Msg("Capture processing failed, requesting redelivery")
		if nakErr := d.Nak(delay); nakErr != nil {
			logging.Ctx(ectx).Warn().Err(nakErr).Msg("Nak failed, capture will be redelivered after ack wait")
		}
		return true
	}
	metrics.RecordEvent(string(outcome.Transition), time.Since(start))

	if evt.MessageID != "" {
		l.processed.Add(evt.MessageID, outcome)
	}
	l.ack(ectx, d)
	return true
}

func (l *Loop) ack(ctx context.Context, d *eventprocessor.Delivery) {
	if err := d.Ack(); err != nil {
		l.log.LogAckFailed(ctx, err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
