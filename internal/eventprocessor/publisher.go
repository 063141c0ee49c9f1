// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/cartsense/internal/models"
)

// Publisher sends captures and display notifications through Watermill's
// JetStream publisher. It never provisions streams; EnsureStreams must have
// run first.
type Publisher struct {
	// mu is held for reading while a publish is in flight so Close waits
	// for it.
	mu      sync.RWMutex
	closed  bool
	out     message.Publisher
	breaker *Breaker
}

// NewPublisher dials NATS using cfg. A nil logger discards Watermill output.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	out, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.Connection.URL,
		NatsOptions: append(natsOptions(cfg.Connection), natsgo.ReconnectBufSize(cfg.ReconnectBuffer)),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			TrackMsgId: cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return &Publisher{out: out}, nil
}

// NewPublisherFrom wraps an existing Watermill publisher, such as a
// gochannel pub/sub in tests.
func NewPublisherFrom(out message.Publisher) (*Publisher, error) {
	if out == nil {
		return nil, ErrNilPublisher
	}
	return &Publisher{out: out}, nil
}

// SetCircuitBreaker routes every publish through cb. Call before first use.
func (p *Publisher) SetCircuitBreaker(cb *Breaker) {
	p.breaker = cb
}

// Publish sends msg to topic. Unless msg already carries a Nats-Msg-Id, its
// UUID is used so JetStream drops retried duplicates.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	if p.breaker == nil {
		return p.out.Publish(topic, msg)
	}
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.out.Publish(topic, msg)
	})
	return err
}

func deviceMessage(deviceID string, payload []byte) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(DeviceIDHeader, deviceID)
	return msg
}

// PublishCapture publishes one JPEG frame on capture.<deviceID>.
func (p *Publisher) PublishCapture(ctx context.Context, deviceID string, image []byte) error {
	if !models.ValidDeviceID(deviceID) {
		return fmt.Errorf("%w: %q", ErrMissingDeviceID, deviceID)
	}
	return p.Publish(ctx, CaptureSubject(deviceID), deviceMessage(deviceID, image))
}

// PublishDisplay announces a changed display pointer on cart.display.<device>.
func (p *Publisher) PublishDisplay(ctx context.Context, state models.DeviceDisplayState) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode display state: %w", err)
	}
	msg := deviceMessage(state.DeviceID, body)
	msg.Metadata.Set("Content-Type", "application/json")
	return p.Publish(ctx, DisplaySubject(state.DeviceID), msg)
}

// Close waits for in-flight publishes and closes the underlying publisher.
// Later calls are no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.out.Close()
}
