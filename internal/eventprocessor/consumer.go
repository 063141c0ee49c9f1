// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
	"github.com/tomtom215/cartsense/internal/models"
)

// Delivery is one pulled capture plus the handles to settle it.
type Delivery struct {
	Event        models.CaptureEvent
	NumDelivered uint64

	ack func() error
	nak func(delay time.Duration) error
}

// NewDelivery builds a Delivery from settle functions. Used by alternate
// sources and tests.
func NewDelivery(evt models.CaptureEvent, ack func() error, nak func(time.Duration) error) *Delivery {
	return &Delivery{Event: evt, NumDelivered: 1, ack: ack, nak: nak}
}

// Ack acknowledges the capture.
func (d *Delivery) Ack() error {
	err := d.ack()
	metrics.RecordAck("ack", err)
	return err
}

// Nak asks JetStream to redeliver the capture once delay has passed.
func (d *Delivery) Nak(delay time.Duration) error {
	err := d.nak(delay)
	metrics.RecordAck("nak", err)
	return err
}

// Consumer pulls captures from the durable JetStream consumer one at a time.
//
// The consumer owns its connection: a pull cannot be aborted except by
// closing the connection, so cancelling the Pull context closes it.
type Consumer struct {
	conn     *natsgo.Conn
	consumer jetstream.Consumer
	config   ConsumerConfig
}

// NewConsumer creates or updates the durable pull consumer on the stream.
// nc must be dedicated to this consumer.
func NewConsumer(ctx context.Context, nc *natsgo.Conn, cfg ConsumerConfig) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if cfg.FilterSubject == "" {
		cfg.FilterSubject = CaptureSubjectPrefix + ">"
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       cfg.DurableName,
		FilterSubject: cfg.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxAckPending: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s on %s: %w", cfg.DurableName, cfg.StreamName, err)
	}

	logging.Info().
		Str("stream", cfg.StreamName).
		Str("durable", cfg.DurableName).
		Dur("pull_wait", cfg.PullWait).
		Msg("Capture consumer ready")

	return &Consumer{conn: nc, consumer: cons, config: cfg}, nil
}

// Close closes the consumer connection. The durable consumer survives.
func (c *Consumer) Close() {
	c.conn.Close()
}

// Pull waits up to PullWait for one capture. It returns (nil, nil) when the
// wait expired with nothing to deliver.
func (c *Consumer) Pull(ctx context.Context) (*Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	batch, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(c.config.PullWait))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isEmptyPull(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch capture: %w", err)
	}

	var delivery *Delivery
	for msg := range batch.Messages() {
		if delivery != nil {
			// Fetch(1) never yields more; guard against a misbehaving server.
			_ = msg.Nak()
			continue
		}
		delivery, err = toDelivery(msg)
		if err != nil {
			logging.Warn().Err(err).Str("subject", msg.Subject()).Msg("Dropping malformed capture")
			_ = msg.Term()
			return nil, nil
		}
	}
	if ctx.Err() != nil && delivery == nil {
		return nil, ctx.Err()
	}
	if err := batch.Error(); err != nil && !isEmptyPull(err) {
		return nil, fmt.Errorf("fetch capture: %w", err)
	}
	return delivery, nil
}

func isEmptyPull(err error) bool {
	return errors.Is(err, natsgo.ErrTimeout) ||
		errors.Is(err, jetstream.ErrNoMessages) ||
		errors.Is(err, context.DeadlineExceeded)
}

func toDelivery(msg jetstream.Msg) (*Delivery, error) {
	deviceID := DeviceIDFromMessage(msg.Subject(), msg.Headers())
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}

	evt := models.CaptureEvent{
		DeviceID: deviceID,
		Image:    msg.Data(),
	}

	var delivered uint64 = 1
	if meta, err := msg.Metadata(); err == nil {
		evt.CapturedAt = meta.Timestamp
		evt.MessageID = fmt.Sprintf("%s:%d", meta.Stream, meta.Sequence.Stream)
		delivered = meta.NumDelivered
	} else {
		evt.CapturedAt = time.Now()
	}

	return &Delivery{
		Event:        evt,
		NumDelivered: delivered,
		ack:          msg.Ack,
		nak:          msg.NakWithDelay,
	}, nil
}

// DeviceIDFromMessage reads the deviceId header, falling back to the last
// subject token. It returns "" when the id is missing or not a valid
// device id.
func DeviceIDFromMessage(subject string, headers natsgo.Header) string {
	id := headers.Get(DeviceIDHeader)
	if id == "" {
		if i := strings.LastIndexByte(subject, '.'); i >= 0 {
			id = subject[i+1:]
		}
	}
	if !models.ValidDeviceID(id) {
		return ""
	}
	return id
}
