// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"fmt"
	"time"
)

const (
	// CaptureSubjectPrefix prefixes capture subjects: capture.<device>.
	CaptureSubjectPrefix = "capture."

	// DisplaySubjectPrefix prefixes display notifications: cart.display.<device>.
	DisplaySubjectPrefix = "cart.display."

	// DeviceIDHeader carries the device id on capture messages.
	DeviceIDHeader = "deviceId"
)

// CaptureSubject returns the subject a device publishes captures on.
func CaptureSubject(deviceID string) string {
	return CaptureSubjectPrefix + deviceID
}

// DisplaySubject returns the notification subject for a device.
func DisplaySubject(deviceID string) string {
	return DisplaySubjectPrefix + deviceID
}

// ServerConfig sizes the embedded single-node JetStream server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig listens on loopback:4222 and stores under /data/nats.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 10 << 30,  // 10GB
	}
}

// ConnectionConfig holds client connection settings shared by the consumer,
// the publisher and the device registry.
type ConnectionConfig struct {
	URL            string
	ConnectTimeout time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
	Name           string
}

// DefaultConnectionConfig returns production defaults for url.
func DefaultConnectionConfig(url string) ConnectionConfig {
	return ConnectionConfig{
		URL:            url,
		ConnectTimeout: 5 * time.Second,
		MaxReconnects:  -1, // Unlimited
		ReconnectWait:  2 * time.Second,
		Name:           "cartsense",
	}
}

// ConsumerConfig holds the capture pull consumer settings.
type ConsumerConfig struct {
	StreamName  string
	DurableName string

	// FilterSubject narrows the consumer, default "capture.>".
	FilterSubject string

	// PullWait is how long one pull waits server-side for a message.
	PullWait time.Duration

	// AckWait must exceed the worst-case processing time of one capture.
	AckWait time.Duration

	// MaxDeliver caps redeliveries; -1 is unlimited.
	MaxDeliver int
}

// DefaultConsumerConfig returns production defaults for the capture consumer.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		StreamName:    "CAPTURES",
		DurableName:   "cartsense-ingest",
		FilterSubject: CaptureSubjectPrefix + ">",
		PullWait:      600 * time.Second,
		AckWait:       5 * time.Minute,
		MaxDeliver:    -1,
	}
}

// Validate checks the consumer configuration.
func (c ConsumerConfig) Validate() error {
	if c.StreamName == "" || c.DurableName == "" {
		return fmt.Errorf("%w: stream and durable name are required", ErrInvalidConfig)
	}
	if c.PullWait <= 0 {
		return fmt.Errorf("%w: pull wait must be positive", ErrInvalidConfig)
	}
	if c.AckWait <= 0 {
		return fmt.Errorf("%w: ack wait must be positive", ErrInvalidConfig)
	}
	return nil
}

// PublisherConfig configures the Watermill JetStream publisher.
type PublisherConfig struct {
	Connection ConnectionConfig

	// ReconnectBuffer is how many bytes of publishes are held while the
	// connection is down.
	ReconnectBuffer int

	// EnableTrackMsgID makes Watermill wait for the JetStream ack per message.
	EnableTrackMsgID bool
}

// DefaultPublisherConfig buffers 16MB across reconnects and tracks acks.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		Connection:       DefaultConnectionConfig(url),
		ReconnectBuffer:  16 * 1024 * 1024, // 16MB, captures are large
		EnableTrackMsgID: true,
	}
}

// StreamConfig defines JetStream stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultCaptureStreamConfig returns the capture stream configuration.
func DefaultCaptureStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "CAPTURES",
		Subjects:        []string{CaptureSubjectPrefix + ">"},
		MaxAge:          24 * time.Hour,
		MaxBytes:        2 * 1024 * 1024 * 1024, // 2GB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// DefaultDisplayStreamConfig returns the display notification stream configuration.
func DefaultDisplayStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "DISPLAY",
		Subjects:        []string{DisplaySubjectPrefix + ">"},
		MaxAge:          time.Hour,
		MaxBytes:        64 * 1024 * 1024,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig tunes a Breaker. Name doubles as the metrics label.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests trial requests are let through while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts; Timeout is the open period.
	Interval time.Duration
	Timeout  time.Duration

	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig opens after five straight failures for 10s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
