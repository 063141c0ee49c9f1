// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartsense/internal/models"
)

// startTestServer runs an embedded JetStream server on a random port.
func startTestServer(t *testing.T) *EmbeddedServer {
	t.Helper()

	cfg := ServerConfig{
		Host:              "127.0.0.1",
		Port:              -1,
		StoreDir:          t.TempDir(),
		JetStreamMaxMem:   64 << 20,
		JetStreamMaxStore: 256 << 20,
	}
	srv, err := NewEmbeddedServer(&cfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func connectTest(t *testing.T, url string) *natsgo.Conn {
	t.Helper()
	cfg := DefaultConnectionConfig(url)
	cfg.MaxReconnects = 0
	nc, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func ensureStreams(t *testing.T, nc *natsgo.Conn) {
	t.Helper()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	captures, display := DefaultCaptureStreamConfig(), DefaultDisplayStreamConfig()
	captures.MaxBytes = 16 << 20
	display.MaxBytes = 16 << 20
	if err := EnsureStreams(context.Background(), js, captures, display); err != nil {
		t.Fatalf("EnsureStreams() error = %v", err)
	}
}

func TestEmbeddedServer(t *testing.T) {
	srv := startTestServer(t)
	if !srv.IsRunning() || !srv.JetStreamEnabled() {
		t.Fatal("expected running server with JetStream")
	}
	if srv.ClientURL() == "" {
		t.Error("expected client url")
	}
}

func TestEnsureStreams_Idempotent(t *testing.T) {
	srv := startTestServer(t)
	nc := connectTest(t, srv.ClientURL())
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	cfg := DefaultCaptureStreamConfig()
	cfg.MaxBytes = 16 << 20

	if _, err := js.Stream(ctx, cfg.Name); !errors.Is(err, jetstream.ErrStreamNotFound) {
		t.Fatalf("Stream() before provisioning error = %v, want ErrStreamNotFound", err)
	}
	for i := 0; i < 2; i++ {
		if err := EnsureStreams(ctx, js, cfg); err != nil {
			t.Fatalf("EnsureStreams() call %d error = %v", i, err)
		}
	}

	stream, err := js.Stream(ctx, cfg.Name)
	if err != nil {
		t.Fatal(err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Config.Name != "CAPTURES" || info.Config.Subjects[0] != "capture.>" {
		t.Errorf("unexpected stream config %+v", info.Config)
	}
	if info.Config.Replicas != 1 || info.Config.Discard != jetstream.DiscardOld {
		t.Errorf("Replicas = %d, Discard = %v", info.Config.Replicas, info.Config.Discard)
	}
}

func TestEnsureStreams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		js   StreamManager
		cfg  StreamConfig
	}{
		{"nil JetStream", nil, DefaultCaptureStreamConfig()},
		{"missing name", rejectingStreams{}, StreamConfig{Subjects: []string{"capture.>"}}},
		{"missing subjects", rejectingStreams{}, StreamConfig{Name: "CAPTURES"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureStreams(context.Background(), tt.js, tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("EnsureStreams() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

// rejectingStreams errors on any provisioning call.
type rejectingStreams struct{}

func (rejectingStreams) CreateOrUpdateStream(context.Context, jetstream.StreamConfig) (jetstream.Stream, error) {
	return nil, errors.New("unexpected CreateOrUpdateStream call")
}

func TestConsumer_PullPublishAckNak(t *testing.T) {
	srv := startTestServer(t)
	ensureStreams(t, connectTest(t, srv.ClientURL()))

	ctx := context.Background()
	cfg := DefaultConsumerConfig()
	cfg.PullWait = 300 * time.Millisecond
	cfg.AckWait = 30 * time.Second

	cons, err := NewConsumer(ctx, connectTest(t, srv.ClientURL()), cfg)
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	// Empty pull after the wait expires.
	d, err := cons.Pull(ctx)
	if err != nil || d != nil {
		t.Fatalf("empty Pull() = %v, %v; want nil, nil", d, err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(srv.ClientURL()), nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer pub.Close()

	image := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	if err := pub.PublishCapture(ctx, "cart01", image); err != nil {
		t.Fatalf("PublishCapture() error = %v", err)
	}

	d, err = cons.Pull(ctx)
	if err != nil || d == nil {
		t.Fatalf("Pull() = %v, %v", d, err)
	}
	if d.Event.DeviceID != "cart01" {
		t.Errorf("DeviceID = %q, want cart01", d.Event.DeviceID)
	}
	if !bytes.Equal(d.Event.Image, image) {
		t.Errorf("Image = %x, want %x", d.Event.Image, image)
	}
	if d.Event.MessageID != "CAPTURES:1" {
		t.Errorf("MessageID = %q, want CAPTURES:1", d.Event.MessageID)
	}
	if d.Event.CapturedAt.IsZero() {
		t.Error("CapturedAt should come from stream metadata")
	}

	if err := d.Nak(0); err != nil {
		t.Fatalf("Nak() error = %v", err)
	}

	redelivered, err := cons.Pull(ctx)
	if err != nil || redelivered == nil {
		t.Fatalf("redelivery Pull() = %v, %v", redelivered, err)
	}
	if redelivered.NumDelivered != 2 || redelivered.Event.MessageID != d.Event.MessageID {
		t.Errorf("redelivery = %+v", redelivered)
	}

	// A delayed nak holds the capture back for the delay.
	if err := redelivered.Nak(time.Second); err != nil {
		t.Fatalf("Nak(1s) error = %v", err)
	}
	if early, err := cons.Pull(ctx); err != nil || early != nil {
		t.Fatalf("Pull() inside nak delay = %v, %v; want empty", early, err)
	}
	var delayed *Delivery
	for i := 0; i < 10 && delayed == nil; i++ {
		if delayed, err = cons.Pull(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if delayed == nil || delayed.NumDelivered != 3 {
		t.Fatalf("delayed redelivery = %+v", delayed)
	}
	if err := delayed.Ack(); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}

	d, err = cons.Pull(ctx)
	if err != nil || d != nil {
		t.Errorf("Pull() after ack = %v, %v; want empty", d, err)
	}
}

func TestConsumer_PullCancelled(t *testing.T) {
	srv := startTestServer(t)
	ensureStreams(t, connectTest(t, srv.ClientURL()))

	cfg := DefaultConsumerConfig()
	cfg.PullWait = time.Minute
	cons, err := NewConsumer(context.Background(), connectTest(t, srv.ClientURL()), cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	if _, err := cons.Pull(ctx); err == nil {
		t.Error("expected error from cancelled pull")
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancelled pull did not return promptly")
	}
}

func TestPublisher_PublishDisplay(t *testing.T) {
	srv := startTestServer(t)
	nc := connectTest(t, srv.ClientURL())
	ensureStreams(t, nc)

	sub, err := nc.SubscribeSync(DisplaySubject("cart09"))
	if err != nil {
		t.Fatal(err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(srv.ClientURL()), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	state := models.DeviceDisplayState{DeviceID: "cart09", DisplayRef: "http://dash/display?contents=welcome", Synced: true}
	if err := pub.PublishDisplay(context.Background(), state); err != nil {
		t.Fatalf("PublishDisplay() error = %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	var got models.DeviceDisplayState
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.DisplayRef != state.DisplayRef {
		t.Errorf("DisplayRef = %q", got.DisplayRef)
	}
	if msg.Header.Get(DeviceIDHeader) != "cart09" {
		t.Errorf("deviceId header = %q", msg.Header.Get(DeviceIDHeader))
	}

	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}
	if err := pub.PublishDisplay(context.Background(), state); err != ErrPublisherClosed {
		t.Errorf("Publish after Close = %v, want ErrPublisherClosed", err)
	}
}

func TestDeviceIDFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		header  natsgo.Header
		want    string
	}{
		{"header wins", "capture.cartA", natsgo.Header{"deviceId": []string{"cartB"}}, "cartB"},
		{"subject fallback", "capture.cart01", nil, "cart01"},
		{"no token", "capture.", nil, ""},
		{"bare subject", "capture", nil, ""},
		{"traversal header", "capture.cart01", natsgo.Header{"deviceId": []string{"../annotated/cart01"}}, ""},
		{"separator header", "capture.cart01", natsgo.Header{"deviceId": []string{"cart01/x"}}, ""},
		{"dot-dot token", "capture...", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceIDFromMessage(tt.subject, tt.header); got != tt.want {
				t.Errorf("DeviceIDFromMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsumerConfig_Validate(t *testing.T) {
	if err := DefaultConsumerConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := DefaultConsumerConfig()
	bad.PullWait = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero pull wait")
	}
}
