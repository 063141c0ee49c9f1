// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartsense/internal/logging"
)

// KVConfig configures the NATS KeyValue backend.
type KVConfig struct {
	Bucket  string
	History uint8
	Timeout time.Duration
}

// DefaultKVConfig returns production defaults.
func DefaultKVConfig() KVConfig {
	return KVConfig{
		Bucket:  "device-configs",
		History: 5,
		Timeout: 10 * time.Second,
	}
}

// KVRegistry stores device blobs in a JetStream KeyValue bucket keyed by
// device id.
type KVRegistry struct {
	kv      jetstream.KeyValue
	timeout time.Duration
}

// NewKVRegistry opens the bucket, creating it when missing.
func NewKVRegistry(ctx context.Context, js jetstream.JetStream, cfg KVConfig) (*KVRegistry, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("registry bucket is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	kv, err := js.KeyValue(ctx, cfg.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "Edge device configuration",
			History:     cfg.History,
			Storage:     jetstream.FileStorage,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open registry bucket %s: %w", cfg.Bucket, err)
	}

	logging.Info().Str("bucket", cfg.Bucket).Msg("Device registry ready")
	return &KVRegistry{kv: kv, timeout: cfg.Timeout}, nil
}

// ReadConfig implements Registry.
func (r *KVRegistry) ReadConfig(ctx context.Context, deviceID string) (Config, error) {
	if deviceID == "" {
		return Config{}, ErrEmptyDeviceID
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entry, err := r.kv.Get(ctx, deviceID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return Config{Data: append([]byte{}, emptyConfig...)}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", deviceID, err)
	}
	return Config{Data: entry.Value(), Revision: entry.Revision()}, nil
}

// WriteConfig implements Registry. Revision 0 creates the key.
func (r *KVRegistry) WriteConfig(ctx context.Context, deviceID string, cfg Config) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var err error
	if cfg.Revision == 0 {
		_, err = r.kv.Create(ctx, deviceID, cfg.Data)
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrConflict
		}
	} else {
		_, err = r.kv.Update(ctx, deviceID, cfg.Data, cfg.Revision)
		if isWrongSequence(err) {
			return ErrConflict
		}
	}
	if err != nil {
		return fmt.Errorf("write config %s: %w", deviceID, err)
	}
	return nil
}

// isWrongSequence detects the server's optimistic-lock rejection.
func isWrongSequence(err error) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return false
}
