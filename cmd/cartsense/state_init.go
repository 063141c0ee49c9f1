// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartsense/internal/cartstate"
	"github.com/tomtom215/cartsense/internal/config"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/registry"
	"github.com/tomtom215/cartsense/internal/supervisor/services"
)

// InitStateStore opens the configured cart state backend. The returned
// collector is nil for backends without value-log maintenance.
func InitStateStore(ctx context.Context, cfg config.StateConfig) (cartstate.Store, services.GarbageCollector, error) {
	switch cfg.Backend {
	case "badger":
		store, err := cartstate.OpenBadger(cfg.BadgerConfig())
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.Path).Msg("Cart state store opened (badger)")
		return store, store, nil
	case "redis":
		store, err := cartstate.OpenRedis(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("addr", cfg.RedisAddr).Msg("Cart state store opened (redis)")
		return store, nil, nil
	case "memory":
		logging.Warn().Msg("Cart state is in memory and will not survive a restart")
		return cartstate.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// InitSynchronizer builds the device registry synchronizer.
func InitSynchronizer(ctx context.Context, cfg config.RegistryConfig, js jetstream.JetStream) (*registry.Synchronizer, error) {
	var reg registry.Registry
	switch cfg.Backend {
	case "nats":
		kv, err := registry.NewKVRegistry(ctx, js, cfg.KVConfig())
		if err != nil {
			return nil, err
		}
		reg = kv
		logging.Info().Str("bucket", cfg.Bucket).Msg("Device registry ready (NATS KV)")
	case "memory":
		logging.Warn().Msg("Device registry is in memory; displays are tracked but no device is reconfigured")
		reg = registry.NewMemoryRegistry()
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
	return registry.NewSynchronizer(reg, eventprocessor.DefaultCircuitBreakerConfig("device-registry")), nil
}
