// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package cartstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/cartsense/internal/models"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key, e.g. "cartsense:".
	Prefix string
}

// RedisStore implements Store on Redis strings.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to Redis and verifies the connection with PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetHistory implements Store.
func (s *RedisStore) GetHistory(ctx context.Context, deviceID string) (models.CartHistory, error) {
	if err := checkDevice(deviceID); err != nil {
		return nil, err
	}
	data, err := s.get(ctx, historyKey(deviceID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return models.NewCartHistory(), nil
	}
	return decodeHistory(data)
}

// PutHistory implements Store.
func (s *RedisStore) PutHistory(ctx context.Context, deviceID string, history models.CartHistory) error {
	if err := checkDevice(deviceID); err != nil {
		return err
	}
	data, err := encodeHistory(history)
	if err != nil {
		return err
	}
	return s.set(ctx, historyKey(deviceID), data)
}

// ResetHistory implements Store.
func (s *RedisStore) ResetHistory(ctx context.Context, deviceID string) error {
	return s.PutHistory(ctx, deviceID, models.NewCartHistory())
}

// GetDisplayState implements Store.
func (s *RedisStore) GetDisplayState(ctx context.Context, deviceID string) (models.DeviceDisplayState, error) {
	if err := checkDevice(deviceID); err != nil {
		return models.DeviceDisplayState{}, err
	}
	data, err := s.get(ctx, displayKey(deviceID))
	if err != nil {
		return models.DeviceDisplayState{}, err
	}
	if data == nil {
		return models.DeviceDisplayState{}, ErrNotFound
	}
	var state models.DeviceDisplayState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.DeviceDisplayState{}, fmt.Errorf("decode display state: %w", err)
	}
	return state, nil
}

// PutDisplayState implements Store.
func (s *RedisStore) PutDisplayState(ctx context.Context, state models.DeviceDisplayState) error {
	if err := checkDevice(state.DeviceID); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode display state: %w", err)
	}
	return s.set(ctx, displayKey(state.DeviceID), data)
}

// GetSetting implements Store.
func (s *RedisStore) GetSetting(ctx context.Context) (models.Setting, error) {
	data, err := s.get(ctx, keySetting)
	if err != nil {
		return models.Setting{}, err
	}
	if data == nil {
		return models.DefaultSetting(), nil
	}
	return decodeSetting(data)
}

// PutSetting implements Store.
func (s *RedisStore) PutSetting(ctx context.Context, setting models.Setting) error {
	data, err := json.Marshal(setting)
	if err != nil {
		return fmt.Errorf("encode setting: %w", err)
	}
	return s.set(ctx, keySetting, data)
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
