// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultRedisImage is the Redis image used for state store tests.
	DefaultRedisImage = "redis:7-alpine"

	redisPort = "6379/tcp"
)

// RedisContainer is a running Redis server reachable at Addr (host:port).
type RedisContainer struct {
	testcontainers.Container
	Addr string
}

// RedisOption adjusts how the Redis container is started.
type RedisOption func(*testcontainers.ContainerRequest)

// WithRedisImage overrides DefaultRedisImage.
func WithRedisImage(image string) RedisOption {
	return func(req *testcontainers.ContainerRequest) { req.Image = image }
}

// WithRedisStartTimeout bounds how long startup may take (default one minute).
func WithRedisStartTimeout(timeout time.Duration) RedisOption {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = redisReady().WithStartupTimeout(timeout)
	}
}

func redisReady() *wait.MultiStrategy {
	return wait.ForAll(
		wait.ForListeningPort(redisPort),
		wait.ForLog("Ready to accept connections"),
	)
}

// NewRedisContainer starts Redis. The caller terminates it.
func NewRedisContainer(ctx context.Context, opts ...RedisOption) (*RedisContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultRedisImage,
		ExposedPorts: []string{redisPort},
		WaitingFor:   redisReady().WithStartupTimeout(time.Minute),
	}
	for _, opt := range opts {
		opt(&req)
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		// A container that started but failed its wait strategy is still returned.
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("start %s: %w", req.Image, err)
	}

	addr, err := ctr.PortEndpoint(ctx, redisPort, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("resolve redis endpoint: %w", err)
	}
	return &RedisContainer{Container: ctr, Addr: addr}, nil
}

// StartRedis starts Redis for t and terminates it when t finishes. The test
// is skipped when no container provider (Docker, Podman) is reachable.
func StartRedis(t *testing.T, opts ...RedisOption) *RedisContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redis, err := NewRedisContainer(ctx, opts...)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	testcontainers.CleanupContainer(t, redis.Container)
	return redis
}
