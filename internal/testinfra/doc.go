// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package testinfra starts Docker containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/cartstate/...
//
// # Redis Container
//
//	redis := testinfra.StartRedis(t)
//	store, err := cartstate.OpenRedis(ctx, cartstate.RedisConfig{Addr: redis.Addr})
//
// StartRedis skips the test when no container provider answers and
// terminates the container in t.Cleanup. NewRedisContainer is the
// lower-level form for callers that manage the lifetime themselves.
package testinfra
