// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/metrics"
)

// Synchronizer points a device's dashboardUrl at a computed display ref.
type Synchronizer struct {
	registry Registry
	breaker  *gobreaker.CircuitBreaker[any]
}

// NewSynchronizer wraps registry calls in a circuit breaker. Conflicts do
// not count as breaker failures.
func NewSynchronizer(registry Registry, cbCfg eventprocessor.CircuitBreakerConfig) *Synchronizer {
	if cbCfg.Name == "" {
		cbCfg = eventprocessor.DefaultCircuitBreakerConfig("registry")
	}
	return &Synchronizer{
		registry: registry,
		breaker: eventprocessor.NewCircuitBreaker(cbCfg, func(err error) bool {
			return err == nil || errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidConfig)
		}),
	}
}

// Sync reads the device blob and, when its dashboardUrl differs from ref by
// exact string comparison, writes the blob back with only that field
// replaced. updated reports whether a write happened. Errors wrapping
// ErrInvalidConfig are permanent for the stored blob; every other error is
// retryable and the caller should redeliver the event.
func (s *Synchronizer) Sync(ctx context.Context, deviceID, ref string) (updated bool, err error) {
	defer func() { metrics.RecordRegistrySync(updated, err) }()

	cfg, err := execute(s.breaker, func() (Config, error) {
		return s.registry.ReadConfig(ctx, deviceID)
	})
	if err != nil {
		return false, err
	}

	next, changed, err := rewriteDashboardURL(cfg.Data, ref)
	if err != nil {
		return false, fmt.Errorf("device %s: %w", deviceID, err)
	}
	if !changed {
		return false, nil
	}

	_, err = execute(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.registry.WriteConfig(ctx, deviceID, Config{Data: next, Revision: cfg.Revision})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", res)
	}
	return typed, nil
}

// rewriteDashboardURL returns data with dashboardUrl set to ref. changed is
// false when the stored value already equals ref. Fields other than
// dashboardUrl keep their raw encoding.
func rewriteDashboardURL(data []byte, ref string) (out []byte, changed bool, err error) {
	fields := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	if raw, ok := fields[DashboardURLField]; ok {
		var current string
		if err := json.Unmarshal(raw, &current); err == nil && current == ref {
			return data, false, nil
		}
	}

	encoded, err := json.Marshal(ref)
	if err != nil {
		return nil, false, fmt.Errorf("encode dashboard url: %w", err)
	}
	fields[DashboardURLField] = encoded

	out, err = json.Marshal(fields)
	if err != nil {
		return nil, false, fmt.Errorf("encode device config: %w", err)
	}
	return out, true, nil
}
