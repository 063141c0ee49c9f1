// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import (
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
)

// Breaker guards calls to inference, the device registry and the display
// stream.
type Breaker = gobreaker.CircuitBreaker[any]

// NewCircuitBreaker trips after cfg.FailureThreshold consecutive failures.
// isSuccessful decides which errors count as failures; errors that say
// nothing about the remote (no prediction, a lost optimistic write) should
// return true. A nil isSuccessful counts every error.
func NewCircuitBreaker(cfg CircuitBreakerConfig, isSuccessful func(error) bool) *Breaker {
	threshold := cfg.FailureThreshold
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: onBreakerStateChange,
	})
}

func onBreakerStateChange(name string, from, to gobreaker.State) {
	metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())

	event := logging.Warn()
	if to == gobreaker.StateClosed {
		event = logging.Info()
	}
	event.Str("breaker", name).
		Stringer("from", from).
		Stringer("to", to).
		Msg("Circuit breaker state changed")
}
