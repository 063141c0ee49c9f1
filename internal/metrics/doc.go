// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package metrics provides Prometheus instrumentation for the ingestion pipeline.

# Overview

The package exposes metrics for:
  - Queue pulls and acknowledgments
  - Capture events by terminal outcome
  - Per-stage latency (archive, detect, recommend, sync, annotate)
  - Next-item prediction attempts and retries
  - Device registry writes
  - Archive object writes
  - Circuit breaker state transitions
  - Redelivery cache hits

# Metrics Endpoint

Metrics are served by the ops HTTP listener:

	curl http://localhost:9090/metrics

All collectors are registered on the default registry through promauto, so
importing the package is enough to expose them.
*/
package metrics
