// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package eventprocessor moves capture events and display notifications
// through NATS JetStream.
//
// # Topology
//
//	cart camera ──publish──▶ CAPTURES stream (capture.<device>)
//	                               │
//	                               ▼  durable pull consumer "cartsense-ingest"
//	                         Consumer.Pull (one message, long wait)
//	                               │
//	                               ▼
//	                         pipeline.Processor ──▶ Ack / Nak
//	                               │
//	                               ▼  (notify.enabled)
//	                         DISPLAY stream (cart.display.<device>)
//
// The consumer fetches exactly one message per pull and waits server-side
// for up to PullWait. A message is acknowledged only after every processing
// step succeeded; a Nak asks JetStream to redeliver it.
//
// # Components
//
//   - EmbeddedServer: single-node nats-server with JetStream for deployments
//     without an external cluster, and for tests
//   - EnsureStreams: idempotent create-or-update of the streams
//   - Consumer: pull consumer translating messages to models.CaptureEvent
//   - Publisher: Watermill NATS publisher used by cmd/publish and for
//     display-update notifications
//   - NewCircuitBreaker: gobreaker settings shared by outbound clients
//
// # Message Format
//
// Capture payloads are raw JPEG bytes. The device id travels in the
// "deviceId" header; when absent the last subject token is used. The stream
// timestamp is the capture's publish time.
package eventprocessor
