// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Cartsense is the ingestion service for smart shopping carts.

Each cart camera publishes JPEG frames to NATS JetStream. The service pulls
one frame at a time, detects grocery items, keeps a per-cart purchase
history, recommends recipes or the next item, and points the cart display
at the matching dashboard view through the device registry.

# Usage

	cartsense [config.yaml]

With no argument the file is located through CONFIG_PATH or the default
paths; environment variables override the file (see package config).

# Application Architecture

	RootSupervisor ("cartsense")
	├── DataSupervisor ("data-layer")
	│   ├── Embedded NATS server (NATS_EMBEDDED=true)
	│   └── Cart state GC (badger backend)
	├── IngestSupervisor ("ingest-layer")
	│   └── Capture loop
	└── APISupervisor ("api-layer")
	    └── Ops HTTP server (/healthz, /metrics)

Component initialization order:

 1. Configuration: koanf v2 with environment variables and a YAML file
 2. Logging: zerolog with JSON or console output
 3. Queue: NATS connection, stream provisioning, durable pull consumer
 4. Cart state: badger, redis or memory
 5. Pipeline: vocabulary, recipe catalog, inference client, recommender,
    device registry, capture archive
 6. Supervisor tree

# Graceful Shutdown

SIGINT or SIGTERM cancels the root context. The in-flight capture is
abandoned without acknowledgement and will be redelivered.
*/
package main
