// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package config loads and validates cartsense process configuration.

# Configuration Sources

Configuration is layered with koanf v2, later layers overriding earlier ones:
  - Built-in defaults (defaultConfig)
  - A YAML file: the path passed to Load, else CONFIG_PATH, else the first
    of DefaultConfigPaths that exists
  - Environment variables, through an explicit mapping table

Unmapped environment variables are ignored.

# Configuration Structure

  - queue: NATS JetStream capture stream, pull consumer, optional embedded server
  - storage: archival object store (gcs, s3, local)
  - state: cart state store (badger, redis, memory)
  - inference: prediction endpoint for the detection and next-item models
  - registry: device config registry (nats KV, memory)
  - catalog: recipe catalog location
  - vocabulary: detection label table, item vocabulary, denylist
  - recommend: recommendation mode, content cap, prediction retry policy
  - display: dashboard base URL used in display references
  - notify: display-change notifications
  - detection: score threshold
  - pipeline: redelivery cache and nak backoff
  - logging: zerolog level and format
  - server: ops HTTP listener for /healthz and /metrics
  - supervisor: suture failure policy

# Environment Variables

Queue:
  - NATS_URL: server URL (default: nats://127.0.0.1:4222)
  - NATS_EMBEDDED: run an in-process JetStream server (default: false)
  - INPUT_SUBSCRIPTION: durable consumer name (default: cartsense-ingest)
  - NATS_PULL_WAIT: server-side pull wait (default: 10m)

Storage and state:
  - STORAGE_BACKEND: gcs, s3, local (default: local)
  - SAVE_BUCKET: archive bucket for gcs and s3
  - STATE_BACKEND: badger, redis, memory (default: badger)
  - REDIS_ADDR: redis address for the redis backend

Inference and recommendation:
  - INFERENCE_ENDPOINT: prediction endpoint base URL (required)
  - PROJECT: project id in the prediction path (required)
  - SCORE_THRESHOLD: minimum detection score (default: 0.5)
  - RECOMMEND_MODE: recipe or next_item (default: recipe)
  - DISPLAY_BASE_URL: dashboard base URL

Validation combines go-playground/validator struct tags with cross-field
checks, e.g. SAVE_BUCKET is required for the gcs and s3 backends.

Example:

	cfg, err := config.Load(os.Args[1])
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.Logging.LoggingConfig())
*/
package config
