// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/pipeline"
	"github.com/tomtom215/cartsense/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cartsense/config.yaml",
	"/etc/cartsense/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every optional value filled in.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	consumer := eventprocessor.DefaultConsumerConfig()
	server := eventprocessor.DefaultServerConfig()

	return &Config{
		Queue: QueueConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       server.StoreDir,
			MaxMemory:      server.JetStreamMaxMem,
			MaxStore:       server.JetStreamMaxStore,
			StreamName:     consumer.StreamName,
			StreamMaxAge:   eventprocessor.DefaultCaptureStreamConfig().MaxAge,
			DurableName:    consumer.DurableName,
			FilterSubject:  consumer.FilterSubject,
			ConnectTimeout: 5 * time.Second,
			PullWait:       consumer.PullWait,
			AckWait:        consumer.AckWait,
			MaxDeliver:     consumer.MaxDeliver,
		},
		Storage: archive.Config{
			Backend: archive.BackendLocal,
			Dir:     "/data/captures",
		},
		State: StateConfig{
			Backend:     "badger",
			Path:        "/data/state",
			SyncWrites:  true,
			GCInterval:  10 * time.Minute,
			GCRatio:     0.5,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "cartsense:",
		},
		Inference: inference.DefaultConfig(),
		Registry: RegistryConfig{
			Backend: "nats",
			Bucket:  "device-configs",
			History: 5,
			Timeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			Location: "recipes.yaml",
		},
		Recommend: recommend.DefaultConfig(),
		Display: DisplayConfig{
			BaseURL: "http://127.0.0.1:3000",
		},
		Notify: NotifyConfig{
			Enabled: false,
		},
		Detection: DetectionConfig{
			Threshold: 0.5,
		},
		Pipeline: pipeline.DefaultLoopConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    9090,
			Timeout: 10 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load reads configuration from defaults, the YAML file at path (or the
// first file found by findConfigFile when path is empty), and environment
// variables, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional unless given explicitly)
	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"vocabulary.items",
	"vocabulary.denylist",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config paths.
// PROJECT, INPUT_SUBSCRIPTION and SAVE_BUCKET keep the names used by the
// existing cart deployments.
var envMappings = map[string]string{
	// Queue
	"nats_url":             "queue.url",
	"nats_embedded":        "queue.embedded_server",
	"nats_store_dir":       "queue.store_dir",
	"nats_max_memory":      "queue.max_memory",
	"nats_max_store":       "queue.max_store",
	"nats_stream":          "queue.stream_name",
	"nats_stream_max_age":  "queue.stream_max_age",
	"input_subscription":   "queue.durable_name",
	"nats_filter_subject":  "queue.filter_subject",
	"nats_connect_timeout": "queue.connect_timeout",
	"nats_pull_wait":       "queue.pull_wait",
	"nats_ack_wait":        "queue.ack_wait",
	"nats_max_deliver":     "queue.max_deliver",

	// Archival storage
	"storage_backend":  "storage.backend",
	"save_bucket":      "storage.bucket",
	"storage_prefix":   "storage.prefix",
	"storage_region":   "storage.region",
	"storage_endpoint": "storage.endpoint",
	"storage_dir":      "storage.dir",

	// Cart state
	"state_backend":     "state.backend",
	"state_path":        "state.path",
	"state_sync_writes": "state.sync_writes",
	"state_gc_interval": "state.gc_interval",
	"state_gc_ratio":    "state.gc_ratio",
	"redis_addr":        "state.redis_addr",
	"redis_password":    "state.redis_password",
	"redis_db":          "state.redis_db",
	"redis_prefix":      "state.redis_prefix",

	// Inference
	"inference_endpoint": "inference.endpoint",
	"project":            "inference.project",
	"detect_model":       "inference.detect_model",
	"sequence_model":     "inference.sequence_model",
	"inference_auth":     "inference.auth",
	"inference_timeout":  "inference.timeout",

	// Device registry
	"registry_backend": "registry.backend",
	"registry_bucket":  "registry.bucket",
	"registry_history": "registry.history",
	"registry_timeout": "registry.timeout",

	// Catalog and vocabulary
	"catalog_location":    "catalog.location",
	"vocabulary_file":     "vocabulary.file",
	"vocabulary_items":    "vocabulary.items",
	"vocabulary_denylist": "vocabulary.denylist",

	// Recommendation
	"recommend_mode":                   "recommend.mode",
	"recommend_max_contents":           "recommend.max_contents",
	"recommend_predict_max_attempts":   "recommend.predict_max_attempts",
	"recommend_predict_retry_interval": "recommend.predict_retry_interval",

	// Display and notifications
	"display_base_url": "display.base_url",
	"notify_enabled":   "notify.enabled",

	// Detection
	"score_threshold": "detection.threshold",

	// Pipeline
	"redelivery_cache_size": "pipeline.redelivery_cache_size",
	"redelivery_ttl":        "pipeline.redelivery_ttl",
	"nak_delay":             "pipeline.nak_delay",
	"nak_max_delay":         "pipeline.nak_max_delay",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Ops HTTP
	"http_enabled": "server.enabled",
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - NATS_URL -> queue.url
//   - SAVE_BUCKET -> storage.bucket
//   - SCORE_THRESHOLD -> detection.threshold
//   - PROJECT -> inference.project
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped variables are skipped so the environment cannot pollute config.
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for reloading and for synchronizing access.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
