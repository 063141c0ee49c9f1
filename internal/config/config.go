// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/cartstate"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/pipeline"
	"github.com/tomtom215/cartsense/internal/recommend"
	"github.com/tomtom215/cartsense/internal/registry"
	"github.com/tomtom215/cartsense/internal/supervisor"
	"github.com/tomtom215/cartsense/internal/vocab"
)

// Config holds all process configuration.
//
// Loading order (koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CLI argument, CONFIG_PATH, or a default path)
//  3. Environment variables listed in envTransformFunc
type Config struct {
	Queue      QueueConfig         `koanf:"queue"`
	Storage    archive.Config      `koanf:"storage"`
	State      StateConfig         `koanf:"state"`
	Inference  inference.Config    `koanf:"inference"`
	Registry   RegistryConfig      `koanf:"registry"`
	Catalog    CatalogConfig       `koanf:"catalog"`
	Vocabulary VocabularyConfig    `koanf:"vocabulary"`
	Recommend  recommend.Config    `koanf:"recommend"`
	Display    DisplayConfig       `koanf:"display"`
	Notify     NotifyConfig        `koanf:"notify"`
	Detection  DetectionConfig     `koanf:"detection"`
	Pipeline   pipeline.LoopConfig `koanf:"pipeline"`
	Logging    LoggingConfig       `koanf:"logging"`
	Server     ServerConfig        `koanf:"server"`
	Supervisor SupervisorConfig    `koanf:"supervisor"`
}

// QueueConfig holds the capture queue settings.
//
// Environment Variables:
//   - NATS_URL: server URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: run an in-process server (default: false)
//   - INPUT_SUBSCRIPTION: durable consumer name (default: cartsense-ingest)
type QueueConfig struct {
	URL            string `koanf:"url" validate:"required"`
	EmbeddedServer bool   `koanf:"embedded_server"`

	// Embedded server only.
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory" validate:"min=0"`
	MaxStore  int64  `koanf:"max_store" validate:"min=0"`

	StreamName    string        `koanf:"stream_name" validate:"required"`
	StreamMaxAge  time.Duration `koanf:"stream_max_age" validate:"min=0"`
	DurableName   string        `koanf:"durable_name" validate:"required"`
	FilterSubject string        `koanf:"filter_subject" validate:"required"`

	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	PullWait       time.Duration `koanf:"pull_wait" validate:"gt=0"`
	AckWait        time.Duration `koanf:"ack_wait" validate:"gt=0"`
	MaxDeliver     int           `koanf:"max_deliver"`
}

// StateConfig selects and configures the cart state store.
type StateConfig struct {
	Backend string `koanf:"backend" validate:"oneof=badger redis memory"`

	// Badger.
	Path       string        `koanf:"path"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"min=0"`
	GCRatio    float64       `koanf:"gc_ratio" validate:"min=0,max=1"`

	// Redis.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"min=0"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// RegistryConfig configures the device config registry.
type RegistryConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=nats memory"`
	Bucket  string        `koanf:"bucket"`
	History uint8         `koanf:"history"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// CatalogConfig locates the recipe catalog.
type CatalogConfig struct {
	// Location is gs://bucket/key, s3://bucket/key, or a local path.
	Location string `koanf:"location" validate:"required"`
}

// VocabularyConfig holds the detection label table and the item vocabulary.
// File takes precedence over inline values; with neither, the bundled
// grocery vocabulary is used.
type VocabularyConfig struct {
	File     string            `koanf:"file"`
	Labels   map[string]string `koanf:"labels"`
	Items    []string          `koanf:"items"`
	Denylist []string          `koanf:"denylist"`
}

// DisplayConfig holds the dashboard base URL that display references point at.
type DisplayConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// NotifyConfig controls display-change notifications.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
}

// DetectionConfig holds detection normalization settings.
type DetectionConfig struct {
	// Threshold is the minimum score for a detection to count. Default: 0.5
	Threshold float64 `koanf:"threshold" validate:"min=0,max=1"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig holds the ops HTTP listener (health and metrics only).
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"min=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"min=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"min=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// Addr returns host:port for the ops listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ConnectionConfig returns the NATS client connection settings.
func (q QueueConfig) ConnectionConfig() eventprocessor.ConnectionConfig {
	cfg := eventprocessor.DefaultConnectionConfig(q.URL)
	cfg.ConnectTimeout = q.ConnectTimeout
	return cfg
}

// ServerConfig returns the embedded NATS server settings.
func (q QueueConfig) ServerConfig() eventprocessor.ServerConfig {
	cfg := eventprocessor.DefaultServerConfig()
	if q.StoreDir != "" {
		cfg.StoreDir = q.StoreDir
	}
	if q.MaxMemory > 0 {
		cfg.JetStreamMaxMem = q.MaxMemory
	}
	if q.MaxStore > 0 {
		cfg.JetStreamMaxStore = q.MaxStore
	}
	return cfg
}

// ConsumerConfig returns the capture pull consumer settings.
func (q QueueConfig) ConsumerConfig() eventprocessor.ConsumerConfig {
	return eventprocessor.ConsumerConfig{
		StreamName:    q.StreamName,
		DurableName:   q.DurableName,
		FilterSubject: q.FilterSubject,
		PullWait:      q.PullWait,
		AckWait:       q.AckWait,
		MaxDeliver:    q.MaxDeliver,
	}
}

// StreamConfig returns the capture stream settings.
func (q QueueConfig) StreamConfig() eventprocessor.StreamConfig {
	cfg := eventprocessor.DefaultCaptureStreamConfig()
	cfg.Name = q.StreamName
	if q.StreamMaxAge > 0 {
		cfg.MaxAge = q.StreamMaxAge
	}
	return cfg
}

// BadgerConfig returns the badger store settings.
func (s StateConfig) BadgerConfig() cartstate.BadgerConfig {
	return cartstate.BadgerConfig{
		Path:         s.Path,
		SyncWrites:   s.SyncWrites,
		GCRatio:      s.GCRatio,
		CloseTimeout: 10 * time.Second,
	}
}

// RedisConfig returns the redis store settings.
func (s StateConfig) RedisConfig() cartstate.RedisConfig {
	return cartstate.RedisConfig{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
		Prefix:   s.RedisPrefix,
	}
}

// KVConfig returns the NATS KV registry settings.
func (r RegistryConfig) KVConfig() registry.KVConfig {
	return registry.KVConfig{
		Bucket:  r.Bucket,
		History: r.History,
		Timeout: r.Timeout,
	}
}

// Table builds the vocabulary table.
func (v VocabularyConfig) Table() (*vocab.Table, error) {
	if v.File != "" {
		return vocab.LoadFile(v.File)
	}
	if len(v.Items) == 0 {
		return vocab.Default(), nil
	}

	def := vocab.Definition{
		Labels:   make(map[int]string, len(v.Labels)),
		Items:    v.Items,
		Denylist: v.Denylist,
	}
	for key, name := range v.Labels {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: label id %q is not an integer", vocab.ErrInvalidTable, key)
		}
		def.Labels[id] = name
	}
	return vocab.New(def)
}

// LoggingConfig returns the logger settings.
func (l LoggingConfig) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.Output = os.Stderr
	return cfg
}

// TreeConfig returns the supervisor tree settings.
func (s SupervisorConfig) TreeConfig() supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: s.FailureThreshold,
		FailureDecay:     s.FailureDecay,
		FailureBackoff:   s.FailureBackoff,
		ShutdownTimeout:  s.ShutdownTimeout,
	}
}

// RecommendConfig returns the recommendation settings with the display base
// URL filled in.
func (c *Config) RecommendConfig() recommend.Config {
	cfg := c.Recommend
	cfg.DisplayBaseURL = c.Display.BaseURL
	return cfg
}
