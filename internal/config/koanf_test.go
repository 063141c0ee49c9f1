// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Inference.Endpoint = "https://predict.example.com"
	cfg.Inference.Project = "cart-project"
	return cfg
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("INFERENCE_ENDPOINT", "https://predict.example.com")
	t.Setenv("PROJECT", "cart-project")
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Queue.URL != "nats://127.0.0.1:4222" {
		t.Errorf("Queue.URL = %q, want nats://127.0.0.1:4222", cfg.Queue.URL)
	}
	if cfg.Queue.PullWait != 600*time.Second {
		t.Errorf("Queue.PullWait = %v, want 10m", cfg.Queue.PullWait)
	}
	if cfg.Queue.ConnectTimeout != 5*time.Second {
		t.Errorf("Queue.ConnectTimeout = %v, want 5s", cfg.Queue.ConnectTimeout)
	}
	if cfg.Queue.DurableName != "cartsense-ingest" {
		t.Errorf("Queue.DurableName = %q, want cartsense-ingest", cfg.Queue.DurableName)
	}
	if cfg.Detection.Threshold != 0.5 {
		t.Errorf("Detection.Threshold = %v, want 0.5", cfg.Detection.Threshold)
	}
	if cfg.Recommend.Mode != "recipe" {
		t.Errorf("Recommend.Mode = %q, want recipe", cfg.Recommend.Mode)
	}
	if cfg.State.Backend != "badger" {
		t.Errorf("State.Backend = %q, want badger", cfg.State.Backend)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Storage.Backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.Inference.Timeout != 30*time.Second {
		t.Errorf("Inference.Timeout = %v, want 30s", cfg.Inference.Timeout)
	}
	if cfg.Pipeline.RedeliveryCacheSize != 1024 {
		t.Errorf("Pipeline.RedeliveryCacheSize = %d, want 1024", cfg.Pipeline.RedeliveryCacheSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NATS_URL", "queue.url"},
		{"INPUT_SUBSCRIPTION", "queue.durable_name"},
		{"SAVE_BUCKET", "storage.bucket"},
		{"SCORE_THRESHOLD", "detection.threshold"},
		{"PROJECT", "inference.project"},
		{"LOG_LEVEL", "logging.level"},
		{"REDIS_ADDR", "state.redis_addr"},
		{"VOCABULARY_ITEMS", "vocabulary.items"},
		{"HTTP_PORT", "server.port"},
		{"nats_url", "queue.url"},
		{"HOME", ""},
		{"PATH", ""},
		{"RANDOM_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("no config file exists", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if got := findConfigFile(); got != "" {
			t.Errorf("findConfigFile() = %q, want empty", got)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if err := os.WriteFile("config.yaml", []byte("queue:\n  url: nats://x:4222\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Remove("config.yaml") })

		if got := findConfigFile(); got != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", got)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(customPath, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv(ConfigPathEnvVar, customPath)

		if got := findConfigFile(); got != customPath {
			t.Errorf("findConfigFile() = %q, want %q", got, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		if got := findConfigFile(); got != "" {
			t.Errorf("findConfigFile() = %q, want empty", got)
		}
	})
}

func TestLoadEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	setRequiredEnv(t)
	t.Setenv("NATS_URL", "nats://queue.local:4222")
	t.Setenv("SAVE_BUCKET", "cart-captures")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("SCORE_THRESHOLD", "0.7")
	t.Setenv("NATS_PULL_WAIT", "30s")
	t.Setenv("VOCABULARY_ITEMS", "onion, tomato,beef")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Queue.URL != "nats://queue.local:4222" {
		t.Errorf("Queue.URL = %q", cfg.Queue.URL)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.Bucket != "cart-captures" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Detection.Threshold != 0.7 {
		t.Errorf("Detection.Threshold = %v, want 0.7", cfg.Detection.Threshold)
	}
	if cfg.Queue.PullWait != 30*time.Second {
		t.Errorf("Queue.PullWait = %v, want 30s", cfg.Queue.PullWait)
	}
	if strings.Join(cfg.Vocabulary.Items, ",") != "onion,tomato,beef" {
		t.Errorf("Vocabulary.Items = %v", cfg.Vocabulary.Items)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Inference.Project != "cart-project" {
		t.Errorf("Inference.Project = %q", cfg.Inference.Project)
	}
}

const testConfigYAML = `
queue:
  url: nats://file.local:4222
  durable_name: cart-file
storage:
  backend: s3
  bucket: file-bucket
  region: eu-west-1
inference:
  endpoint: https://file.example.com
  project: file-project
recommend:
  mode: next_item
  max_contents: 3
display:
  base_url: https://dash.example.com
vocabulary:
  labels:
    "1": onion
    "2": tomato
  items: [onion, tomato]
logging:
  level: warn
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, testConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Queue.URL != "nats://file.local:4222" {
		t.Errorf("Queue.URL = %q", cfg.Queue.URL)
	}
	if cfg.Queue.DurableName != "cart-file" {
		t.Errorf("Queue.DurableName = %q", cfg.Queue.DurableName)
	}
	if cfg.Queue.StreamName != "CAPTURES" {
		t.Errorf("Queue.StreamName = %q, default should survive", cfg.Queue.StreamName)
	}
	if cfg.Storage.Region != "eu-west-1" {
		t.Errorf("Storage.Region = %q", cfg.Storage.Region)
	}
	if cfg.Recommend.Mode != "next_item" || cfg.Recommend.MaxContents != 3 {
		t.Errorf("Recommend = %+v", cfg.Recommend)
	}
	if got := cfg.RecommendConfig().DisplayBaseURL; got != "https://dash.example.com" {
		t.Errorf("RecommendConfig().DisplayBaseURL = %q", got)
	}

	table, err := cfg.Vocabulary.Table()
	if err != nil {
		t.Fatalf("Vocabulary.Table() error = %v", err)
	}
	if table.Size() != 2 {
		t.Errorf("table.Size() = %d, want 2", table.Size())
	}
	if got := table.Lookup(2).Name; got != "tomato" {
		t.Errorf("Lookup(2) = %q, want tomato", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	t.Setenv("NATS_URL", "nats://env.local:4222")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Queue.URL != "nats://env.local:4222" {
		t.Errorf("Queue.URL = %q, env should override file", cfg.Queue.URL)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, env should override file", cfg.Logging.Level)
	}
	if cfg.Storage.Bucket != "file-bucket" {
		t.Errorf("Storage.Bucket = %q, file value should survive", cfg.Storage.Bucket)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	setRequiredEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}
}

func TestLoadRequiresInference(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("INFERENCE_ENDPOINT", "")
	t.Setenv("PROJECT", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() without an inference endpoint should fail")
	}
	if !strings.Contains(err.Error(), "Inference.Endpoint is required") {
		t.Errorf("error = %v, want Inference.Endpoint is required", err)
	}
}
