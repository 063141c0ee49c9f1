// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package recommend

import (
	"fmt"
	"time"
)

// Modes.
const (
	// ModeRecipe shows matched recipes; the predicted item only narrows tier 1.
	ModeRecipe = "recipe"

	// ModeNextItem shows the predicted item itself, falling back to recipes
	// when the model predicts "end".
	ModeNextItem = "next_item"
)

// WindowSize is how many history entries are fed to the sequence model.
const WindowSize = 4

// Config controls the engine.
type Config struct {
	Mode string `koanf:"mode" validate:"oneof=recipe next_item"`

	// MaxContents caps the displayed recipes. Zero means no cap.
	MaxContents int `koanf:"max_contents" validate:"min=0"`

	// PredictMaxAttempts caps timed-out prediction attempts. Zero retries
	// until the context ends.
	PredictMaxAttempts int `koanf:"predict_max_attempts" validate:"min=0"`

	// PredictRetryInterval spaces retries. Zero retries immediately.
	PredictRetryInterval time.Duration `koanf:"predict_retry_interval" validate:"min=0"`

	// DisplayBaseURL prefixes every display reference.
	DisplayBaseURL string `koanf:"-"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeRecipe,
		MaxContents: 5,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeRecipe, ModeNextItem:
	default:
		return fmt.Errorf("unknown recommend mode %q", c.Mode)
	}
	if c.MaxContents < 0 {
		return fmt.Errorf("max_contents must be >= 0, got %d", c.MaxContents)
	}
	if c.PredictMaxAttempts < 0 {
		return fmt.Errorf("predict_max_attempts must be >= 0, got %d", c.PredictMaxAttempts)
	}
	if c.PredictRetryInterval < 0 {
		return fmt.Errorf("predict_retry_interval must be >= 0, got %s", c.PredictRetryInterval)
	}
	return nil
}
