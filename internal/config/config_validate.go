// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/cartsense/internal/archive"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. It caches struct metadata, so
// one instance serves every call.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags first, then the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validateTags(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateQueue,
		c.validateStorage,
		c.validateState,
		c.validateRegistry,
		c.Recommend.Validate,
	}
	for _, fn := range validators {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// validateTags runs validator/v10 and flattens the first failures into one message.
func validateTags(c *Config) error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// fieldMessage renders one failure using the dotted struct path, e.g.
// "Detection.Threshold must be <= 1".
func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func (c *Config) validateQueue() error {
	if c.Queue.EmbeddedServer && c.Queue.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	return c.Queue.ConsumerConfig().Validate()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case archive.BackendGCS, archive.BackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("SAVE_BUCKET is required for the %s storage backend", c.Storage.Backend)
		}
	case archive.BackendLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the local storage backend")
		}
	}
	return nil
}

func (c *Config) validateState() error {
	switch c.State.Backend {
	case "badger":
		if c.State.Path == "" {
			return fmt.Errorf("STATE_PATH is required for the badger state backend")
		}
	case "redis":
		if c.State.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis state backend")
		}
	}
	return nil
}

func (c *Config) validateRegistry() error {
	if c.Registry.Backend == "nats" && c.Registry.Bucket == "" {
		return fmt.Errorf("REGISTRY_BUCKET is required for the nats registry backend")
	}
	return nil
}
