// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package archive

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendGCS   = "gcs"
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend string `koanf:"backend" validate:"oneof=gcs s3 local"`
	Bucket  string `koanf:"bucket"`
	Prefix  string `koanf:"prefix"`

	// S3 only.
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`

	// Local only.
	Dir string `koanf:"dir"`
}

// Open creates the configured Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendGCS:
		return NewGCSStore(ctx, GCSConfig{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	case BackendS3:
		return NewS3Store(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
	case BackendLocal, "":
		return NewLocalStore(filepath.Join(cfg.Dir, cfg.Prefix))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ReadLocation fetches a single object named by a location string.
// S3 locations use the default AWS configuration plus region and endpoint
// from base.
func ReadLocation(ctx context.Context, raw string, base Config) ([]byte, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}

	var store Store
	key := loc.Key
	switch loc.Backend {
	case BackendGCS:
		store, err = NewGCSStore(ctx, GCSConfig{Bucket: loc.Bucket})
	case BackendS3:
		store, err = NewS3Store(ctx, S3Config{Bucket: loc.Bucket, Region: base.Region, Endpoint: base.Endpoint})
	default:
		store, err = NewLocalStore(filepath.Dir(loc.Key))
		key = filepath.Base(loc.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc, err)
	}
	defer func() { _ = store.Close() }()

	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return data, nil
}
