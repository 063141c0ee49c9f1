// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore implements Store using Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSConfig holds configuration for GCSStore.
type GCSConfig struct {
	Bucket string
	Prefix string // Optional key prefix
}

// NewGCSStore creates a GCS-backed store using Application Default Credentials.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs store: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads data, replacing any existing object.
func (s *GCSStore) Put(ctx context.Context, objectPath string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(s.prefix + objectPath).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close failed: %w", err)
	}
	return nil
}

// Get downloads an object.
func (s *GCSStore) Get(ctx context.Context, objectPath string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.prefix + objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, s.bucket, s.prefix+objectPath)
		}
		return nil, fmt.Errorf("gcs get failed for %s: %w", objectPath, err)
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
