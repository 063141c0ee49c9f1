// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package archive persists capture images and reads reference data from object
storage.

Every capture is written twice per kind: once under a timestamped path for
history and once to a fixed "latest" path that is overwritten on every event.

	original/<device>/2006-01-02/15/0405.jpg
	original/<device>/latest.jpg
	annotated/<device>/2006-01-02/15/0405.jpg
	annotated/<device>/latest.jpg

Backends:
  - gcs: Google Cloud Storage, Application Default Credentials
  - s3: AWS S3 or any S3-compatible endpoint (MinIO, LocalStack)
  - local: a directory on disk, for development and tests
*/
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
	"github.com/tomtom215/cartsense/internal/models"
)

// Kind selects the top-level archive folder.
type Kind string

const (
	KindOriginal  Kind = "original"
	KindAnnotated Kind = "annotated"
)

// JPEGContentType is the content type of every archived capture.
const JPEGContentType = "image/jpeg"

var (
	// ErrObjectNotFound is returned by Get when the object does not exist.
	ErrObjectNotFound = errors.New("archive: object not found")

	// ErrInvalidDeviceID rejects device ids that would escape their folder.
	ErrInvalidDeviceID = errors.New("archive: invalid device id")
)

// Store is a minimal object store.
type Store interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) error
	Get(ctx context.Context, objectPath string) ([]byte, error)
	Close() error
}

// TimestampedPath returns <kind>/<device>/YYYY-MM-DD/HH/MMSS.jpg in UTC.
func TimestampedPath(kind Kind, deviceID string, at time.Time) string {
	at = at.UTC()
	return path.Join(string(kind), deviceID, at.Format("2006-01-02"), at.Format("15"), at.Format("0405")+".jpg")
}

// LatestPath returns <kind>/<device>/latest.jpg.
func LatestPath(kind Kind, deviceID string) string {
	return path.Join(string(kind), deviceID, "latest.jpg")
}

// Archiver writes capture images to a Store.
type Archiver struct {
	store Store
}

// NewArchiver wraps a store.
func NewArchiver(store Store) *Archiver {
	return &Archiver{store: store}
}

// Save writes data to the timestamped path and then overwrites latest.
func (a *Archiver) Save(ctx context.Context, kind Kind, deviceID string, at time.Time, data []byte) (err error) {
	defer func() { metrics.RecordArchiveWrite(string(kind), err) }()

	if !models.ValidDeviceID(deviceID) {
		return fmt.Errorf("%w %q", ErrInvalidDeviceID, deviceID)
	}
	stamped := TimestampedPath(kind, deviceID, at)
	if err := a.store.Put(ctx, stamped, data, JPEGContentType); err != nil {
		return fmt.Errorf("archive %s: %w", stamped, err)
	}
	latest := LatestPath(kind, deviceID)
	if err := a.store.Put(ctx, latest, data, JPEGContentType); err != nil {
		return fmt.Errorf("archive %s: %w", latest, err)
	}

	logging.Ctx(ctx).Debug().
		Str("kind", string(kind)).
		Str("path", stamped).
		Int("bytes", len(data)).
		Msg("Archived capture")
	return nil
}

// Location is a parsed object reference such as gs://bucket/key.
type Location struct {
	Backend string
	Bucket  string
	Key     string
}

// ParseLocation accepts gs://bucket/key, s3://bucket/key or a local path.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, errors.New("archive: empty location")
	}
	for scheme, backend := range map[string]string{"gs://": BackendGCS, "s3://": BackendS3} {
		if !strings.HasPrefix(raw, scheme) {
			continue
		}
		rest := strings.TrimPrefix(raw, scheme)
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("archive: location %q needs bucket and key", raw)
		}
		return Location{Backend: backend, Bucket: bucket, Key: key}, nil
	}
	return Location{Backend: BackendLocal, Key: raw}, nil
}

func (l Location) String() string {
	switch l.Backend {
	case BackendGCS:
		return "gs://" + l.Bucket + "/" + l.Key
	case BackendS3:
		return "s3://" + l.Bucket + "/" + l.Key
	default:
		return l.Key
	}
}
