// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package registry keeps each edge device's configuration blob pointed at
// the dashboard URL the pipeline computed for it.
//
// The blob is opaque JSON owned by the device fleet. Only the dashboardUrl
// field is rewritten; every other field is preserved byte-for-byte. A write
// happens only when the stored URL differs from the computed one, so
// replaying the same capture never produces a second write.
package registry

import (
	"context"
	"errors"
)

// Config is one device's configuration blob and the revision it was read at.
type Config struct {
	Data     []byte
	Revision uint64
}

// Registry reads and writes device configuration blobs.
type Registry interface {
	// ReadConfig returns the device blob. A device with no stored blob
	// reads as "{}" at revision 0.
	ReadConfig(ctx context.Context, deviceID string) (Config, error)

	// WriteConfig stores cfg.Data if the stored revision still equals
	// cfg.Revision, and returns ErrConflict otherwise.
	WriteConfig(ctx context.Context, deviceID string, cfg Config) error
}

var (
	// ErrConflict is returned when the blob changed since it was read.
	ErrConflict = errors.New("device config changed concurrently")

	// ErrInvalidConfig is returned when a stored blob is not a JSON object.
	ErrInvalidConfig = errors.New("device config is not a JSON object")

	// ErrEmptyDeviceID is returned for blank device ids.
	ErrEmptyDeviceID = errors.New("device id cannot be empty")
)

// DashboardURLField is the only field the synchronizer rewrites.
const DashboardURLField = "dashboardUrl"

// emptyConfig is what an unregistered device reads as.
var emptyConfig = []byte("{}")
