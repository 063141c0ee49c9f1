// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package eventprocessor

import "errors"

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingDeviceID means a capture named no valid device in its header or subject.
	ErrMissingDeviceID = errors.New("capture has no device id")

	ErrNilPublisher    = errors.New("nil watermill publisher")
	ErrPublisherClosed = errors.New("publisher closed")
)
