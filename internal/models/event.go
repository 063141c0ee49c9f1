// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package models

import (
	"strings"
	"time"
)

// CaptureEvent is one camera frame pulled from the capture queue.
type CaptureEvent struct {
	// DeviceID identifies the cart camera that took the frame.
	DeviceID string

	// CapturedAt is the queue publish time of the frame.
	CapturedAt time.Time

	// Image holds the encoded JPEG bytes.
	Image []byte

	// MessageID is the stream identity used to recognize redeliveries.
	MessageID string
}

// ValidDeviceID reports whether id can name a cart in storage paths and
// queue subjects: non-empty, no path separators, no ".." and no whitespace.
func ValidDeviceID(id string) bool {
	if id == "" || id == "." || strings.Contains(id, "..") {
		return false
	}
	return !strings.ContainsAny(id, "/\\ \t\r\n")
}

// BoundingBox is a detection box with coordinates normalized to [0,1].
type BoundingBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Detection is one scored label returned by the detection model.
type Detection struct {
	LabelID int         `json:"label_id"`
	Score   float64     `json:"score"`
	Box     BoundingBox `json:"box"`
}
