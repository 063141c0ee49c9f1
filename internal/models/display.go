// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package models

import "time"

// DeviceDisplayState is the per-device projection read by dashboards.
//
// Synced is false while DisplayRef has been computed but the registry write
// has not yet succeeded. The next delivery for the device retries the sync.
type DeviceDisplayState struct {
	DeviceID       string       `json:"deviceId"`
	LastKnownItems ItemSet      `json:"objects"`
	Recommendation []ContentRef `json:"recommends"`
	DisplayRef     string       `json:"displayRef"`
	NextItemHint   string       `json:"nextItem,omitempty"`
	Synced         bool         `json:"synced"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
