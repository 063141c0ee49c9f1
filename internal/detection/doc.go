// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package detection turns raw object-detection output into a canonical cart
// item set.
//
// Normalization Flow:
//
//	[]Detection (score desc) -> threshold cutoff -> label lookup -> denylist -> ItemSet
//
// The detection model returns detections ordered by score, highest first.
// Normalization stops at the first detection below the threshold; later
// detections are never examined even if a malformed response would place a
// higher score after the cutoff.
//
// Unknown label ids and denylisted names are dropped silently. The result is
// deduplicated and sorted so two frames with the same physical contents
// always produce equal sets, which is what keeps the cart history free of
// no-op transitions.
package detection
