// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package models defines data structures shared across the Cartsense pipeline.

Key Components:

  - CaptureEvent: One camera capture pulled from the queue
  - Detection: One scored label with a normalized bounding box
  - ItemSet: Canonical (deduplicated, sorted) set of item names
  - CartHistory: Per-device ordered sequence of ItemSets
  - Setting: Season/period context plus an optional score boost
  - Recipe: Catalog entry matched against cart contents
  - DeviceDisplayState: Projection persisted for dashboards

CartHistory Invariants:

  - A history is never empty. A fresh device starts with one empty ItemSet.
  - Consecutive entries are never equal. Append refuses no-op transitions.

Usage Example:

	items := models.NewItemSet("tomato", "onion", "onion")
	// items == ItemSet{"onion", "tomato"}

	history := models.NewCartHistory()
	history, appended := history.Append(items)

	window := history.Window(4)
	// window == [[], [], [], [onion tomato]]
*/
package models
