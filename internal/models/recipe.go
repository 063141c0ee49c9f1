// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package models

// Recipe is one catalog entry. RawLabel is the image key shown on the
// dashboard. RequiredItems keeps catalog order, which is the order missing
// items are reported in.
type Recipe struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	RawLabel      string   `json:"raw_label" yaml:"key"`
	RequiredItems []string `json:"required_items" yaml:"items"`
	Season        Season   `json:"season" yaml:"-"`
	Period        Period   `json:"period" yaml:"-"`
}

// Missing returns the required items absent from current, in required order.
func (r Recipe) Missing(current ItemSet) []string {
	missing := make([]string, 0, len(r.RequiredItems))
	for _, item := range r.RequiredItems {
		if !current.Contains(item) {
			missing = append(missing, item)
		}
	}
	return missing
}

// ContentRef is one entry rendered by the dashboard: a recipe, a next-item
// hint, or the welcome placeholder.
type ContentRef struct {
	Title        string   `json:"title"`
	Key          string   `json:"key"`
	MissingItems []string `json:"missingItems"`
}

// WelcomeKey is the content key of the welcome placeholder.
const WelcomeKey = "welcome"

// WelcomeContent returns the placeholder shown when nothing matches.
func WelcomeContent() ContentRef {
	return ContentRef{Title: "Welcome", Key: WelcomeKey, MissingItems: []string{}}
}

// RecommendationResult is the output of one recommendation pass.
type RecommendationResult struct {
	DisplayRef   string       `json:"display_ref"`
	NextItemHint string       `json:"next_item_hint,omitempty"`
	Contents     []ContentRef `json:"contents"`
}
