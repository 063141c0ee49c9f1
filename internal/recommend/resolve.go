// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package recommend

import (
	"net/url"
	"strings"

	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/vocab"
)

// Tier identifies which resolution rule produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierWithKeyItem
	TierCartInRecipe
	TierRecipeInCart
)

// Resolve matches recipes against current and returns the first non-empty
// tier in catalog order. keyItem is ignored when empty or "end".
func Resolve(recipes []models.Recipe, current models.ItemSet, keyItem string) ([]models.Recipe, Tier) {
	if keyItem != "" && keyItem != vocab.EndItem {
		withKey := current.With(keyItem)
		if m := match(recipes, func(r models.Recipe) bool { return subsetOf(withKey, r.RequiredItems) }); len(m) > 0 {
			return m, TierWithKeyItem
		}
	}
	if m := match(recipes, func(r models.Recipe) bool { return subsetOf(current, r.RequiredItems) }); len(m) > 0 {
		return m, TierCartInRecipe
	}
	if m := match(recipes, func(r models.Recipe) bool { return allIn(r.RequiredItems, current) }); len(m) > 0 {
		return m, TierRecipeInCart
	}
	return nil, TierNone
}

func match(recipes []models.Recipe, pred func(models.Recipe) bool) []models.Recipe {
	var out []models.Recipe
	for _, r := range recipes {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// subsetOf reports whether every element of set is in items.
func subsetOf(set models.ItemSet, items []string) bool {
	for _, s := range set {
		found := false
		for _, item := range items {
			if item == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func allIn(items []string, set models.ItemSet) bool {
	for _, item := range items {
		if !set.Contains(item) {
			return false
		}
	}
	return true
}

// Contents converts matched recipes to display entries, capped at limit
// (zero for no cap). No recipes yields the welcome placeholder.
func Contents(recipes []models.Recipe, current models.ItemSet, limit int) []models.ContentRef {
	if len(recipes) == 0 {
		return []models.ContentRef{models.WelcomeContent()}
	}
	if limit > 0 && len(recipes) > limit {
		recipes = recipes[:limit]
	}
	out := make([]models.ContentRef, len(recipes))
	for i, r := range recipes {
		out[i] = models.ContentRef{Title: r.Name, Key: r.RawLabel, MissingItems: r.Missing(current)}
	}
	return out
}

// DisplayRef encodes contents as a display URL under baseURL.
func DisplayRef(baseURL string, contents []models.ContentRef) string {
	keys := make([]string, len(contents))
	for i, c := range contents {
		keys[i] = c.Key
	}
	q := url.Values{"contents": keys}
	return strings.TrimRight(baseURL, "/") + "/display?" + q.Encode()
}
