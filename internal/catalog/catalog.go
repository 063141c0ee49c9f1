// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package catalog loads the recipe catalog used by the recommendation engine.
//
// The catalog is a YAML sequence. Each entry is either the compact tuple
//
//	- [id, title, key, [items...], season, period]
//
// or a mapping with the same fields:
//
//	- id: "12"
//	  title: Curry
//	  key: curry
//	  items: [onion, potato, beef]
//	  season: winter
//	  period: evening
//
// A top-level mapping with a "recipes" key holding that sequence is also
// accepted. Catalog order is preserved and decides ordering among matches.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/vocab"
)

// ErrInvalidCatalog is returned for malformed catalog documents.
var ErrInvalidCatalog = errors.New("invalid recipe catalog")

// Catalog is an immutable, ordered list of recipes.
type Catalog struct {
	recipes []models.Recipe
}

// New builds a catalog from recipes, keeping their order.
func New(recipes []models.Recipe) *Catalog {
	out := make([]models.Recipe, len(recipes))
	for i, r := range recipes {
		r.RequiredItems = append([]string(nil), r.RequiredItems...)
		out[i] = r
	}
	return &Catalog{recipes: out}
}

// Recipes returns the recipes in catalog order. Callers must not modify
// the returned slice.
func (c *Catalog) Recipes() []models.Recipe {
	return c.recipes
}

// Len returns the number of recipes.
func (c *Catalog) Len() int {
	return len(c.recipes)
}

// Load reads and parses the catalog at location (gs://, s3:// or a local
// path). Items are checked against table when it is non-nil.
func Load(ctx context.Context, location string, storage archive.Config, table *vocab.Table) (*Catalog, error) {
	data, err := archive.ReadLocation(ctx, location, storage)
	if err != nil {
		return nil, fmt.Errorf("load recipe catalog: %w", err)
	}
	c, err := Parse(data, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	logging.Info().
		Str("location", location).
		Int("recipes", c.Len()).
		Msg("Loaded recipe catalog")
	return c, nil
}

// Parse decodes a catalog document.
func Parse(data []byte, table *vocab.Table) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if doc.Kind == 0 {
		return New(nil), nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind == yaml.MappingNode {
		root = recipesField(root)
		if root == nil {
			return nil, fmt.Errorf("%w: mapping without a recipes sequence", ErrInvalidCatalog)
		}
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected a sequence of recipes", ErrInvalidCatalog)
	}

	recipes := make([]models.Recipe, 0, len(root.Content))
	seen := make(map[string]struct{}, len(root.Content))
	for i, entry := range root.Content {
		r, err := decodeEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (line %d): %v", ErrInvalidCatalog, i, entry.Line, err)
		}
		if err := check(r, table); err != nil {
			return nil, fmt.Errorf("%w: recipe %q: %v", ErrInvalidCatalog, r.ID, err)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate recipe id %q", ErrInvalidCatalog, r.ID)
		}
		seen[r.ID] = struct{}{}
		recipes = append(recipes, r)
	}
	return &Catalog{recipes: recipes}, nil
}

func recipesField(m *yaml.Node) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == "recipes" && m.Content[i+1].Kind == yaml.SequenceNode {
			return m.Content[i+1]
		}
	}
	return nil
}

type recipeFields struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Name   string   `yaml:"name"`
	Key    string   `yaml:"key"`
	Items  []string `yaml:"items"`
	Season string   `yaml:"season"`
	Period string   `yaml:"period"`
}

func decodeEntry(n *yaml.Node) (models.Recipe, error) {
	var f recipeFields
	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) != 6 {
			return models.Recipe{}, fmt.Errorf("tuple has %d fields, want 6", len(n.Content))
		}
		for i, dst := range []*string{&f.ID, &f.Title, &f.Key} {
			if n.Content[i].Kind != yaml.ScalarNode {
				return models.Recipe{}, fmt.Errorf("field %d is not a scalar", i)
			}
			*dst = n.Content[i].Value
		}
		if err := n.Content[3].Decode(&f.Items); err != nil {
			return models.Recipe{}, fmt.Errorf("items: %w", err)
		}
		f.Season = n.Content[4].Value
		f.Period = n.Content[5].Value
	case yaml.MappingNode:
		if err := n.Decode(&f); err != nil {
			return models.Recipe{}, err
		}
		if f.Title == "" {
			f.Title = f.Name
		}
	default:
		return models.Recipe{}, errors.New("expected a tuple or a mapping")
	}

	season, err := models.ParseSeason(f.Season)
	if err != nil {
		return models.Recipe{}, err
	}
	period, err := models.ParsePeriod(f.Period)
	if err != nil {
		return models.Recipe{}, err
	}

	return models.Recipe{
		ID:            f.ID,
		Name:          f.Title,
		RawLabel:      f.Key,
		RequiredItems: uniq(f.Items),
		Season:        season,
		Period:        period,
	}, nil
}

func check(r models.Recipe, table *vocab.Table) error {
	if r.ID == "" {
		return errors.New("empty id")
	}
	if r.RawLabel == "" {
		return errors.New("empty key")
	}
	if len(r.RequiredItems) == 0 {
		return errors.New("no required items")
	}
	if table == nil {
		return nil
	}
	for _, item := range r.RequiredItems {
		if _, ok := table.IndexOf(item); !ok {
			return fmt.Errorf("item %q is not in the vocabulary", item)
		}
	}
	return nil
}

// uniq drops duplicates and empty names, keeping first occurrence order.
func uniq(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
