// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/vocab"
)

const tupleCatalog = `
- ["1", Curry, curry, [onion, potato, beef, onion], winter, evening]
- [2, Tomato salad, tomato_salad, [tomato, onion], summer, noon]
`

func TestParse_Tuple(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(tupleCatalog), vocab.Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []models.Recipe{
		{ID: "1", Name: "Curry", RawLabel: "curry", RequiredItems: []string{"onion", "potato", "beef"}, Season: models.Winter, Period: models.Evening},
		{ID: "2", Name: "Tomato salad", RawLabel: "tomato_salad", RequiredItems: []string{"tomato", "onion"}, Season: models.Summer, Period: models.Noon},
	}
	if !reflect.DeepEqual(c.Recipes(), want) {
		t.Errorf("Recipes() = %+v, want %+v", c.Recipes(), want)
	}
}

func TestParse_Mapping(t *testing.T) {
	t.Parallel()

	doc := `
recipes:
  - id: a
    title: Banana corn bowl
    key: bowl
    items: [banana, corn]
    season: Fall
    period: morning
  - id: b
    name: Pork stew
    key: stew
    items: [pork, potato]
    season: winter
    period: evening
`
	c, err := Parse([]byte(doc), vocab.Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if got := c.Recipes()[0]; got.Name != "Banana corn bowl" || got.Season != models.Fall {
		t.Errorf("first recipe = %+v", got)
	}
	if got := c.Recipes()[1]; got.Name != "Pork stew" || got.RawLabel != "stew" {
		t.Errorf("second recipe = %+v", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"short tuple", `- [1, Curry, curry, [onion]]`},
		{"bad season", `- [1, Curry, curry, [onion], monsoon, noon]`},
		{"bad period", `- [1, Curry, curry, [onion], winter, midnight]`},
		{"unknown item", `- [1, Curry, curry, [rice], winter, noon]`},
		{"no items", `- [1, Curry, curry, [], winter, noon]`},
		{"empty key", `- [1, Curry, "", [onion], winter, noon]`},
		{"duplicate id", "- [1, A, a, [onion], winter, noon]\n- [1, B, b, [corn], winter, noon]"},
		{"scalar root", `curry`},
		{"mapping without recipes", `foo: bar`},
		{"scalar entry", `- curry`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), vocab.Default()); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("Parse() error = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	c, err := Parse(nil, nil)
	if err != nil || c.Len() != 0 {
		t.Errorf("Parse(nil) = %v, %v", c, err)
	}
}

func TestParse_NoVocabularyCheck(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(`- [1, Rice, rice, [rice], winter, noon]`), nil)
	if err != nil || c.Len() != 1 {
		t.Errorf("Parse() = %v, %v", c, err)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "recipes.yaml")
	if err := os.WriteFile(path, []byte(tupleCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(context.Background(), path, archive.Config{}, vocab.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.yaml"), archive.Config{}, nil); !errors.Is(err, archive.ErrObjectNotFound) {
		t.Errorf("missing Load() error = %v, want ErrObjectNotFound", err)
	}
}

func TestNew_CopiesItems(t *testing.T) {
	t.Parallel()

	items := []string{"onion"}
	c := New([]models.Recipe{{ID: "1", RequiredItems: items}})
	items[0] = "corn"
	if c.Recipes()[0].RequiredItems[0] != "onion" {
		t.Error("New() must copy required items")
	}
}
