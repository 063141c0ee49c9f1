// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package vocab maps detection label ids to item names and encodes item sets
// for the next-item model.
//
// A Table holds three pieces of reference data:
//   - the detection label table (id to name), where unmapped ids resolve to
//     the explicit Unknown label instead of failing
//   - a denylist of names that are detected but never treated as cart items
//   - the ordered item vocabulary used for one-hot encoding, where output
//     index 0 of the model is the "end" class and index i+1 is item i
package vocab

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/cartsense/internal/models"
)

// EndItem is the sentinel returned when the model predicts the cart is done.
const EndItem = "end"

// ErrInvalidTable is returned when a table definition is inconsistent.
var ErrInvalidTable = errors.New("invalid vocabulary")

// Label is one entry of the detection label table.
type Label struct {
	ID   int
	Name string
}

// Unknown is returned for label ids absent from the table.
var Unknown = Label{ID: -1, Name: ""}

// Known reports whether the label came from the table.
func (l Label) Known() bool {
	return l.Name != ""
}

// Definition is the serialized form of a Table, used by config and YAML files.
type Definition struct {
	Labels   map[int]string `koanf:"labels" yaml:"labels"`
	Items    []string       `koanf:"items" yaml:"items"`
	Denylist []string       `koanf:"denylist" yaml:"denylist"`
}

// DefaultItems is the grocery vocabulary the bundled models were trained on.
var DefaultItems = []string{
	"onion", "tomato", "potato", "paprika", "eggplant",
	"beef", "pork", "chicken", "banana", "corn",
}

// DefaultDefinition maps detection ids 1..10 onto DefaultItems.
func DefaultDefinition() Definition {
	labels := make(map[int]string, len(DefaultItems))
	for i, name := range DefaultItems {
		labels[i+1] = name
	}
	items := make([]string, len(DefaultItems))
	copy(items, DefaultItems)
	return Definition{Labels: labels, Items: items}
}

// Table is an immutable, validated vocabulary.
type Table struct {
	labels   map[int]Label
	items    []string
	index    map[string]int
	denylist map[string]struct{}
}

// New builds a Table from a definition.
func New(def Definition) (*Table, error) {
	if len(def.Items) == 0 {
		return nil, fmt.Errorf("%w: item vocabulary is empty", ErrInvalidTable)
	}

	t := &Table{
		labels:   make(map[int]Label, len(def.Labels)),
		items:    make([]string, 0, len(def.Items)),
		index:    make(map[string]int, len(def.Items)),
		denylist: make(map[string]struct{}, len(def.Denylist)),
	}

	for i, name := range def.Items {
		if name == "" || name == EndItem {
			return nil, fmt.Errorf("%w: item %d has reserved name %q", ErrInvalidTable, i, name)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrInvalidTable, name)
		}
		t.index[name] = i
		t.items = append(t.items, name)
	}

	for id, name := range def.Labels {
		if name == "" {
			return nil, fmt.Errorf("%w: label %d has empty name", ErrInvalidTable, id)
		}
		t.labels[id] = Label{ID: id, Name: name}
	}

	for _, name := range def.Denylist {
		t.denylist[name] = struct{}{}
	}

	return t, nil
}

// Default returns the table built from DefaultDefinition.
func Default() *Table {
	t, err := New(DefaultDefinition())
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFile reads a YAML definition from path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	return New(def)
}

// Lookup returns the label for id, or Unknown.
func (t *Table) Lookup(id int) Label {
	if l, ok := t.labels[id]; ok {
		return l
	}
	return Unknown
}

// Denied reports whether name is on the denylist.
func (t *Table) Denied(name string) bool {
	_, ok := t.denylist[name]
	return ok
}

// Items returns a copy of the ordered item vocabulary.
func (t *Table) Items() []string {
	out := make([]string, len(t.items))
	copy(out, t.items)
	return out
}

// Size returns the number of items in the vocabulary.
func (t *Table) Size() int {
	return len(t.items)
}

// IndexOf returns the vocabulary position of name.
func (t *Table) IndexOf(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// OneHot encodes set over the item vocabulary. Names outside the
// vocabulary are ignored.
func (t *Table) OneHot(set models.ItemSet) []float64 {
	vec := make([]float64, len(t.items))
	for _, name := range set {
		if i, ok := t.index[name]; ok {
			vec[i] = 1
		}
	}
	return vec
}

// OutputSize is the length of a next-item score vector: the items plus "end".
func (t *Table) OutputSize() int {
	return len(t.items) + 1
}

// ItemAt decodes a model output index. Index 0 and out-of-range indices
// decode to EndItem.
func (t *Table) ItemAt(outputIndex int) string {
	if outputIndex <= 0 || outputIndex > len(t.items) {
		return EndItem
	}
	return t.items[outputIndex-1]
}

// OutputIndex returns the model output index for item name.
func (t *Table) OutputIndex(name string) (int, bool) {
	if name == EndItem {
		return 0, true
	}
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return i + 1, true
}

// LabelIDs returns the mapped detection ids in ascending order.
func (t *Table) LabelIDs() []int {
	ids := make([]int, 0, len(t.labels))
	for id := range t.labels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
