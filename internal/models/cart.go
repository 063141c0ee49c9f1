// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package models

import (
	"sort"
	"strings"
)

// ItemSet is a canonical set of item names: deduplicated and sorted
// lexicographically. The zero value is the empty set.
type ItemSet []string

// NewItemSet builds a canonical ItemSet from arbitrary names.
// Empty names are dropped.
func NewItemSet(names ...string) ItemSet {
	seen := make(map[string]struct{}, len(names))
	set := make(ItemSet, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		set = append(set, n)
	}
	sort.Strings(set)
	return set
}

// Empty reports whether the set holds no items.
func (s ItemSet) Empty() bool {
	return len(s) == 0
}

// Equal reports whether two canonical sets hold the same items.
func (s ItemSet) Equal(other ItemSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Contains reports whether name is in the set.
func (s ItemSet) Contains(name string) bool {
	i := sort.SearchStrings(s, name)
	return i < len(s) && s[i] == name
}

// With returns a new set containing s plus name.
func (s ItemSet) With(name string) ItemSet {
	if name == "" || s.Contains(name) {
		return s.Clone()
	}
	return NewItemSet(append(s.Clone(), name)...)
}

// Union returns a new set holding every item of s and other.
func (s ItemSet) Union(other ItemSet) ItemSet {
	all := make([]string, 0, len(s)+len(other))
	all = append(all, s...)
	all = append(all, other...)
	return NewItemSet(all...)
}

// Clone returns an independent copy of the set.
func (s ItemSet) Clone() ItemSet {
	out := make(ItemSet, len(s))
	copy(out, s)
	return out
}

// String renders the set as "[a b c]".
func (s ItemSet) String() string {
	return "[" + strings.Join(s, " ") + "]"
}

// CartHistory is the ordered sequence of ItemSets observed for one device,
// oldest first.
type CartHistory []ItemSet

// NewCartHistory returns the sentinel history for a fresh device: one empty set.
func NewCartHistory() CartHistory {
	return CartHistory{ItemSet{}}
}

// Last returns the most recent ItemSet. An empty history behaves like the
// sentinel and yields the empty set.
func (h CartHistory) Last() ItemSet {
	if len(h) == 0 {
		return ItemSet{}
	}
	return h[len(h)-1]
}

// Append returns the history with set added at the tail. When set equals the
// current tail the history is returned unchanged and appended is false.
func (h CartHistory) Append(set ItemSet) (next CartHistory, appended bool) {
	if len(h) == 0 {
		h = NewCartHistory()
	}
	if h.Last().Equal(set) {
		return h, false
	}
	next = make(CartHistory, len(h), len(h)+1)
	copy(next, h)
	return append(next, set.Clone()), true
}

// Window returns exactly n ItemSets: the n most recent entries in order,
// left-padded with empty sets when the history is shorter than n.
func (h CartHistory) Window(n int) []ItemSet {
	if n <= 0 {
		return nil
	}
	window := make([]ItemSet, n)
	for i := range window {
		window[i] = ItemSet{}
	}
	start := len(h) - n
	for i := 0; i < n; i++ {
		src := start + i
		if src < 0 {
			continue
		}
		window[i] = h[src]
	}
	return window
}

// Valid reports whether the history satisfies its invariants: non-empty and
// free of consecutive duplicates.
func (h CartHistory) Valid() bool {
	if len(h) == 0 {
		return false
	}
	for i := 1; i < len(h); i++ {
		if h[i].Equal(h[i-1]) {
			return false
		}
	}
	return true
}
