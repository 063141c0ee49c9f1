// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestParseSeasonAndPeriod(t *testing.T) {
	t.Parallel()

	for _, s := range Seasons() {
		got, err := ParseSeason(s.String())
		if err != nil || got != s {
			t.Errorf("ParseSeason(%q) = %v, %v", s.String(), got, err)
		}
	}
	for _, p := range Periods() {
		got, err := ParsePeriod(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePeriod(%q) = %v, %v", p.String(), got, err)
		}
	}

	if got, err := ParseSeason(" Winter "); err != nil || got != Winter {
		t.Errorf("ParseSeason(Winter) = %v, %v", got, err)
	}
	if _, err := ParseSeason("monsoon"); err == nil {
		t.Error("expected error for unknown season")
	}
	if _, err := ParsePeriod("midnight"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestSettingJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{"season":"fall","period":"evening","recommend":{"label":"beef"}}`)
	var s Setting
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Season != Fall || s.Period != Evening {
		t.Errorf("got %v/%v, want fall/evening", s.Season, s.Period)
	}
	if s.Recommend == nil || s.Recommend.Label != "beef" {
		t.Fatalf("Recommend = %+v", s.Recommend)
	}
	if s.Recommend.EffectiveAmount() != DefaultBoostAmount {
		t.Errorf("EffectiveAmount() = %v, want %v", s.Recommend.EffectiveAmount(), DefaultBoostAmount)
	}

	if err := json.Unmarshal([]byte(`{"season":"monsoon"}`), &s); err == nil {
		t.Error("expected error for unknown season")
	}
}

func TestDefaultSetting(t *testing.T) {
	t.Parallel()

	s := DefaultSetting()
	if s.Season != Spring || s.Period != Morning || s.Recommend != nil {
		t.Errorf("DefaultSetting() = %+v", s)
	}
}

func TestRecipeMissing(t *testing.T) {
	t.Parallel()

	r := Recipe{RequiredItems: []string{"tomato", "onion", "beef", "potato"}}
	got := r.Missing(NewItemSet("onion", "tomato"))
	want := []string{"beef", "potato"}
	if len(got) != len(want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Missing()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
