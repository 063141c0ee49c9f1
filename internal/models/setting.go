// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package models

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Season is the seasonal context fed to the next-item model.
type Season int

const (
	Spring Season = iota
	Summer
	Fall
	Winter
)

var seasonNames = [...]string{"spring", "summer", "fall", "winter"}

// Seasons lists every season in model index order.
func Seasons() []Season {
	return []Season{Spring, Summer, Fall, Winter}
}

func (s Season) String() string {
	if s < 0 || int(s) >= len(seasonNames) {
		return fmt.Sprintf("season(%d)", int(s))
	}
	return seasonNames[s]
}

// ParseSeason parses a season name, case-insensitively.
func ParseSeason(name string) (Season, error) {
	for i, n := range seasonNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Season(i), nil
		}
	}
	return Spring, fmt.Errorf("unknown season %q", name)
}

// MarshalJSON encodes the season as its name.
func (s Season) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a season name.
func (s *Season) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeason(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Period is the time-of-day context fed to the next-item model.
type Period int

const (
	Morning Period = iota
	Noon
	Evening
)

var periodNames = [...]string{"morning", "noon", "evening"}

// Periods lists every period in model index order.
func Periods() []Period {
	return []Period{Morning, Noon, Evening}
}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return fmt.Sprintf("period(%d)", int(p))
	}
	return periodNames[p]
}

// ParsePeriod parses a period name, case-insensitively.
func ParsePeriod(name string) (Period, error) {
	for i, n := range periodNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Period(i), nil
		}
	}
	return Morning, fmt.Errorf("unknown period %q", name)
}

// MarshalJSON encodes the period as its name.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a period name.
func (p *Period) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParsePeriod(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// DefaultBoostAmount is added to a promoted item's score when a boost
// omits its amount.
const DefaultBoostAmount = 0.2

// RecommendBoost promotes one item in next-item prediction.
type RecommendBoost struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount,omitempty"`
}

// EffectiveAmount returns Amount, or DefaultBoostAmount when unset.
func (b RecommendBoost) EffectiveAmount() float64 {
	if b.Amount == 0 {
		return DefaultBoostAmount
	}
	return b.Amount
}

// Setting is the singleton operator context applied to every device.
type Setting struct {
	Season    Season          `json:"season"`
	Period    Period          `json:"period"`
	Recommend *RecommendBoost `json:"recommend,omitempty"`
}

// DefaultSetting returns the setting used when none has been stored.
func DefaultSetting() Setting {
	return Setting{Season: Spring, Period: Morning}
}
