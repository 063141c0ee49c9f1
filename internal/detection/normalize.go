// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package detection

import (
	"fmt"

	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/vocab"
)

// DefaultThreshold is the minimum score kept when none is configured.
const DefaultThreshold = 0.5

// Normalize maps detections to a canonical ItemSet.
//
// dets must be ordered by descending score. Iteration stops at the first
// score below threshold.
func Normalize(dets []models.Detection, threshold float64, labels *vocab.Table) models.ItemSet {
	names := make([]string, 0, len(dets))
	for _, d := range dets {
		if d.Score < threshold {
			break
		}
		label := labels.Lookup(d.LabelID)
		if !label.Known() || labels.Denied(label.Name) {
			continue
		}
		names = append(names, label.Name)
	}
	return models.NewItemSet(names...)
}

// Normalizer binds a threshold and label table.
type Normalizer struct {
	threshold float64
	labels    *vocab.Table
}

// NewNormalizer creates a Normalizer. threshold must be within [0,1].
func NewNormalizer(threshold float64, labels *vocab.Table) (*Normalizer, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("detection threshold %v out of range [0,1]", threshold)
	}
	if labels == nil {
		labels = vocab.Default()
	}
	return &Normalizer{threshold: threshold, labels: labels}, nil
}

// Normalize applies the bound threshold and table.
func (n *Normalizer) Normalize(dets []models.Detection) models.ItemSet {
	return Normalize(dets, n.threshold, n.labels)
}

// Threshold returns the bound threshold.
func (n *Normalizer) Threshold() float64 {
	return n.threshold
}

// Retained returns the detections that pass the threshold cutoff and map to
// known, allowed labels, in input order. Used to draw annotation boxes.
func (n *Normalizer) Retained(dets []models.Detection) []Labeled {
	out := make([]Labeled, 0, len(dets))
	for _, d := range dets {
		if d.Score < n.threshold {
			break
		}
		label := n.labels.Lookup(d.LabelID)
		if !label.Known() || n.labels.Denied(label.Name) {
			continue
		}
		out = append(out, Labeled{Detection: d, Name: label.Name})
	}
	return out
}

// Labeled is a retained detection with its resolved item name.
type Labeled struct {
	models.Detection
	Name string
}
