// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package detection

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/vocab"
)

func det(id int, score float64) models.Detection {
	return models.Detection{LabelID: id, Score: score}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	table, err := vocab.New(vocab.Definition{
		Labels:   map[int]string{1: "onion", 2: "tomato", 6: "beef", 50: "hand"},
		Items:    []string{"onion", "tomato", "beef"},
		Denylist: []string{"hand"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		dets      []models.Detection
		threshold float64
		want      models.ItemSet
	}{
		{"empty", nil, 0.5, models.ItemSet{}},
		{"sorted and deduped", []models.Detection{det(2, 0.9), det(1, 0.8), det(2, 0.7)}, 0.5, models.ItemSet{"onion", "tomato"}},
		{"cutoff", []models.Detection{det(1, 0.9), det(2, 0.4)}, 0.5, models.ItemSet{"onion"}},
		{"short-circuit ignores later high scores", []models.Detection{det(1, 0.9), det(2, 0.3), det(6, 0.95)}, 0.5, models.ItemSet{"onion"}},
		{"unknown id dropped", []models.Detection{det(99, 0.9), det(6, 0.8)}, 0.5, models.ItemSet{"beef"}},
		{"denylisted dropped", []models.Detection{det(50, 0.99), det(1, 0.9)}, 0.5, models.ItemSet{"onion"}},
		{"threshold inclusive", []models.Detection{det(1, 0.5)}, 0.5, models.ItemSet{"onion"}},
		{"all below", []models.Detection{det(1, 0.1)}, 0.5, models.ItemSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.dets, tt.threshold, table)
			if !got.Equal(tt.want) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewNormalizer(t *testing.T) {
	t.Parallel()

	if _, err := NewNormalizer(1.5, nil); err == nil {
		t.Error("expected error for threshold > 1")
	}
	if _, err := NewNormalizer(-0.1, nil); err == nil {
		t.Error("expected error for threshold < 0")
	}

	n, err := NewNormalizer(0.6, nil)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}
	retained := n.Retained([]models.Detection{det(1, 0.9), det(99, 0.8), det(6, 0.7), det(2, 0.2)})
	if len(retained) != 2 || retained[0].Name != "onion" || retained[1].Name != "beef" {
		t.Errorf("Retained() = %+v", retained)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	table := vocab.Default()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalizing twice yields equal sets", prop.ForAll(
		func(ids []int) bool {
			dets := make([]models.Detection, 0, len(ids))
			for _, id := range ids {
				dets = append(dets, det(id, 0.9))
			}
			first := Normalize(dets, 0.5, table)
			second := Normalize(dets, 0.5, table)
			return first.Equal(second) && models.NewItemSet(first...).Equal(first)
		},
		gen.SliceOf(gen.IntRange(0, 12)),
	))

	properties.TestingRun(t)
}
