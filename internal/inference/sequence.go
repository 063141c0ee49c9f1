// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package inference

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartsense/internal/models"
)

type sequenceInstance struct {
	History [][]float64   `json:"history"`
	Season  models.Season `json:"season"`
	Period  models.Period `json:"period"`
}

// PredictNext runs the next-item model on a one-hot encoded history window.
// The returned scores are indexed by model output class; index 0 is "end".
func (c *Client) PredictNext(ctx context.Context, window [][]float64, season models.Season, period models.Period) ([]float64, error) {
	raw, err := c.predict(ctx, c.sequence, c.cfg.SequenceModel, sequenceInstance{
		History: window,
		Season:  season,
		Period:  period,
	})
	if err != nil {
		return nil, err
	}
	return parseScores(raw)
}

// parseScores accepts a bare score vector or an object with a scores field.
func parseScores(raw json.RawMessage) ([]float64, error) {
	var scores []float64
	if err := json.Unmarshal(raw, &scores); err == nil {
		if len(scores) == 0 {
			return nil, fmt.Errorf("%w: empty score vector", ErrNoPrediction)
		}
		return scores, nil
	}

	var wrapped struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: decode scores: %v", ErrNoPrediction, err)
	}
	if len(wrapped.Scores) == 0 {
		return nil, fmt.Errorf("%w: empty score vector", ErrNoPrediction)
	}
	return wrapped.Scores, nil
}
