// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartsense/internal/models"
)

type imageInstance struct {
	Inputs struct {
		B64 string `json:"b64"`
	} `json:"inputs"`
}

type detectionPrediction struct {
	Scores  []float64   `json:"detection_scores"`
	Classes []float64   `json:"detection_classes"`
	Boxes   [][]float64 `json:"detection_boxes"`
}

// Detect runs the object-detection model on an encoded image. Detections
// keep the model's order, which is descending by score.
func (c *Client) Detect(ctx context.Context, image []byte) ([]models.Detection, error) {
	var instance imageInstance
	instance.Inputs.B64 = base64.StdEncoding.EncodeToString(image)

	raw, err := c.predict(ctx, c.detect, c.cfg.DetectModel, instance)
	if err != nil {
		return nil, err
	}
	return parseDetections(raw)
}

func parseDetections(raw json.RawMessage) ([]models.Detection, error) {
	var pred detectionPrediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("%w: decode detections: %v", ErrNoPrediction, err)
	}
	if pred.Scores == nil {
		return nil, fmt.Errorf("%w: detection_scores missing", ErrNoPrediction)
	}
	if len(pred.Classes) < len(pred.Scores) {
		return nil, fmt.Errorf("%w: %d classes for %d scores", ErrNoPrediction, len(pred.Classes), len(pred.Scores))
	}

	dets := make([]models.Detection, len(pred.Scores))
	for i, score := range pred.Scores {
		dets[i] = models.Detection{
			LabelID: int(math.Round(pred.Classes[i])),
			Score:   score,
		}
		// Boxes arrive as [ymin, xmin, ymax, xmax].
		if i < len(pred.Boxes) && len(pred.Boxes[i]) == 4 {
			b := pred.Boxes[i]
			dets[i].Box = models.BoundingBox{YMin: b[0], XMin: b[1], YMax: b[2], XMax: b[3]}
		}
	}
	return dets, nil
}
