// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package recommend

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cartsense/internal/catalog"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/vocab"
)

// Predictor scores the next item for an encoded history window.
type Predictor interface {
	PredictNext(ctx context.Context, window [][]float64, season models.Season, period models.Period) ([]float64, error)
}

// ErrRetriesExhausted is returned when every allowed prediction attempt
// timed out.
var ErrRetriesExhausted = errors.New("recommend: prediction retries exhausted")

// Engine produces recommendations. It is safe for concurrent use.
type Engine struct {
	predictor Predictor
	table     *vocab.Table
	catalog   *catalog.Catalog
	cfg       Config
	log       *logging.PipelineLogger
}

// NewEngine creates an engine. A nil predictor disables next-item
// prediction; every pass then behaves as if the model predicted "end".
func NewEngine(predictor Predictor, table *vocab.Table, cat *catalog.Catalog, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommend config: %w", err)
	}
	if table == nil {
		table = vocab.Default()
	}
	if cat == nil {
		cat = catalog.New(nil)
	}
	return &Engine{
		predictor: predictor,
		table:     table,
		catalog:   cat,
		cfg:       cfg,
		log:       logging.NewPipelineLogger("recommend"),
	}, nil
}

// Recommend resolves display contents for current. history must already end
// with current. An empty cart yields the welcome placeholder without calling
// the model.
func (e *Engine) Recommend(ctx context.Context, deviceID string, current models.ItemSet, history models.CartHistory, setting models.Setting) (models.RecommendationResult, error) {
	if current.Empty() {
		return e.result("", []models.ContentRef{models.WelcomeContent()}), nil
	}

	hint, err := e.PredictNext(ctx, history, setting)
	if err != nil {
		return models.RecommendationResult{}, err
	}

	if e.cfg.Mode == ModeNextItem && hint != vocab.EndItem {
		return e.result(hint, []models.ContentRef{{Title: hint, Key: hint, MissingItems: []string{hint}}}), nil
	}

	matched, tier := Resolve(e.catalog.Recipes(), current, hint)
	logging.Ctx(ctx).Debug().
		Str("device", deviceID).
		Str("next_item", hint).
		Int("tier", int(tier)).
		Int("matches", len(matched)).
		Msg("Resolved recipes")
	return e.result(hint, Contents(matched, current, e.cfg.MaxContents)), nil
}

func (e *Engine) result(hint string, contents []models.ContentRef) models.RecommendationResult {
	return models.RecommendationResult{
		DisplayRef:   DisplayRef(e.cfg.DisplayBaseURL, contents),
		NextItemHint: hint,
		Contents:     contents,
	}
}

// PredictNext returns the predicted next item, or "end". Timeouts are
// retried per the config; an absent prediction decodes to "end".
func (e *Engine) PredictNext(ctx context.Context, history models.CartHistory, setting models.Setting) (string, error) {
	if e.predictor == nil {
		return vocab.EndItem, nil
	}

	window := history.Window(WindowSize)
	encoded := make([][]float64, len(window))
	for i, set := range window {
		encoded[i] = e.table.OneHot(set)
	}

	scores, err := e.predictWithRetry(ctx, encoded, setting)
	if errors.Is(err, inference.ErrNoPrediction) {
		e.log.LogSkipped(ctx, "no next-item prediction: "+err.Error())
		return vocab.EndItem, nil
	}
	if err != nil {
		return "", err
	}

	if len(scores) != e.table.OutputSize() {
		logging.Ctx(ctx).Warn().
			Int("scores", len(scores)).
			Int("expected", e.table.OutputSize()).
			Msg("Score vector length does not match vocabulary")
	}
	e.applyBoost(scores, setting.Recommend)
	return e.table.ItemAt(argmax(scores)), nil
}

func (e *Engine) predictWithRetry(ctx context.Context, window [][]float64, setting models.Setting) ([]float64, error) {
	limit := rate.Inf
	if e.cfg.PredictRetryInterval > 0 {
		limit = rate.Every(e.cfg.PredictRetryInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("predict next item: %w", err)
		}

		scores, err := e.predictor.PredictNext(ctx, window, setting.Season, setting.Period)
		switch {
		case err == nil:
			metrics.RecordPredictAttempt("ok")
			return scores, nil
		case errors.Is(err, inference.ErrPredictTimeout):
			metrics.RecordPredictAttempt("timeout")
			e.log.LogPredictRetry(ctx, attempt, err)
			if e.cfg.PredictMaxAttempts > 0 && attempt >= e.cfg.PredictMaxAttempts {
				return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, err)
			}
		case errors.Is(err, inference.ErrNoPrediction):
			metrics.RecordPredictAttempt("no_prediction")
			return nil, err
		default:
			metrics.RecordPredictAttempt("error")
			return nil, fmt.Errorf("predict next item: %w", err)
		}
	}
}

func (e *Engine) applyBoost(scores []float64, boost *models.RecommendBoost) {
	if boost == nil || boost.Label == "" {
		return
	}
	i, ok := e.table.OutputIndex(boost.Label)
	if !ok || i >= len(scores) {
		return
	}
	scores[i] += boost.EffectiveAmount()
}

// argmax returns the index of the highest score; ties go to the lowest
// index. An empty slice returns 0.
func argmax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
