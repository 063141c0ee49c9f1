// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/cartstate"
	"github.com/tomtom215/cartsense/internal/detection"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/metrics"
	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/registry"
)

// Transition is the terminal cart state transition of one capture.
type Transition string

const (
	Unchanged Transition = "unchanged"
	Reset     Transition = "reset"
	Appended  Transition = "appended"
	Skipped   Transition = "skipped"
)

// Outcome reports what processing a capture did.
type Outcome struct {
	Transition Transition
	Items      models.ItemSet
	DisplayRef string
	// Updated is true when the device registry was written.
	Updated bool
}

// Detector runs object detection on an encoded frame.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]models.Detection, error)
}

// Recommender computes display contents for a cart.
type Recommender interface {
	Recommend(ctx context.Context, deviceID string, current models.ItemSet, history models.CartHistory, setting models.Setting) (models.RecommendationResult, error)
}

// Syncer points a device at a display reference.
type Syncer interface {
	Sync(ctx context.Context, deviceID, ref string) (bool, error)
}

// Archiver persists frames.
type Archiver interface {
	Save(ctx context.Context, kind archive.Kind, deviceID string, at time.Time, data []byte) error
}

// Renderer draws detections over a frame.
type Renderer interface {
	Render(src []byte, dets []detection.Labeled, at time.Time) ([]byte, error)
}

// Notifier announces display changes.
type Notifier interface {
	PublishDisplay(ctx context.Context, state models.DeviceDisplayState) error
}

// Deps are the collaborators of a Processor. Renderer and Notifier are
// optional.
type Deps struct {
	Detector    Detector
	Normalizer  *detection.Normalizer
	Store       cartstate.Store
	Recommender Recommender
	Syncer      Syncer
	Archiver    Archiver
	Renderer    Renderer
	Notifier    Notifier
}

// Processor runs the per-capture state machine.
type Processor struct {
	deps Deps
	log  *logging.PipelineLogger
	now  func() time.Time
}

// NewProcessor validates deps and creates a Processor.
func NewProcessor(deps Deps) (*Processor, error) {
	switch {
	case deps.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case deps.Normalizer == nil:
		return nil, errors.New("pipeline: normalizer is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: state store is required")
	case deps.Recommender == nil:
		return nil, errors.New("pipeline: recommender is required")
	case deps.Syncer == nil:
		return nil, errors.New("pipeline: syncer is required")
	case deps.Archiver == nil:
		return nil, errors.New("pipeline: archiver is required")
	}
	return &Processor{
		deps: deps,
		log:  logging.NewPipelineLogger("pipeline"),
		now:  time.Now,
	}, nil
}

// Process handles one capture. A nil error means the capture may be
// acknowledged; any error means it should be redelivered.
func (p *Processor) Process(ctx context.Context, evt models.CaptureEvent) (Outcome, error) {
	if evt.DeviceID == "" {
		p.log.LogSkipped(ctx, "capture without device id")
		return Outcome{Transition: Skipped}, nil
	}

	if err := p.stage("archive", func() error {
		return p.deps.Archiver.Save(ctx, archive.KindOriginal, evt.DeviceID, evt.CapturedAt, evt.Image)
	}); err != nil {
		return Outcome{}, err
	}

	var dets []models.Detection
	err := p.stage("detect", func() (err error) {
		dets, err = p.deps.Detector.Detect(ctx, evt.Image)
		return err
	})
	if errors.Is(err, inference.ErrNoPrediction) {
		p.log.LogSkipped(ctx, err.Error())
		return Outcome{Transition: Skipped}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("detect: %w", err)
	}

	current := p.deps.Normalizer.Normalize(dets)

	g, gctx := errgroup.WithContext(ctx)
	if p.deps.Renderer != nil {
		retained := p.deps.Normalizer.Retained(dets)
		g.Go(func() error {
			return p.stage("annotate", func() error {
				annotated, err := p.deps.Renderer.Render(evt.Image, retained, evt.CapturedAt)
				if err != nil {
					return fmt.Errorf("annotate: %w", err)
				}
				return p.deps.Archiver.Save(gctx, archive.KindAnnotated, evt.DeviceID, evt.CapturedAt, annotated)
			})
		})
	}

	var outcome Outcome
	evalErr := p.stage("evaluate", func() (err error) {
		outcome, err = p.evaluate(ctx, evt.DeviceID, current)
		return err
	})
	sideErr := g.Wait()

	if evalErr != nil {
		return outcome, evalErr
	}
	if sideErr != nil {
		return outcome, sideErr
	}
	return outcome, nil
}

func (p *Processor) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStage(name, time.Since(start))
	return err
}

// evaluate advances the cart state machine for current.
func (p *Processor) evaluate(ctx context.Context, deviceID string, current models.ItemSet) (Outcome, error) {
	store := p.deps.Store

	history, err := store.GetHistory(ctx, deviceID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read history: %w", err)
	}

	if current.Equal(history.Last()) {
		p.log.LogTransition(ctx, string(Unchanged), current, len(history))
		return p.finishPending(ctx, deviceID, current, history)
	}

	setting, err := store.GetSetting(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("read setting: %w", err)
	}

	transition := Appended
	next, _ := history.Append(current)
	if current.Empty() {
		transition = Reset
		next = models.NewCartHistory()
	}

	result, err := p.deps.Recommender.Recommend(ctx, deviceID, current, next, setting)
	if err != nil {
		return Outcome{}, fmt.Errorf("recommend: %w", err)
	}

	if transition == Reset {
		err = store.ResetHistory(ctx, deviceID)
	} else {
		err = store.PutHistory(ctx, deviceID, next)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("write history: %w", err)
	}
	p.log.LogTransition(ctx, string(transition), current, len(next))

	updated, err := p.publish(ctx, deviceID, current, result)
	return Outcome{Transition: transition, Items: current, DisplayRef: result.DisplayRef, Updated: updated}, err
}

// finishPending completes work left over by an earlier delivery of the
// same cart: a failed sync, or a display state that was never written.
func (p *Processor) finishPending(ctx context.Context, deviceID string, current models.ItemSet, history models.CartHistory) (Outcome, error) {
	out := Outcome{Transition: Unchanged, Items: current}

	state, err := p.deps.Store.GetDisplayState(ctx, deviceID)
	switch {
	case errors.Is(err, cartstate.ErrNotFound):
		if current.Empty() {
			return out, nil
		}
	case err != nil:
		return out, fmt.Errorf("read display state: %w", err)
	case state.Synced && state.LastKnownItems.Equal(current):
		out.DisplayRef = state.DisplayRef
		return out, nil
	case state.LastKnownItems.Equal(current):
		out.DisplayRef = state.DisplayRef
		out.Updated, err = p.sync(ctx, state)
		return out, err
	}

	setting, err := p.deps.Store.GetSetting(ctx)
	if err != nil {
		return out, fmt.Errorf("read setting: %w", err)
	}
	result, err := p.deps.Recommender.Recommend(ctx, deviceID, current, history, setting)
	if err != nil {
		return out, fmt.Errorf("recommend: %w", err)
	}
	out.DisplayRef = result.DisplayRef
	out.Updated, err = p.publish(ctx, deviceID, current, result)
	return out, err
}

// publish records the new display state and syncs it.
func (p *Processor) publish(ctx context.Context, deviceID string, current models.ItemSet, result models.RecommendationResult) (bool, error) {
	return p.sync(ctx, models.DeviceDisplayState{
		DeviceID:       deviceID,
		LastKnownItems: current,
		Recommendation: result.Contents,
		DisplayRef:     result.DisplayRef,
		NextItemHint:   result.NextItemHint,
	})
}

// sync writes state as unsynced, updates the registry, then marks it synced.
func (p *Processor) sync(ctx context.Context, state models.DeviceDisplayState) (bool, error) {
	state.Synced = false
	state.UpdatedAt = p.now().UTC()
	if err := p.deps.Store.PutDisplayState(ctx, state); err != nil {
		return false, fmt.Errorf("write display state: %w", err)
	}

	var updated bool
	err := p.stage("sync", func() (err error) {
		updated, err = p.deps.Syncer.Sync(ctx, state.DeviceID, state.DisplayRef)
		return err
	})
	p.log.LogSync(ctx, state.DisplayRef, updated, err)
	if errors.Is(err, registry.ErrInvalidConfig) {
		// Redelivery cannot repair the stored blob. The state stays unsynced
		// and the next capture from this cart tries again.
		logging.Ctx(ctx).Warn().Err(err).
			Str("display_ref", state.DisplayRef).
			Msg("Device config is not a JSON object, display left unsynced")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sync display: %w", err)
	}

	state.Synced = true
	if err := p.deps.Store.PutDisplayState(ctx, state); err != nil {
		return updated, fmt.Errorf("write display state: %w", err)
	}

	if updated && p.deps.Notifier != nil {
		if err := p.deps.Notifier.PublishDisplay(ctx, state); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Display notification failed")
		}
	}
	return updated, nil
}
