// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/cartsense/internal/annotate"
	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/cartstate"
	"github.com/tomtom215/cartsense/internal/catalog"
	"github.com/tomtom215/cartsense/internal/config"
	"github.com/tomtom215/cartsense/internal/detection"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/pipeline"
	"github.com/tomtom215/cartsense/internal/recommend"
)

// PipelineComponents holds what the ingest loop needs plus the resources
// to release at shutdown.
type PipelineComponents struct {
	Loop    *pipeline.Loop
	archive archive.Store
}

// InitPipeline wires detection, recommendation, archiving and device sync
// into the capture loop.
func InitPipeline(ctx context.Context, cfg *config.Config, queue *QueueComponents, store cartstate.Store) (*PipelineComponents, error) {
	table, err := cfg.Vocabulary.Table()
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	logging.Info().Int("items", table.Size()).Msg("Vocabulary loaded")

	normalizer, err := detection.NewNormalizer(cfg.Detection.Threshold, table)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(ctx, cfg.Catalog.Location, cfg.Storage, table)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("location", cfg.Catalog.Location).Int("recipes", cat.Len()).Msg("Recipe catalog loaded")

	client, err := inference.NewClient(ctx, cfg.Inference)
	if err != nil {
		return nil, err
	}

	engine, err := recommend.NewEngine(client, table, cat, cfg.RecommendConfig())
	if err != nil {
		return nil, err
	}

	syncer, err := InitSynchronizer(ctx, cfg.Registry, queue.js)
	if err != nil {
		return nil, err
	}

	archiveStore, err := archive.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("backend", cfg.Storage.Backend).Msg("Capture archive ready")

	deps := pipeline.Deps{
		Detector:    client,
		Normalizer:  normalizer,
		Store:       store,
		Recommender: engine,
		Syncer:      syncer,
		Archiver:    archive.NewArchiver(archiveStore),
		Renderer:    annotate.NewRenderer(),
	}
	if queue.publisher != nil {
		deps.Notifier = queue.publisher
	}

	processor, err := pipeline.NewProcessor(deps)
	if err != nil {
		_ = archiveStore.Close()
		return nil, err
	}

	return &PipelineComponents{
		Loop:    pipeline.NewLoop(queue.consumer, processor, cfg.Pipeline),
		archive: archiveStore,
	}, nil
}

// Close releases the archive backend.
func (p *PipelineComponents) Close() {
	if err := p.archive.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close capture archive")
	}
}
