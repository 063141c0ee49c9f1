// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package services

import (
	"context"
)

// LoopRunner matches pipeline.Loop's Run method.
//
// Satisfied by *pipeline.Loop from internal/pipeline/loop.go.
type LoopRunner interface {
	// Run pulls and processes captures until the context is canceled.
	Run(ctx context.Context) error
}

// LoopService wraps the capture pipeline loop as a supervised service.
//
// Example usage:
//
//	loop := pipeline.NewLoop(consumer, processor, cfg.Pipeline)
//	tree.AddIngestService(services.NewLoopService(loop))
type LoopService struct {
	loop LoopRunner
	name string
}

// NewLoopService creates a new pipeline loop service wrapper.
func NewLoopService(loop LoopRunner) *LoopService {
	return &LoopService{
		loop: loop,
		name: "ingest-loop",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on normal shutdown.
func (s *LoopService) Serve(ctx context.Context) error {
	return s.loop.Run(ctx)
}

// String implements fmt.Stringer for logging.
func (s *LoopService) String() string {
	return s.name
}
