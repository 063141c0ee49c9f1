// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PipelineLogger has one method per notable ingestion step so every event
// produces the same field names.
type PipelineLogger struct {
	component string
}

// NewPipelineLogger creates a PipelineLogger tagged with component.
func NewPipelineLogger(component string) *PipelineLogger {
	return &PipelineLogger{component: component}
}

func (p *PipelineLogger) log(ctx context.Context) *zerolog.Logger {
	l := Ctx(ctx).With().Str("component", p.component).Logger()
	return &l
}

// LogEventReceived records a pulled capture.
func (p *PipelineLogger) LogEventReceived(ctx context.Context, messageID string, size int, capturedAt time.Time) {
	p.log(ctx).Info().
		Str("message_id", messageID).
		Int("bytes", size).
		Time("captured_at", capturedAt).
		Msg("Capture received")
}

// LogTransition records the cart state transition chosen for an event.
func (p *PipelineLogger) LogTransition(ctx context.Context, outcome string, items []string, historyLen int) {
	p.log(ctx).Info().
		Str("outcome", outcome).
		Strs("items", items).
		Int("history_len", historyLen).
		Msg("Cart state evaluated")
}

// LogSync records a display pointer synchronization.
func (p *PipelineLogger) LogSync(ctx context.Context, displayRef string, updated bool, err error) {
	if err != nil {
		p.log(ctx).Warn().Err(err).Str("display_ref", displayRef).Msg("Display sync failed")
		return
	}
	p.log(ctx).Info().Str("display_ref", displayRef).Bool("updated", updated).Msg("Display synced")
}

// LogPredictRetry records one failed prediction attempt that will be retried.
func (p *PipelineLogger) LogPredictRetry(ctx context.Context, attempt int, err error) {
	p.log(ctx).Warn().Err(err).Int("attempt", attempt).Msg("Prediction timed out, retrying")
}

// LogSkipped records an event acknowledged without state changes.
func (p *PipelineLogger) LogSkipped(ctx context.Context, reason string) {
	p.log(ctx).Warn().Str("reason", reason).Msg("Capture skipped")
}

// LogAckFailed records an acknowledgment that did not reach the queue.
func (p *PipelineLogger) LogAckFailed(ctx context.Context, err error) {
	p.log(ctx).Error().Err(err).Msg("Acknowledge failed, capture may be redelivered")
}
