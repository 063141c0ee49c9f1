// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// eventTags are the per-event fields Ctx stamps on every entry.
type eventTags struct {
	correlationID string
	deviceID      string
}

type tagsKey struct{}

func tagsFrom(ctx context.Context) eventTags {
	tags, _ := ctx.Value(tagsKey{}).(eventTags)
	return tags
}

func withTags(ctx context.Context, update func(*eventTags)) context.Context {
	tags := tagsFrom(ctx)
	update(&tags)
	return context.WithValue(ctx, tagsKey{}, tags)
}

// GenerateCorrelationID returns a short random id (8 hex characters).
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withTags(ctx, func(t *eventTags) { t.correlationID = id })
}

func CorrelationIDFromContext(ctx context.Context) string {
	return tagsFrom(ctx).correlationID
}

func ContextWithDeviceID(ctx context.Context, deviceID string) context.Context {
	return withTags(ctx, func(t *eventTags) { t.deviceID = deviceID })
}

func DeviceIDFromContext(ctx context.Context) string {
	return tagsFrom(ctx).deviceID
}

// ContextForEvent tags ctx for one capture: a fresh correlation id plus the
// cart's device id.
func ContextForEvent(ctx context.Context, deviceID string) context.Context {
	id := GenerateCorrelationID()
	return withTags(ctx, func(t *eventTags) {
		t.correlationID = id
		t.deviceID = deviceID
	})
}

// Ctx returns the global logger carrying whichever event tags ctx has.
//
//	logging.Ctx(ctx).Info().Msg("History appended")
//	// {"level":"info","correlation_id":"abc12345","device_id":"cart01",...}
func Ctx(ctx context.Context) *zerolog.Logger {
	tags := tagsFrom(ctx)
	c := Logger().With()
	if tags.correlationID != "" {
		c = c.Str("correlation_id", tags.correlationID)
	}
	if tags.deviceID != "" {
		c = c.Str("device_id", tags.deviceID)
	}
	l := c.Logger()
	return &l
}
