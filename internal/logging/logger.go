// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package logging provides the process-wide zerolog logger for Cartsense.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("device_id", id).Msg("Capture received")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Registry write failed")
//
// Each capture event carries a correlation id and device id in its context.
// Ctx(ctx) stamps both on the entry, so one event's lines grep together.
// A chain only writes once it ends in .Msg() or .Send().
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, encoding and destination of the global logger.
type Config struct {
	Level     string    // trace, debug, info, warn, error, fatal, disabled
	Format    string    // json or console
	Caller    bool      // add file:line
	Timestamp bool      // add a "time" field
	Output    io.Writer // nil means os.Stderr
}

// DefaultConfig is JSON at info level with timestamps on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // entries written before Init still need a sink
func init() {
	Init(DefaultConfig())
}

// Init rebuilds the global logger from cfg. Later calls replace it.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var w io.Writer = os.Stderr
	if cfg.Output != nil {
		w = cfg.Output
	}
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	c := zerolog.New(w).With()
	if cfg.Timestamp {
		c = c.Timestamp()
	}
	if cfg.Caller {
		c = c.Caller()
	}
	SetLogger(c.Logger())
}

// parseLevel accepts zerolog's names plus "warning". Unknown or empty
// input means info.
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// SetLogger swaps the global logger; tests point it at a buffer.
//
//nolint:gocritic // zerolog.Logger is passed by value throughout zerolog
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// With starts a child context of the global logger.
//
//	storeLog := logging.With().Str("component", "cartstate").Logger()
func With() zerolog.Context { return global.Load().With() }

func Debug() *zerolog.Event { return global.Load().Debug() }
func Info() *zerolog.Event  { return global.Load().Info() }
func Warn() *zerolog.Event  { return global.Load().Warn() }
func Error() *zerolog.Event { return global.Load().Error() }

// Fatal exits the process with status 1 after the entry is written.
func Fatal() *zerolog.Event { return global.Load().Fatal() }

// NewTestLogger logs JSON with timestamps to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
