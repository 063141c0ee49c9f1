// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Publish sends one camera frame to the capture stream, for manual testing.

Usage:

	publish [-nats-url URL] [-region REGION] <device> <image>

The image is a local path, gs://bucket/key or s3://bucket/key. The NATS URL
defaults to NATS_URL, then nats://127.0.0.1:4222. The capture stream must
already exist; cartsense provisions it at startup.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/logging"
)

func main() {
	natsURL := flag.String("nats-url", envOr("NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL")
	region := flag.String("region", os.Getenv("AWS_REGION"), "AWS region for s3:// images")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: publish [flags] <device> <image>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	device, location := flag.Arg(0), flag.Arg(1)

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logging.Init(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	image, err := archive.ReadLocation(ctx, location, archive.Config{Region: *region})
	if err != nil {
		logging.Fatal().Err(err).Str("image", location).Msg("Failed to read image")
	}

	cfg := eventprocessor.DefaultPublisherConfig(*natsURL)
	cfg.Connection.Name = "cartsense-publish"
	pub, err := eventprocessor.NewPublisher(cfg, watermill.NewSlogLogger(logging.NewSlogLogger()))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create publisher")
	}
	err = pub.PublishCapture(ctx, device, image)
	_ = pub.Close()
	if err != nil {
		logging.Fatal().Err(err).Str("device_id", device).Msg("Failed to publish capture")
	}
	logging.Info().
		Str("device_id", device).
		Str("subject", eventprocessor.CaptureSubject(device)).
		Int("bytes", len(image)).
		Msg("Capture published")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
