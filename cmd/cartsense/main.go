// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cartsense/internal/config"
	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/supervisor"
	"github.com/tomtom215/cartsense/internal/supervisor/services"
)

func main() {
	var configPath string
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.LoggingConfig())
	logging.Info().Msg("Starting Cartsense with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, err := InitQueue(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize queue")
	}
	defer queue.Close()

	store, collector, err := InitStateStore(ctx, cfg.State)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open cart state store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close cart state store")
		}
	}()

	pipe, err := InitPipeline(ctx, cfg, queue, store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer pipe.Close()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, cfg.Supervisor.TreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if queue.server != nil {
		tree.AddDataService(services.NewEmbeddedServerService(queue.server, cfg.Supervisor.ShutdownTimeout))
	}
	if collector != nil {
		tree.AddDataService(services.NewStateGCService(collector, cfg.State.GCInterval))
	}

	tree.AddIngestService(services.NewLoopService(pipe.Loop))

	if cfg.Server.Enabled {
		checks := []services.HealthCheck{
			{Name: "nats", Check: queue.Ping},
			{Name: "state", Check: func(ctx context.Context) error {
				_, err := store.GetSetting(ctx)
				return err
			}},
		}
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           services.NewOpsRouter(checks...),
			ReadHeaderTimeout: cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
		logging.Info().Str("addr", server.Addr).Msg("Ops endpoints enabled (/healthz, /metrics)")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// ServeBackground delivers exactly one value and never closes the channel.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
