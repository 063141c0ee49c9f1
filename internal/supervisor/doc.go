// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package supervisor provides process supervision for cartsense using suture v4.

The tree organizes long-running services into three layers:

	RootSupervisor ("cartsense")
	├── DataSupervisor ("data-layer")
	│   ├── EmbeddedServerService (if queue.embedded_server)
	│   └── StateGCService (badger backend only)
	├── IngestSupervisor ("ingest-layer")
	│   └── LoopService (capture pipeline)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (/healthz, /metrics)

A crash in the pipeline loop restarts only the ingest layer, so health and
metrics endpoints keep answering while the loop backs off.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor.TreeConfig())
	if err != nil {
	    return err
	}
	tree.AddIngestService(services.NewLoopService(loop))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Past FailureThreshold the supervisor waits FailureBackoff before restarting.
Events are logged through sutureslog and the zerolog slog bridge.

Return behavior for services:
  - nil: stopped cleanly, not restarted
  - error: crashed, restarted under the backoff policy
  - ctx.Err(): shutdown requested

If services don't stop within ShutdownTimeout, UnstoppedServiceReport lists them.
*/
package supervisor
