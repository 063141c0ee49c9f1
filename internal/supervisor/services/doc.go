// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package services provides suture.Service wrappers for cartsense components.

Each wrapper translates a component lifecycle (Run, ListenAndServe, periodic
maintenance, an already-started server) into suture's context-aware Serve
and identifies itself through fmt.Stringer.

# Available Services

LoopService:
  - Runs the capture pipeline loop until the context ends
  - A returned error or panic restarts the loop

StateGCService:
  - Runs cart state value-log GC on an interval
  - Records each run in cartsense_state_gc_runs_total

HTTPServerService:
  - Wraps *http.Server with graceful shutdown
  - NewOpsRouter serves /healthz and /metrics

EmbeddedServerService:
  - Owns the shutdown of an in-process NATS server started before the tree
  - Fails when the server stops on its own
*/
package services
