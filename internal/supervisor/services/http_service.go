// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// errListenerClosed reports a listener that stopped while the service was
// still supposed to be serving.
var errListenerClosed = errors.New("ops listener closed unexpectedly")

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService keeps the ops listener up under the API supervisor.
//
//	server := &http.Server{Addr: cfg.Server.Addr(), Handler: services.NewOpsRouter(checks...)}
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
type HTTPServerService struct {
	server HTTPServer
	grace  time.Duration
}

// NewHTTPServerService wraps server. A non-positive grace falls back to 10s.
func NewHTTPServerService(server HTTPServer, grace time.Duration) *HTTPServerService {
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &HTTPServerService{server: server, grace: grace}
}

// Serve listens until ctx ends, then drains in-flight requests for at most
// the grace period. Listener and shutdown failures are returned so the
// supervisor restarts the service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := h.server.ListenAndServe()
		switch {
		case errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil:
			return nil
		case err == nil, errors.Is(err, http.ErrServerClosed):
			return errListenerClosed
		default:
			return fmt.Errorf("ops listener: %w", err)
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.grace)
		defer cancel()
		if err := h.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("ops shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (h *HTTPServerService) String() string { return "ops-http" }
