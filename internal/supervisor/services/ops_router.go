// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package services

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cartsense/internal/logging"
	"github.com/tomtom215/cartsense/internal/middleware"
)

// HealthCheck is one named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Uptime    float64           `json:"uptime_seconds"`
	Timestamp time.Time         `json:"timestamp"`
}

const healthCheckTimeout = 2 * time.Second

// NewOpsRouter returns the ops handler: /healthz runs every check and answers
// 503 if any fails; /metrics serves the Prometheus registry.
func NewOpsRouter(checks ...HealthCheck) http.Handler {
	started := time.Now()

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:    "ok",
			Checks:    make(map[string]string, len(checks)),
			Uptime:    time.Since(started).Seconds(),
			Timestamp: time.Now().UTC(),
		}
		code := http.StatusOK
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				logging.Ctx(req.Context()).Warn().Err(err).Str("check", hc.Name).Msg("Health check failed")
				resp.Checks[hc.Name] = err.Error()
				resp.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.Ctx(req.Context()).Warn().Err(err).Msg("Failed to write health response")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
