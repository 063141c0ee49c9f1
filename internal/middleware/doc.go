// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

/*
Package middleware provides HTTP middleware for the ops endpoints.

Key Components:

  - RequestID: propagates or generates X-Request-ID and stores it as the
    logging correlation id
  - PrometheusMetrics: records request counts and latency by chi route
    pattern, keeping label cardinality bounded

Both follow the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
