// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: honours or generates X-Request-ID and seeds the logging context
  - PrometheusMetrics: request count, latency and in-flight instrumentation

Both are plain func(http.Handler) http.Handler so they slot into chi:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Metrics are labelled with the chi route pattern (for example
/api/mqtt/status) rather than the raw path, which keeps label cardinality
bounded. Requests that match no route are labelled "unmatched".
*/
package middleware
