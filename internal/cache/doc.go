// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package cache provides a small generic in-memory cache with TTL expiry.

The API uses it for responses that are expensive to compute and may be a
few seconds stale, such as the per-field summaries behind /api/fields.
Writes made through the API clear the relevant entry so the dashboard sees
its own inserts immediately. Observations arriving over MQTT show up once
the entry expires.

# Usage Example

	summaries := cache.New[[]models.FieldSummary]("fields", 15*time.Second)
	out, err := summaries.GetOrLoad("all", func() ([]models.FieldSummary, error) {
	    return store.FieldSummaries(ctx)
	})

# Expiry

Entries are checked on Get and swept on Set. There is no background
goroutine, so an idle cache holds its last entries until the next write.

# Metrics

Every lookup increments cache_lookups_total{cache, result}, and every
expired entry removed increments cache_evictions_total{cache}.
*/
package cache
