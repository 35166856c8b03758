// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package auth protects the operational endpoints of the dashboard API.

There is a single administrator account configured through ADMIN_USERNAME and
ADMIN_PASSWORD. AUTH_MODE selects how requests prove they are that account:

  - none: every request passes (not allowed in production)
  - basic: HTTP Basic credentials on each request, checked with bcrypt
  - jwt: a bearer token (or "token" cookie) issued by POST /api/auth/login

Key Components:

  - JWTManager: HS256 token issue and validation
  - BasicAuthManager: bcrypt-hashed admin credentials
  - Middleware: Authenticate, RateLimit and SecurityHeaders for chi
  - RateLimiter: per-IP token bucket with idle entry cleanup

Usage:

	mw, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
	    return err
	}
	defer mw.Stop()

	r.With(mw.Authenticate).Post("/api/mqtt/publish", h.MQTTPublish)

Failures are written as the standard JSON error envelope with code
UNAUTHORIZED. Basic mode also sends a WWW-Authenticate challenge.
*/
package auth
