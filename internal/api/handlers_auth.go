// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/biodscan/internal/auth"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/validation"
)

// Login handles POST /api/auth/login. In jwt mode the token is returned in
// the body and set as an HttpOnly cookie; basic mode only confirms the
// credentials.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.auth == nil || h.auth.Mode() == auth.ModeNone {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Authentication is disabled", nil)
		return
	}

	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondRequestError(w, r, validation.FromDecodeError(err))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		h.respondRequestError(w, r, verr)
		return
	}

	resp, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logging.Ctx(r.Context()).Warn().
				Str("username", sanitizeLogValue(req.Username)).
				Msg("Login failed")
			respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid username or password", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Login failed", err)
		return
	}

	if resp.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.TokenCookie,
			Value:    resp.Token,
			Path:     "/",
			Expires:  resp.ExpiresAt,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
		})
	}
	logging.Ctx(r.Context()).Info().Str("username", resp.Username).Msg("Login succeeded")
	respondSuccess(w, http.StatusOK, resp, start)
}
