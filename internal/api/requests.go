// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tomtom215/biodscan/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// List limits for the query-string "limit" parameter.
const (
	defaultListLimit    = 100
	defaultBeeDataLimit = 10
	maxListLimit        = 1000
)

// errEmptyBody is returned by readBody when the body has no content.
var errEmptyBody = errors.New("request body is empty")

// readBody reads the whole request body, bounded by maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

// decodeJSON reads one JSON object from the request body into the struct dst
// points to. A wrongly typed field comes back as a
// *validation.RequestValidationError naming that field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if verr := validation.DecodeObject(data, dst); verr != nil {
		return verr
	}
	return nil
}

// bindJSON decodes data into dst and runs the struct validation tags.
func bindJSON(data []byte, dst interface{}) *validation.RequestValidationError {
	if verr := validation.DecodeObject(data, dst); verr != nil {
		return verr
	}
	return validation.ValidateStruct(dst)
}

// parseLimit reads the "limit" query parameter. Missing means def; values
// above maxListLimit are clamped when clamp is set, otherwise rejected.
func parseLimit(r *http.Request, def int, clamp bool) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > maxListLimit {
		if !clamp {
			return 0, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
		}
		n = maxListLimit
	}
	return n, nil
}

// parsePositiveInt reads an optional positive integer query parameter.
func parsePositiveInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}
