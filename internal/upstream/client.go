// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

// Package upstream fetches observations from the external bee-data API.
//
// Every request goes through a gobreaker circuit breaker so a dead upstream
// fails fast instead of holding dashboard requests for the full timeout:
//   - at most 3 trial requests while half-open
//   - counts reset every minute while closed
//   - 2 minutes open before trying again
//   - opens at a 60% failure rate over at least 10 requests
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/models"
)

// BreakerName labels the breaker in logs and metrics.
const BreakerName = "upstream-api"

// DefaultPath is appended when UPSTREAM_URL has no path of its own.
const DefaultPath = "/api/external-bee-data"

const maxBodyBytes = 10 << 20

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("upstream circuit breaker is open")

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client is the breaker-protected upstream client.
type Client struct {
	endpoint string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[[]models.Observation]
}

// New creates a client for cfg.URL.
func New(cfg *config.UpstreamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(metrics.BreakerClosed)

	cb := gobreaker.NewCircuitBreaker[[]models.Observation](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening upstream circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateName(from)).Str("to", stateName(to)).Msg("Circuit breaker state transition")
			metrics.RecordBreakerTransition(name, stateName(from), stateName(to), stateValue(to))
		},
	})

	return &Client{
		endpoint: resolveEndpoint(cfg.URL),
		http:     &http.Client{Timeout: timeout},
		cb:       cb,
	}
}

// resolveEndpoint appends DefaultPath to a bare base URL.
func resolveEndpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return u.String()
}

// Endpoint is the URL that FetchObservations requests.
func (c *Client) Endpoint() string { return c.endpoint }

// State reports the breaker state: closed, half-open or open.
func (c *Client) State() string { return stateName(c.cb.State()) }

// FetchObservations GETs the upstream records and reshapes them.
func (c *Client) FetchObservations(ctx context.Context) ([]models.Observation, error) {
	out, err := c.cb.Execute(func() ([]models.Observation, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordBreakerRequest(BreakerName, "rejected")
			logging.Warn().Err(err).Msg("Upstream request rejected by circuit breaker")
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.RecordBreakerRequest(BreakerName, "failure")
		return nil, err
	}
	metrics.RecordBreakerRequest(BreakerName, "success")
	return out, nil
}

func (c *Client) fetch(ctx context.Context) ([]models.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(snippet)}
	}

	return decodeRecords(body)
}

// decodeRecords accepts {"data":[...]} or a bare array.
func decodeRecords(body []byte) ([]models.Observation, error) {
	trimmed := bytes.TrimSpace(body)
	var items []json.RawMessage

	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode upstream array: %w", err)
		}
	default:
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode upstream response: %w", err)
		}
		items = envelope.Data
	}

	out := make([]models.Observation, 0, len(items))
	for i, raw := range items {
		obs, err := models.ReshapeExternal(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

func stateName(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	default:
		return metrics.BreakerClosed
	}
}
