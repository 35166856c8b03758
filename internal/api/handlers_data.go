// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/biodscan/internal/database"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/validation"
)

// simulatedBatchSize is how many records GET /api/external-bee-data
// generates when no upstream API is configured.
const simulatedBatchSize = 5

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bee Monitoring API is running"})
}

// observationInput is an insert body in either accepted shape.
type observationInput interface {
	ToObservation(now time.Time) models.Observation
}

// InsertData handles POST /api/data. The body may be in the current or the
// legacy column shape. The stored document, with its generated id, is echoed
// back and pushed to the live feed.
func (h *Handler) InsertData(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		respondValidation(w, validation.FromDecodeError(err).FieldErrors())
		return
	}

	var in observationInput = &models.ObservationInput{}
	if models.IsLegacyPayload(data) {
		in = &models.LegacyObservationInput{}
	}
	if verr := bindJSON(data, in); verr != nil {
		respondValidation(w, verr.FieldErrors())
		return
	}

	obs := in.ToObservation(h.now())
	if err := h.store.InsertObservation(r.Context(), &obs); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondValidation(w, map[string]string{"id": "id already exists"})
			return
		}
		respondInternal(w, r, err)
		return
	}

	obs = h.record(obs)
	logging.Ctx(r.Context()).Info().
		Str("id", obs.ID).
		Str("hive_id", obs.HiveID).
		Msg("Observation inserted")

	writeJSON(w, http.StatusCreated, &models.InsertResponse{
		Message: msgInserted,
		NewData: obs,
	})
}

// ListData handles GET /api/data: newest first, limit 1..1000 (default 100,
// larger values are clamped).
func (h *Handler) ListData(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultListLimit, true)
	if err != nil {
		respondValidation(w, map[string]string{"limit": err.Error()})
		return
	}

	records, err := h.store.ListObservations(r.Context(), limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondList(w, records)
}

// GetData handles GET /api/data/{id}. The record comes back in the list
// body shape with a count of 1.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	obs, err := h.store.GetObservation(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, &models.ErrorResponse{Message: msgNotFound, Error: err.Error()})
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondList(w, []models.Observation{obs})
}

// BeeData handles GET /api/bee-data: the latest records whose readings are
// inside the sensor ranges.
func (h *Handler) BeeData(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultBeeDataLimit, false)
	if err != nil {
		respondValidation(w, map[string]string{"limit": err.Error()})
		return
	}

	records, err := h.store.ListInSensorRange(r.Context(), limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondList(w, records)
}

// ExternalBeeData handles GET /api/external-bee-data. With an upstream API
// configured it proxies and reshapes that API; otherwise it simulates a
// batch, stores and publishes it, and reads the latest records back.
func (h *Handler) ExternalBeeData(w http.ResponseWriter, r *http.Request) {
	if h.upstream != nil {
		records, err := h.upstream.FetchObservations(r.Context())
		if err != nil {
			respondInternal(w, r, fmt.Errorf("upstream: %w", err))
			return
		}
		h.writeExternal(w, records, "upstream")
		return
	}

	limit, err := parseLimit(r, defaultBeeDataLimit, false)
	if err != nil {
		respondValidation(w, map[string]string{"limit": err.Error()})
		return
	}
	if h.generator == nil {
		respondInternal(w, r, errors.New("no upstream API configured and simulator unavailable"))
		return
	}

	batch := h.generator.Generate(h.now(), simulatedBatchSize)
	if _, err := h.store.InsertObservations(r.Context(), batch); err != nil {
		respondInternal(w, r, err)
		return
	}
	for i := range batch {
		batch[i] = h.record(batch[i])
		h.publishSimulated(r.Context(), &batch[i])
	}

	records, err := h.store.ListInSensorRange(r.Context(), limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.writeExternal(w, records, "simulator")
}

// publishSimulated forwards a stored simulated record to the broker. Broker
// trouble never fails the request; the record is already stored.
func (h *Handler) publishSimulated(ctx context.Context, obs *models.Observation) {
	if h.broker == nil {
		return
	}
	payload, err := json.Marshal(obs)
	if err != nil {
		logging.Warn().Err(err).Str("id", obs.ID).Msg("Failed to encode simulated observation")
		return
	}
	if _, _, err := h.publishOrQueue(ctx, h.broker.PublishTopic(obs), payload); err != nil {
		logging.Warn().Err(err).Str("id", obs.ID).Msg("Simulated observation not published")
	}
}

func (h *Handler) writeExternal(w http.ResponseWriter, records []models.Observation, source string) {
	if records == nil {
		records = []models.Observation{}
	}
	writeJSON(w, http.StatusOK, &models.ExternalResponse{
		Message:   msgFetched,
		Data:      records,
		Count:     len(records),
		Source:    source,
		Timestamp: h.now(),
	})
}

// LegacyData handles GET /api/legacy/data: stored records in the legacy
// column shape.
func (h *Handler) LegacyData(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultListLimit, true)
	if err != nil {
		respondValidation(w, map[string]string{"limit": err.Error()})
		return
	}

	records, err := h.store.ListObservations(r.Context(), limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]models.LegacyObservation, len(records))
	for i := range records {
		out[i] = models.NewLegacyObservation(&records[i])
	}
	writeJSON(w, http.StatusOK, &models.LegacyListResponse{
		Message: msgFetched,
		Data:    out,
		Count:   len(out),
	})
}
