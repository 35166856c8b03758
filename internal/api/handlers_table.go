// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/table"
)

// Table handles GET /api/table. Stored records are merged under the live
// feed and projected through a table.View built from the query string:
// search, field, page and page_size.
func (h *Handler) Table(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	view := table.NewView()
	if field := q.Get("field"); field != "" {
		if err := view.SetField(field); err != nil {
			respondErrorDetails(w, r, http.StatusBadRequest, ErrCodeValidationFailed,
				"Invalid search field", map[string]interface{}{"field": err.Error(), "allowed": models.ObservationFields}, nil)
			return
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err == nil {
			err = view.SetPageSize(size)
		}
		if err != nil {
			respondErrorDetails(w, r, http.StatusBadRequest, ErrCodeValidationFailed,
				"Invalid page size", map[string]interface{}{"page_size": "must be one of 10, 20, 30, 50, 100"}, nil)
			return
		}
	}
	view.SetSearch(q.Get("search"))

	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, ErrCodeValidationFailed,
			"Invalid page", map[string]interface{}{"page": err.Error()}, nil)
		return
	}
	view.SetPage(page)

	writeTable(w, start, view.Apply(h.tableRecords(r)))
}

// tableRecords merges the live feed over the stored records. A store
// failure degrades to the live feed alone.
func (h *Handler) tableRecords(r *http.Request) []models.Observation {
	var live []models.Observation
	if h.feed != nil {
		live = h.feed.Snapshot()
	}

	stored, err := h.store.ListObservations(r.Context(), maxListLimit)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Table listing failed, serving live feed only")
		stored = nil
	}
	return table.Merge(live, stored)
}

func writeTable(w http.ResponseWriter, start time.Time, page table.Page) {
	if page.Records == nil {
		page.Records = []models.Observation{}
	}
	respondSuccess(w, http.StatusOK, page, start)
}

// Fields handles GET /api/fields: one summary per location.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	summaries, err := h.fieldsCache.GetOrLoad(fieldsCacheKey, func() ([]models.FieldSummary, error) {
		return h.store.FieldSummaries(r.Context())
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to summarize fields", err)
		return
	}
	if summaries == nil {
		summaries = []models.FieldSummary{}
	}
	respondSuccess(w, http.StatusOK, summaries, start)
}
