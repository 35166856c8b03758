// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package table

import (
	"fmt"
	"strings"

	"github.com/tomtom215/biodscan/internal/models"
)

// PageSizes are the page sizes the table offers. The first is the default.
var PageSizes = []int{10, 20, 30, 50, 100}

// DefaultField is the field searched when none is chosen.
const DefaultField = models.FieldID

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Filter keeps the records whose field value contains search,
// case-insensitively. An empty search keeps everything. Unknown fields match
// nothing except an empty search.
func Filter(records []models.Observation, field, search string) []models.Observation {
	if search == "" {
		out := make([]models.Observation, len(records))
		copy(out, records)
		return out
	}
	needle := strings.ToLower(search)
	out := make([]models.Observation, 0, len(records))
	for i := range records {
		value, ok := records[i].FieldString(field)
		if ok && strings.Contains(strings.ToLower(value), needle) {
			out = append(out, records[i])
		}
	}
	return out
}

// Paginate returns records[(page-1)*size : page*size], truncated to the
// collection. Pages before 1 are treated as page 1.
func Paginate(records []models.Observation, page, size int) []models.Observation {
	if size <= 0 {
		return []models.Observation{}
	}
	if page < 1 {
		page = 1
	}
	from := (page - 1) * size
	if from >= len(records) {
		return []models.Observation{}
	}
	to := from + size
	if to > len(records) {
		to = len(records)
	}
	out := make([]models.Observation, to-from)
	copy(out, records[from:to])
	return out
}

// TotalPages is the number of pages needed for n records, at least 1.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Page is one rendered table page.
type Page struct {
	Records       []models.Observation `json:"records"`
	Total         int                  `json:"total"`
	FilteredTotal int                  `json:"filtered_total"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"page_size"`
	TotalPages    int                  `json:"total_pages"`
	Field         string               `json:"field"`
	Search        string               `json:"search"`
}

// View is the table state: search text, search field, page and page size.
// The zero value is not usable; call NewView.
type View struct {
	search   string
	field    string
	page     int
	pageSize int
}

// NewView returns a view on page 1 searching DefaultField with the default
// page size.
func NewView() *View {
	return &View{field: DefaultField, page: 1, pageSize: PageSizes[0]}
}

// Search returns the current search text.
func (v *View) Search() string { return v.search }

// Field returns the current search field.
func (v *View) Field() string { return v.field }

// Page returns the current page.
func (v *View) Page() int { return v.page }

// PageSize returns the current page size.
func (v *View) PageSize() int { return v.pageSize }

// SetSearch changes the search text and goes back to page 1.
func (v *View) SetSearch(search string) {
	v.search = search
	v.page = 1
}

// SetField changes the searched field and goes back to page 1.
func (v *View) SetField(field string) error {
	if !models.IsObservationField(field) {
		return fmt.Errorf("unknown field %q", field)
	}
	v.field = field
	v.page = 1
	return nil
}

// SetPageSize changes the page size and goes back to page 1.
func (v *View) SetPageSize(size int) error {
	if !ValidPageSize(size) {
		return fmt.Errorf("page size must be one of %v", PageSizes)
	}
	v.pageSize = size
	v.page = 1
	return nil
}

// SetPage moves to page p. It is clamped to 1 from below; the upper bound
// depends on the data and is applied by Apply.
func (v *View) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	v.page = p
}

// Apply filters and paginates records according to the view. A page past the
// end is clamped to the last page.
func (v *View) Apply(records []models.Observation) Page {
	filtered := Filter(records, v.field, v.search)
	pages := TotalPages(len(filtered), v.pageSize)
	if v.page > pages {
		v.page = pages
	}
	return Page{
		Records:       Paginate(filtered, v.page, v.pageSize),
		Total:         len(records),
		FilteredTotal: len(filtered),
		Page:          v.page,
		PageSize:      v.pageSize,
		TotalPages:    pages,
		Field:         v.field,
		Search:        v.search,
	}
}

// Merge returns live followed by the stored records whose ID is not already
// live. Neither input is modified.
func Merge(live, stored []models.Observation) []models.Observation {
	seen := make(map[string]struct{}, len(live))
	out := make([]models.Observation, 0, len(live)+len(stored))
	for i := range live {
		if live[i].ID != "" {
			seen[live[i].ID] = struct{}{}
		}
		out = append(out, live[i])
	}
	for i := range stored {
		if _, dup := seen[stored[i].ID]; dup && stored[i].ID != "" {
			continue
		}
		out = append(out, stored[i])
	}
	return out
}
