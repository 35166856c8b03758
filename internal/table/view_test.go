// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package table

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/biodscan/internal/models"
)

func makeRecords(n int) []models.Observation {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	out := make([]models.Observation, n)
	for i := range out {
		out[i] = models.Observation{
			ID:             fmt.Sprintf("obs-%03d", i),
			HiveID:         fmt.Sprintf("HIVE-%03d", i%5+1),
			Temperature:    20 + float64(i%10)/2,
			Humidity:       60,
			BumbleBeeCount: i % 4,
			HoneyBeeCount:  i % 9,
			Location:       []string{"North Field", "South Meadow"}[i%2],
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestFilter(t *testing.T) {
	t.Parallel()
	records := makeRecords(40)

	tests := []struct {
		name   string
		field  string
		search string
	}{
		{"empty search keeps all", models.FieldID, ""},
		{"case insensitive hive", models.FieldHiveID, "hive-002"},
		{"location substring", models.FieldLocation, "MEADOW"},
		{"numeric temperature", models.FieldTemperature, "22.5"},
		{"count", models.FieldHoneyBeeCount, "8"},
		{"timestamp date", models.FieldTimestamp, "2024-06-01T10:1"},
		{"no match", models.FieldHiveID, "zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Filter(records, tt.field, tt.search)

			want := 0
			for i := range records {
				v, _ := records[i].FieldString(tt.field)
				if strings.Contains(strings.ToLower(v), strings.ToLower(tt.search)) {
					want++
				}
			}
			if len(got) != want {
				t.Fatalf("Filter() returned %d records, want %d", len(got), want)
			}
			for i := range got {
				v, _ := got[i].FieldString(tt.field)
				if !strings.Contains(strings.ToLower(v), strings.ToLower(tt.search)) {
					t.Errorf("record %s field %s = %q does not contain %q", got[i].ID, tt.field, v, tt.search)
				}
			}
		})
	}
}

func TestFilterUnknownField(t *testing.T) {
	t.Parallel()
	if got := Filter(makeRecords(5), "colour", "x"); len(got) != 0 {
		t.Errorf("unknown field matched %d records", len(got))
	}
}

func TestFilterDoesNotAlias(t *testing.T) {
	t.Parallel()
	records := makeRecords(3)
	got := Filter(records, models.FieldID, "")
	got[0].ID = "changed"
	if records[0].ID == "changed" {
		t.Error("Filter result aliases its input")
	}
}

func TestPaginateRebuildsSet(t *testing.T) {
	t.Parallel()
	records := makeRecords(47)

	for _, size := range PageSizes {
		var rebuilt []models.Observation
		pages := TotalPages(len(records), size)
		for p := 1; p <= pages; p++ {
			page := Paginate(records, p, size)
			if len(page) > size {
				t.Fatalf("size %d page %d has %d records", size, p, len(page))
			}
			rebuilt = append(rebuilt, page...)
		}
		if len(rebuilt) != len(records) {
			t.Fatalf("size %d rebuilt %d records, want %d", size, len(rebuilt), len(records))
		}
		for i := range rebuilt {
			if rebuilt[i].ID != records[i].ID {
				t.Fatalf("size %d index %d = %s, want %s", size, i, rebuilt[i].ID, records[i].ID)
			}
		}
	}
}

func TestPaginateEdges(t *testing.T) {
	t.Parallel()
	records := makeRecords(15)

	tests := []struct {
		name       string
		page, size int
		want       int
	}{
		{"first page", 1, 10, 10},
		{"partial last page", 2, 10, 5},
		{"past the end", 3, 10, 0},
		{"page zero is page one", 0, 10, 10},
		{"zero size", 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Paginate(records, tt.page, tt.size); len(got) != tt.want {
				t.Errorf("Paginate(%d, %d) = %d records, want %d", tt.page, tt.size, len(got), tt.want)
			}
		})
	}
}

func TestTotalPages(t *testing.T) {
	t.Parallel()
	tests := []struct{ n, size, want int }{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{100, 30, 4},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.n, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestViewResetsPage(t *testing.T) {
	t.Parallel()
	v := NewView()
	if v.Field() != DefaultField || v.PageSize() != 10 || v.Page() != 1 {
		t.Fatalf("unexpected defaults: field=%s size=%d page=%d", v.Field(), v.PageSize(), v.Page())
	}

	v.SetPage(3)
	v.SetSearch("hive")
	if v.Page() != 1 {
		t.Errorf("SetSearch should reset page, got %d", v.Page())
	}

	v.SetPage(3)
	if err := v.SetField(models.FieldLocation); err != nil {
		t.Fatal(err)
	}
	if v.Page() != 1 {
		t.Errorf("SetField should reset page, got %d", v.Page())
	}

	v.SetPage(3)
	if err := v.SetPageSize(50); err != nil {
		t.Fatal(err)
	}
	if v.Page() != 1 {
		t.Errorf("SetPageSize should reset page, got %d", v.Page())
	}

	if err := v.SetPageSize(15); err == nil {
		t.Error("page size 15 should be rejected")
	}
	if err := v.SetField("colour"); err == nil {
		t.Error("unknown field should be rejected")
	}
	v.SetPage(-2)
	if v.Page() != 1 {
		t.Errorf("negative page should clamp to 1, got %d", v.Page())
	}
}

func TestViewApply(t *testing.T) {
	t.Parallel()
	records := makeRecords(35)
	v := NewView()
	if err := v.SetField(models.FieldLocation); err != nil {
		t.Fatal(err)
	}
	v.SetSearch("north")
	v.SetPage(2)

	page := v.Apply(records)
	if page.Total != 35 {
		t.Errorf("Total = %d", page.Total)
	}
	if page.FilteredTotal != 18 {
		t.Errorf("FilteredTotal = %d, want 18", page.FilteredTotal)
	}
	if page.TotalPages != 2 || page.Page != 2 {
		t.Errorf("page %d of %d, want 2 of 2", page.Page, page.TotalPages)
	}
	if len(page.Records) != 8 {
		t.Errorf("len(Records) = %d, want 8", len(page.Records))
	}

	v.SetPage(9)
	page = v.Apply(records)
	if page.Page != 2 {
		t.Errorf("page past the end should clamp to last, got %d", page.Page)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()
	live := []models.Observation{{ID: "c"}, {ID: "b"}, {ID: ""}}
	stored := []models.Observation{{ID: "b"}, {ID: "a"}, {ID: ""}}

	got := Merge(live, stored)
	var ids []string
	for i := range got {
		ids = append(ids, got[i].ID)
	}
	want := "c,b,,a,"
	if strings.Join(ids, ",") != want {
		t.Errorf("Merge ids = %q, want %q", strings.Join(ids, ","), want)
	}
}
