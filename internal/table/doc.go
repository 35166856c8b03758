// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package table projects observation collections into the dashboard's data
table: a case-insensitive substring filter on one field followed by
fixed-size pagination.

The projection is pure. Filter and Paginate never mutate their input and
always return the same result for the same arguments:

	view := table.NewView()
	view.SetField(models.FieldHiveID)
	view.SetSearch("hive-00")
	page := view.Apply(records)

LiveFeed holds the most recent observations received from the message
broker, bounded by capacity, and Merge combines it with the stored records
so that the table shows realtime data without waiting for a database read.
*/
package table
