// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package ingest turns broker messages into stored observations.

Messages flow through a Watermill router backed by an in-process gochannel
pub/sub:

	mqtt.Client.OnMessage -> Pipeline.HandleMessage
	    -> gochannel topic "observations.raw"
	    -> handler "store-observation"
	        parse (current or legacy shape)
	        assign fallback id and timestamp
	        database insert
	        live feed prepend
	        websocket broadcast

Router middleware, outermost first:

  - ack-after-failure: logs and acks a message whose retries are exhausted so
    gochannel does not redeliver it forever
  - Recoverer: converts handler panics into errors
  - Retry: exponential backoff for transient database errors

Payloads that are not observations are acked and counted as skipped. A
duplicate id is also a skip, because the record is already stored.
*/
package ingest
