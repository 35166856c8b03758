// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package websocket pushes live updates to dashboard browsers over /ws.

A single Hub owns the set of connected clients. Each Client runs a read pump
(answers application-level pings, enforces the pong deadline) and a write
pump (drains the send queue, sends protocol pings every 54 seconds).

	hub := websocket.NewHub()
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	hub.BroadcastObservation(obs)
	hub.BroadcastMQTTStatus(true, "tcp://broker:1883")

Messages are JSON envelopes:

	{"type":"observation","data":{"id":"...","hive_id":"HIVE-001",...}}
	{"type":"mqtt_status","data":{"connected":true,"broker":"tcp://broker:1883","timestamp":"..."}}

Clients may send {"type":"ping"} and receive {"type":"pong"}.

Broadcasts never block the caller. When the hub queue or a client's send
queue is full the message is dropped; a client whose queue is full is
disconnected so a slow browser cannot stall the others.
*/
package websocket
