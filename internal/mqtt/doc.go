// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package mqtt owns the single broker connection used by the server and the
CLI, built on github.com/eclipse/paho.mqtt.golang.

A Client is created once at startup and passed to whatever needs it:

	client := mqtt.New(&cfg.MQTT)
	unregister := client.OnMessage(func(msg models.MQTTMessage) { ... })
	defer unregister()
	if err := client.Connect(ctx); err != nil { ... }
	defer client.Disconnect()

The connection uses a clean session with automatic reconnect. Every tracked
subscription is re-issued after each (re)connect, so handlers keep receiving
messages across broker restarts. Messages are delivered to the registered
handlers concurrently; there is no ordering guarantee beyond the broker's.

Publishing is rate limited with golang.org/x/time/rate and fails fast with
ErrNotConnected while the broker is unreachable; callers decide whether to
queue the message in the WAL.

The client keeps the last ten received messages for the status endpoint.
*/
package mqtt
