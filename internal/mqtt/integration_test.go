// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

//go:build integration

package mqtt_test

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/mqtt"
	"github.com/tomtom215/biodscan/internal/testinfra"
)

func TestIntegration_PublishSubscribeRoundTrip(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker, err := testinfra.NewMosquittoContainer(ctx)
	if err != nil {
		t.Fatalf("start mosquitto: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, broker)

	cfg := &config.MQTTConfig{
		Enabled:         true,
		Host:            broker.Host,
		Port:            broker.Port,
		SubscribeTopics: []string{mqtt.DefaultTopicRoot + "/#"},
		ClientIDPrefix:  "bio-d-scan-it",
		QoS:             1,
		KeepAlive:       30 * time.Second,
		ConnectTimeout:  10 * time.Second,
	}
	client := mqtt.New(cfg)

	connected := make(chan bool, 4)
	client.OnConnectionChange(func(up bool) { connected <- up })
	received := make(chan models.MQTTMessage, 4)
	client.OnMessage(func(msg models.MQTTMessage) { received <- msg })

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Disconnect()

	select {
	case up := <-connected:
		if !up {
			t.Fatal("first connection event was a disconnect")
		}
	case <-time.After(10 * time.Second):
		testinfra.LogContainerState(t, ctx, broker)
		t.Fatal("no connection event")
	}
	// Configured subscriptions are made asynchronously after connect.
	time.Sleep(500 * time.Millisecond)

	obs := models.TestObservation(time.Now())
	topic, _, err := client.PublishObservation(ctx, &obs)
	if err != nil {
		t.Fatalf("PublishObservation() error = %v", err)
	}
	if topic != mqtt.DefaultTopicRoot+"/TEST-HIVE" {
		t.Errorf("topic = %q", topic)
	}

	select {
	case msg := <-received:
		if msg.Topic != topic || !msg.IsBeeData {
			t.Errorf("message = %+v", msg)
		}
		var got models.Observation
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if got.HiveID != obs.HiveID || got.HoneyBeeCount != obs.HoneyBeeCount {
			t.Errorf("payload = %+v", got)
		}
	case <-time.After(10 * time.Second):
		testinfra.LogContainerState(t, ctx, broker)
		t.Fatal("published observation was not received")
	}

	status := client.Status()
	if !status.Connected || len(status.RecentMessages) == 0 {
		t.Errorf("status = %+v", status)
	}

	if err := client.Unsubscribe(ctx, mqtt.DefaultTopicRoot+"/#"); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
}
