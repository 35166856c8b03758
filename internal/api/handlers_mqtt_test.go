// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/biodscan/internal/models"
)

func TestMQTTStatus(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := do(env.handler.MQTTStatus, http.MethodGet, "/api/mqtt/status", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp, status := decodeEnvelope[models.MQTTStatus](t, rec)
		if resp.Status != "success" {
			t.Errorf("envelope status = %q", resp.Status)
		}
		if status.Connected || status.LastError != "MQTT is disabled" {
			t.Errorf("status = %+v", status)
		}
		if status.Subscriptions == nil || status.RecentMessages == nil {
			t.Error("slices must encode as empty arrays")
		}
	})

	t.Run("connected with pending wal", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, withBroker(true), withOutbox())
		env.broker.subs = []string{"sensors/bee-data"}
		_, _ = env.outbox.Write(t.Context(), "sensors/bee-data", []byte("{}"))

		rec := do(env.handler.MQTTStatus, http.MethodGet, "/api/mqtt/status", "")
		_, status := decodeEnvelope[models.MQTTStatus](t, rec)
		if !status.Connected || status.PendingWAL != 1 || len(status.Subscriptions) != 1 {
			t.Errorf("status = %+v", status)
		}
	})
}

func TestMQTTPublish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       []envOption
		publishErr error
		body       string
		wantCode   int
		wantTopic  string
		wantQueued bool
	}{
		{
			name:      "test message",
			opts:      []envOption{withBroker(true)},
			wantCode:  http.StatusOK,
			wantTopic: "bio-d-scan/bee-data/TEST-HIVE",
		},
		{
			name:      "custom topic and payload",
			opts:      []envOption{withBroker(true)},
			body:      `{"topic":"lab/bees","payload":` + validObservationBody + `}`,
			wantCode:  http.StatusOK,
			wantTopic: "lab/bees",
		},
		{
			name:       "disconnected queues to wal",
			opts:       []envOption{withBroker(false), withOutbox()},
			wantCode:   http.StatusAccepted,
			wantTopic:  "bio-d-scan/bee-data/TEST-HIVE",
			wantQueued: true,
		},
		{
			name:       "publish failure queues to wal",
			opts:       []envOption{withBroker(true), withOutbox()},
			publishErr: errors.New("pubrec timeout"),
			wantCode:   http.StatusAccepted,
			wantTopic:  "bio-d-scan/bee-data/TEST-HIVE",
			wantQueued: true,
		},
		{
			name:     "disconnected without wal",
			opts:     []envOption{withBroker(false)},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "mqtt disabled without wal",
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:       "publish failure without wal",
			opts:       []envOption{withBroker(true)},
			publishErr: errors.New("pubrec timeout"),
			wantCode:   http.StatusBadGateway,
		},
		{
			name:     "wildcard topic",
			opts:     []envOption{withBroker(true)},
			body:     `{"topic":"sensors/#"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid payload",
			opts:     []envOption{withBroker(true)},
			body:     `{"payload":{"hive_id":"H1"}}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrongly typed payload",
			opts:     []envOption{withBroker(true)},
			body:     `{"payload":{"temperature":"hot","humidity":50}}`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.opts...)
			if env.broker != nil {
				env.broker.publishErr = tt.publishErr
			}

			rec := do(env.handler.MQTTPublish, http.MethodPost, "/api/mqtt/publish", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			resp, result := decodeEnvelope[models.PublishResult](t, rec)
			if tt.wantCode >= 300 {
				if resp.Status != "error" || resp.Error == nil {
					t.Errorf("envelope = %+v", resp)
				}
				return
			}
			if result.Topic != tt.wantTopic || result.Queued != tt.wantQueued {
				t.Errorf("result = %+v", result)
			}
			if tt.wantQueued {
				if result.WALID == "" || env.outbox.PendingCount() != 1 {
					t.Errorf("wal id = %q pending = %d", result.WALID, env.outbox.PendingCount())
				}
				return
			}
			if env.broker.publishCount() != 1 {
				t.Fatalf("published = %d, want 1", env.broker.publishCount())
			}
			var sent models.Observation
			if err := json.Unmarshal(env.broker.published[0].payload, &sent); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if sent.HiveID != result.Payload.HiveID {
				t.Errorf("sent hive %q, result hive %q", sent.HiveID, result.Payload.HiveID)
			}
		})
	}
}

func TestMQTTSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withBroker(true))

	rec := do(env.handler.MQTTSubscribe, http.MethodPost, "/api/mqtt/subscribe", `{"topic":"hives/+/data","qos":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d: %s", rec.Code, rec.Body.String())
	}
	_, result := decodeEnvelope[models.SubscriptionResult](t, rec)
	if result.Topic != "hives/+/data" || len(result.Subscriptions) != 1 {
		t.Errorf("subscribe result = %+v", result)
	}

	rec = do(env.handler.MQTTUnsubscribe, http.MethodPost, "/api/mqtt/unsubscribe", `{"topic":"hives/+/data"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unsubscribe status = %d", rec.Code)
	}
	_, result = decodeEnvelope[models.SubscriptionResult](t, rec)
	if len(result.Subscriptions) != 0 {
		t.Errorf("subscriptions after unsubscribe = %v", result.Subscriptions)
	}

	rec = do(env.handler.MQTTUnsubscribe, http.MethodPost, "/api/mqtt/unsubscribe", `{"topic":"hives/+/data"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second unsubscribe status = %d, want 404", rec.Code)
	}
}

func TestMQTTSubscribe_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []envOption
		body     string
		wantCode int
	}{
		{name: "missing topic", opts: []envOption{withBroker(true)}, body: `{}`, wantCode: http.StatusBadRequest},
		{name: "bad wildcard", opts: []envOption{withBroker(true)}, body: `{"topic":"a/#/b"}`, wantCode: http.StatusBadRequest},
		{name: "bad qos", opts: []envOption{withBroker(true)}, body: `{"topic":"a","qos":3}`, wantCode: http.StatusBadRequest},
		{name: "disconnected", opts: []envOption{withBroker(false)}, body: `{"topic":"a"}`, wantCode: http.StatusServiceUnavailable},
		{name: "disabled", body: `{"topic":"a"}`, wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.opts...)
			rec := do(env.handler.MQTTSubscribe, http.MethodPost, "/api/mqtt/subscribe", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}
