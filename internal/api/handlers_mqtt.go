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

	"github.com/goccy/go-json"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/mqtt"
	"github.com/tomtom215/biodscan/internal/validation"
)

// errBrokerUnavailable is reported when nothing could take a publish.
var errBrokerUnavailable = errors.New("MQTT broker unavailable and no outbox configured")

// MQTTStatus handles GET /api/mqtt/status.
func (h *Handler) MQTTStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := models.MQTTStatus{LastError: "MQTT is disabled"}
	if h.broker != nil {
		status = h.broker.Status()
	}
	if status.Subscriptions == nil {
		status.Subscriptions = []string{}
	}
	if status.RecentMessages == nil {
		status.RecentMessages = []models.MQTTMessage{}
	}
	if h.outbox != nil {
		status.PendingWAL = int(h.outbox.PendingCount())
	}
	respondSuccess(w, http.StatusOK, status, start)
}

// MQTTPublish handles POST /api/mqtt/publish. An empty body or payload
// publishes the test observation. When the broker is down the message goes
// to the WAL (202) or, without one, the request fails with 503.
func (h *Handler) MQTTPublish(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.PublishRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		h.respondRequestError(w, r, validation.FromDecodeError(err))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		h.respondRequestError(w, r, verr)
		return
	}

	obs := models.TestObservation(h.now())
	if req.Payload != nil {
		obs = req.Payload.ToObservation(h.now())
	}

	topic := req.Topic
	if topic == "" {
		topic = h.publishTopic(&obs)
	}
	if err := config.ValidatePublishTopic(topic); err != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "Invalid topic",
			map[string]interface{}{"topic": err.Error()}, nil)
		return
	}

	payload, err := json.Marshal(&obs)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to encode payload", err)
		return
	}

	queued, walID, err := h.publishOrQueue(r.Context(), topic, payload)
	switch {
	case errors.Is(err, errBrokerUnavailable), errors.Is(err, mqtt.ErrNotConnected):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "MQTT broker is not connected", err)
		return
	case err != nil:
		respondError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail, "Failed to publish message", err)
		return
	}

	status := http.StatusOK
	if queued {
		status = http.StatusAccepted
	}
	respondSuccess(w, status, models.PublishResult{
		Topic:   topic,
		Payload: obs,
		Queued:  queued,
		WALID:   walID,
	}, start)
}

func (h *Handler) publishTopic(obs *models.Observation) string {
	if h.broker != nil {
		return h.broker.PublishTopic(obs)
	}
	return mqtt.PublishTopic(h.cfg.MQTT.Topic, obs)
}

// publishOrQueue publishes when the broker is connected and otherwise, or
// on failure, writes to the outbox. queued reports the outbox path.
func (h *Handler) publishOrQueue(ctx context.Context, topic string, payload []byte) (queued bool, walID string, err error) {
	var pubErr error
	if h.mqttConnected() {
		pubErr = h.broker.Publish(ctx, topic, payload)
		if pubErr == nil {
			return false, "", nil
		}
	} else {
		pubErr = mqtt.ErrNotConnected
	}

	if h.outbox == nil {
		if errors.Is(pubErr, mqtt.ErrNotConnected) {
			return false, "", errBrokerUnavailable
		}
		return false, "", pubErr
	}

	walID, err = h.outbox.Write(ctx, topic, payload)
	if err != nil {
		return false, "", fmt.Errorf("queue to wal: %w (publish: %v)", err, pubErr)
	}
	logging.Info().Str("topic", topic).Str("wal_id", walID).Msg("Publish queued to WAL")
	return true, walID, nil
}

// MQTTSubscribe handles POST /api/mqtt/subscribe.
func (h *Handler) MQTTSubscribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := h.decodeTopicRequest(w, r)
	if !ok {
		return
	}
	if h.broker == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "MQTT is disabled", nil)
		return
	}

	qos := -1
	if req.QoS != nil {
		qos = *req.QoS
	}
	if err := h.broker.Subscribe(r.Context(), req.Topic, qos); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "MQTT broker is not connected", err)
			return
		}
		respondError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail, "Subscribe failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, h.subscriptionResult(req.Topic), start)
}

// MQTTUnsubscribe handles POST /api/mqtt/unsubscribe.
func (h *Handler) MQTTUnsubscribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := h.decodeTopicRequest(w, r)
	if !ok {
		return
	}
	if h.broker == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "MQTT is disabled", nil)
		return
	}

	if err := h.broker.Unsubscribe(r.Context(), req.Topic); err != nil {
		if errors.Is(err, mqtt.ErrNotSubscribed) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not subscribed to topic", nil)
			return
		}
		respondError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail, "Unsubscribe failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, h.subscriptionResult(req.Topic), start)
}

func (h *Handler) decodeTopicRequest(w http.ResponseWriter, r *http.Request) (models.TopicRequest, bool) {
	var req models.TopicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondRequestError(w, r, validation.FromDecodeError(err))
		return req, false
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		h.respondRequestError(w, r, verr)
		return req, false
	}
	if err := config.ValidateSubscriptionTopic(req.Topic); err != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "Invalid topic",
			map[string]interface{}{"topic": err.Error()}, nil)
		return req, false
	}
	return req, true
}

func (h *Handler) subscriptionResult(topic string) models.SubscriptionResult {
	subs := h.broker.Status().Subscriptions
	if subs == nil {
		subs = []string{}
	}
	return models.SubscriptionResult{Topic: topic, Subscriptions: subs}
}

// respondRequestError writes a VALIDATION_FAILED envelope.
func (h *Handler) respondRequestError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
}
