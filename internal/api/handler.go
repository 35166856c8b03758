// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"context"
	"time"

	"github.com/tomtom215/biodscan/internal/auth"
	"github.com/tomtom215/biodscan/internal/cache"
	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/table"
	ws "github.com/tomtom215/biodscan/internal/websocket"
)

// Store is the observation collection.
type Store interface {
	Ping(ctx context.Context) error
	InsertObservation(ctx context.Context, obs *models.Observation) error
	InsertObservations(ctx context.Context, batch []models.Observation) (int, error)
	ListObservations(ctx context.Context, limit int) ([]models.Observation, error)
	GetObservation(ctx context.Context, id string) (models.Observation, error)
	ListInSensorRange(ctx context.Context, limit int) ([]models.Observation, error)
	FieldSummaries(ctx context.Context) ([]models.FieldSummary, error)
}

// Broker is the MQTT client handle.
type Broker interface {
	IsConnected() bool
	Status() models.MQTTStatus
	Subscribe(ctx context.Context, topic string, qos int) error
	Unsubscribe(ctx context.Context, topic string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	PublishTopic(obs *models.Observation) string
}

// Outbox queues publishes made while the broker is unreachable.
type Outbox interface {
	Write(ctx context.Context, topic string, payload []byte) (string, error)
	PendingCount() int64
}

// Upstream fetches observations from the external bee-data API.
type Upstream interface {
	FetchObservations(ctx context.Context) ([]models.Observation, error)
}

// Recorder adds a stored observation to the live feed and broadcasts it.
type Recorder interface {
	Record(obs models.Observation) models.Observation
}

// Generator makes simulated observations.
type Generator interface {
	Generate(now time.Time, n int) []models.Observation
}

// Dependencies are the handles the handlers use. Optional ones must be
// left as untyped nil when the feature is disabled.
type Dependencies struct {
	Store     Store
	Broker    Broker   // nil when MQTT is disabled
	Outbox    Outbox   // nil when the WAL is disabled
	Upstream  Upstream // nil when UPSTREAM_URL is unset
	Recorder  Recorder
	Feed      *table.LiveFeed
	Generator Generator
	Hub       *ws.Hub
	Auth      *auth.Middleware
}

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	store     Store
	broker    Broker
	outbox    Outbox
	upstream  Upstream
	recorder  Recorder
	feed      *table.LiveFeed
	generator Generator
	wsHub     *ws.Hub
	auth      *auth.Middleware
	startTime time.Time
	nowFunc   func() time.Time

	fieldsCache *cache.Cache[[]models.FieldSummary]
}

const (
	fieldsCacheTTL = 15 * time.Second
	fieldsCacheKey = "all"
)

// NewHandler creates the API handler.
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     deps.Store,
		broker:    deps.Broker,
		outbox:    deps.Outbox,
		upstream:  deps.Upstream,
		recorder:  deps.Recorder,
		feed:      deps.Feed,
		generator: deps.Generator,
		wsHub:     deps.Hub,
		auth:      deps.Auth,
		startTime: time.Now(),
		nowFunc:   time.Now,

		fieldsCache: cache.New[[]models.FieldSummary]("fields", fieldsCacheTTL),
	}
}

func (h *Handler) now() time.Time {
	return h.nowFunc().UTC()
}

func (h *Handler) mqttConnected() bool {
	return h.broker != nil && h.broker.IsConnected()
}

// record puts a freshly stored observation on the live feed and drops the
// cached field summaries.
func (h *Handler) record(obs models.Observation) models.Observation {
	h.fieldsCache.Delete(fieldsCacheKey)
	if h.recorder == nil {
		return obs
	}
	return h.recorder.Record(obs)
}
