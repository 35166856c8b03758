// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/database"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/table"
)

const (
	// TopicRaw carries raw broker payloads into the router.
	TopicRaw = "observations.raw"

	// HandlerName is the router handler that stores observations.
	HandlerName = "store-observation"

	// MetadataSourceTopic holds the broker topic a payload arrived on.
	MetadataSourceTopic = "mqtt_topic"

	closeTimeout = 10 * time.Second
)

// Store persists observations.
type Store interface {
	InsertObservation(ctx context.Context, obs *models.Observation) error
}

// Broadcaster pushes stored observations to connected dashboards.
type Broadcaster interface {
	BroadcastObservation(obs models.Observation)
}

// Pipeline owns the ingest router and its in-process pub/sub.
type Pipeline struct {
	cfg     config.IngestConfig
	logger  watermill.LoggerAdapter
	pubSub  *gochannel.GoChannel
	router  *message.Router
	store   Store
	feed    *table.LiveFeed
	notify  Broadcaster
	nowFunc func() time.Time
}

// New builds the router and registers the store handler. notify may be nil.
func New(cfg *config.IngestConfig, store Store, feed *table.LiveFeed, notify Broadcaster) (*Pipeline, error) {
	logger := logging.NewWatermillLogger()

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: closeTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create ingest router: %w", err)
	}

	p := &Pipeline{
		cfg:     *cfg,
		logger:  logger,
		pubSub:  pubSub,
		router:  router,
		store:   store,
		feed:    feed,
		notify:  notify,
		nowFunc: time.Now,
	}

	router.AddMiddleware(p.ackAfterFailure)
	router.AddMiddleware(middleware.Recoverer)

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	retry := middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: backoff,
		MaxInterval:     30 * backoff,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	router.AddConsumerHandler(HandlerName, TopicRaw, pubSub, p.handle)
	return p, nil
}

// HandleMessage queues a broker message for storage. It is registered with
// mqtt.Client.OnMessage.
func (p *Pipeline) HandleMessage(msg models.MQTTMessage) {
	if err := p.Submit(msg.Topic, []byte(msg.Payload)); err != nil {
		metrics.RecordMQTTDrop("ingest_publish")
		logging.Warn().Err(err).Str("topic", msg.Topic).Msg("Dropped broker message")
	}
}

// Submit queues payload as if it arrived on the broker topic.
func (p *Pipeline) Submit(sourceTopic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataSourceTopic, sourceTopic)
	if err := p.pubSub.Publish(TopicRaw, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", TopicRaw, err)
	}
	return nil
}

// Record adds an already-stored observation to the live feed and broadcasts
// it. The HTTP insert path uses it as well as the handler.
func (p *Pipeline) Record(obs models.Observation) models.Observation {
	obs = p.feed.Prepend(obs)
	metrics.RecordLiveFeed(p.feed.Len(), p.feed.Capacity(), p.feed.Evicted())
	if p.notify != nil {
		p.notify.BroadcastObservation(obs)
	}
	return obs
}

// Feed returns the live feed.
func (p *Pipeline) Feed() *table.LiveFeed {
	return p.feed
}

func (p *Pipeline) handle(msg *message.Message) error {
	start := time.Now()
	source := msg.Metadata.Get(MetadataSourceTopic)

	obs, err := models.ParseObservation(msg.Payload)
	if err != nil {
		metrics.RecordIngest(metrics.IngestSkipped, 0)
		switch {
		case errors.Is(err, models.ErrNotObservation):
			logging.Debug().Str("topic", source).Msg("Ignoring non-observation payload")
		case errors.Is(err, models.ErrInvalidReading):
			logging.Warn().Err(err).Str("topic", source).Msg("Ignoring observation with out-of-range count")
		default:
			logging.Warn().Err(err).Str("topic", source).Msg("Ignoring malformed payload")
		}
		return nil
	}

	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = p.nowFunc().UTC()
	}

	if err := p.store.InsertObservation(msg.Context(), &obs); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			metrics.RecordIngest(metrics.IngestSkipped, 0)
			logging.Debug().Str("id", obs.ID).Msg("Observation already stored")
			return nil
		}
		return fmt.Errorf("store observation %s: %w", obs.ID, err)
	}

	p.Record(obs)
	metrics.RecordIngest(metrics.IngestStored, time.Since(start))

	logging.Debug().
		Str("id", obs.ID).
		Str("hive_id", obs.HiveID).
		Str("topic", source).
		Msg("Stored observation from broker")
	return nil
}

// ackAfterFailure swallows the final error so the message is acked.
func (p *Pipeline) ackAfterFailure(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			metrics.RecordIngest(metrics.IngestFailed, 0)
			logging.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Str("topic", msg.Metadata.Get(MetadataSourceTopic)).
				Msg("Giving up on broker message after retries")
			return nil, nil
		}
		return out, nil
	}
}

// Serve runs the router until ctx ends. It implements suture.Service.
func (p *Pipeline) Serve(ctx context.Context) error {
	logging.Info().Str("topic", TopicRaw).Str("handler", HandlerName).Msg("Starting ingest router")
	if err := p.router.Run(ctx); err != nil {
		return fmt.Errorf("ingest router: %w", err)
	}
	return ctx.Err()
}

// Running is closed once the router has started its handlers.
func (p *Pipeline) Running() <-chan struct{} {
	return p.router.Running()
}

// Close stops the router and the pub/sub.
func (p *Pipeline) Close() error {
	routerErr := p.router.Close()
	pubSubErr := p.pubSub.Close()
	return errors.Join(routerErr, pubSubErr)
}

func (p *Pipeline) String() string {
	return "ingest-router"
}
