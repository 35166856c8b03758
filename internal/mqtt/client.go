// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/models"
)

var (
	// ErrNotConnected is returned by operations that need a live broker.
	ErrNotConnected = errors.New("not connected to MQTT broker")

	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("timed out waiting for MQTT broker")

	// ErrNotSubscribed is returned by Unsubscribe for an untracked topic.
	ErrNotSubscribed = errors.New("not subscribed to topic")
)

// RecentMessageLimit is how many received messages Status reports.
const RecentMessageLimit = 10

// DefaultTopicRoot is used for per-hive publish topics when no publish topic
// is configured.
const DefaultTopicRoot = "bio-d-scan/bee-data"

// connackMessages maps CONNACK return codes to readable reasons.
var connackMessages = map[byte]string{
	1: "Connection refused - incorrect protocol version",
	2: "Connection refused - invalid client identifier",
	3: "Connection refused - server unavailable",
	4: "Connection refused - bad username or password",
	5: "Connection refused - not authorised",
}

// ConnackMessage describes a CONNACK return code.
func ConnackMessage(code byte) string {
	if code == 0 {
		return "Connection accepted"
	}
	if msg, ok := connackMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown error code: %d", code)
}

// MessageHandler receives every message on any tracked subscription.
type MessageHandler func(msg models.MQTTMessage)

// ConnectionHandler is told about every connect and disconnect.
type ConnectionHandler func(connected bool)

type clientFactory func(opts *paho.ClientOptions) paho.Client

// Client is the broker connection handle.
type Client struct {
	cfg      config.MQTTConfig
	clientID string
	client   paho.Client
	limiter  *rate.Limiter

	connected atomic.Bool

	mu            sync.RWMutex
	subscriptions map[string]byte
	recent        []models.MQTTMessage
	lastError     string

	handlersMu   sync.RWMutex
	nextID       uint64
	msgHandlers  map[uint64]MessageHandler
	connHandlers map[uint64]ConnectionHandler
}

// New creates a client for cfg. It does not connect. The configured
// subscribe topics are tracked and subscribed on every connect.
func New(cfg *config.MQTTConfig) *Client {
	return newClient(cfg, paho.NewClient)
}

func newClient(cfg *config.MQTTConfig, factory clientFactory) *Client {
	c := &Client{
		cfg:           *cfg,
		clientID:      NewClientID(cfg.ClientIDPrefix),
		subscriptions: make(map[string]byte),
		msgHandlers:   make(map[uint64]MessageHandler),
		connHandlers:  make(map[uint64]ConnectionHandler),
	}

	limit := rate.Inf
	if cfg.PublishRate > 0 {
		limit = rate.Limit(cfg.PublishRate)
	}
	burst := cfg.PublishBurst
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(limit, burst)

	for _, topic := range cfg.SubscribeTopics {
		if topic = strings.TrimSpace(topic); topic != "" {
			c.subscriptions[topic] = c.qos()
		}
	}

	c.client = factory(c.options())
	return c
}

// NewClientID returns "<prefix>-<8 hex chars>".
func NewClientID(prefix string) string {
	if prefix == "" {
		prefix = "bio-d-scan-backend"
	}
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (c *Client) qos() byte {
	if c.cfg.QoS < 0 || c.cfg.QoS > 2 {
		return 1
	}
	return byte(c.cfg.QoS)
}

func (c *Client) options() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.BrokerURL())
	opts.SetClientID(c.clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOrderMatters(false)
	opts.SetKeepAlive(c.cfg.KeepAlive)
	opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	opts.SetMaxReconnectInterval(time.Minute)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}
	if c.cfg.UseTLS() {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12, ServerName: c.cfg.Host})
	}

	opts.SetDefaultPublishHandler(c.handleMessage)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		logging.Info().Str("broker", c.cfg.BrokerURL()).Msg("Reconnecting to MQTT broker")
	})
	return opts
}

// ClientID returns the MQTT client identifier.
func (c *Client) ClientID() string { return c.clientID }

// Broker returns the broker URL.
func (c *Client) Broker() string { return c.cfg.BrokerURL() }

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Connect opens the connection and waits for it up to the connect timeout.
// On timeout the client keeps retrying in the background.
func (c *Client) Connect(ctx context.Context) error {
	logging.Info().
		Str("broker", c.cfg.BrokerURL()).
		Str("client_id", c.clientID).
		Bool("tls", c.cfg.UseTLS()).
		Bool("auth", c.cfg.Username != "").
		Msg("Connecting to MQTT broker")

	token := c.client.Connect()
	if err := c.wait(ctx, token); err != nil {
		msg := err.Error()
		if ct, ok := token.(*paho.ConnectToken); ok && ct.ReturnCode() != 0 {
			msg = ConnackMessage(ct.ReturnCode())
		}
		c.setError(msg)
		logging.Error().Str("broker", c.cfg.BrokerURL()).Msg("Failed to connect to MQTT broker: " + msg)
		return fmt.Errorf("connect to %s: %w", c.cfg.BrokerURL(), err)
	}
	return nil
}

// Disconnect closes the connection, allowing 250ms for in-flight work.
func (c *Client) Disconnect() {
	if c.client.IsConnectionOpen() || c.connected.Load() {
		c.client.Disconnect(250)
	}
	if c.connected.Swap(false) {
		c.notifyConnection(false)
	}
	metrics.SetMQTTConnected(false)
	logging.Info().Msg("Disconnected from MQTT broker")
}

// wait blocks until the token completes, ctx ends or the connect timeout
// passes.
func (c *Client) wait(ctx context.Context, token paho.Token) error {
	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

func (c *Client) onConnect(_ paho.Client) {
	c.connected.Store(true)
	c.setError("")
	metrics.SetMQTTConnected(true)
	logging.Info().Str("broker", c.cfg.BrokerURL()).Msg("Connected to MQTT broker")

	c.mu.RLock()
	filters := make(map[string]byte, len(c.subscriptions))
	for topic, qos := range c.subscriptions {
		filters[topic] = qos
	}
	c.mu.RUnlock()

	if len(filters) > 0 {
		// runs on paho's connect goroutine; waiting here would block it
		token := c.client.SubscribeMultiple(filters, nil)
		go func() {
			if token.WaitTimeout(c.cfg.ConnectTimeout) && token.Error() != nil {
				c.setError(token.Error().Error())
				logging.Error().Err(token.Error()).Msg("Failed to re-subscribe after connect")
				return
			}
			logging.Info().Int("topics", len(filters)).Msg("Subscribed to MQTT topics")
		}()
	}

	c.notifyConnection(true)
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.connected.Store(false)
	metrics.SetMQTTConnected(false)
	if err != nil {
		c.setError(err.Error())
	}
	logging.Warn().Err(err).Msg("Unexpected disconnection from MQTT broker")
	c.notifyConnection(false)
}

func (c *Client) handleMessage(_ paho.Client, m paho.Message) {
	payload := m.Payload()
	msg := models.MQTTMessage{
		Topic:      m.Topic(),
		Payload:    string(payload),
		QoS:        m.Qos(),
		Retained:   m.Retained(),
		IsBeeData:  models.IsBeeData(payload),
		ReceivedAt: time.Now().UTC(),
	}
	metrics.RecordMQTTMessage(msg.IsBeeData)

	c.mu.Lock()
	c.recent = append([]models.MQTTMessage{msg}, c.recent...)
	if len(c.recent) > RecentMessageLimit {
		c.recent = c.recent[:RecentMessageLimit]
	}
	c.mu.Unlock()

	logging.Debug().
		Str("topic", msg.Topic).
		Int("bytes", len(payload)).
		Bool("bee_data", msg.IsBeeData).
		Msg("MQTT message received")

	c.handlersMu.RLock()
	handlers := make([]MessageHandler, 0, len(c.msgHandlers))
	for _, h := range c.msgHandlers {
		handlers = append(handlers, h)
	}
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		c.dispatch(h, msg)
	}
}

func (c *Client) dispatch(h MessageHandler, msg models.MQTTMessage) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("topic", msg.Topic).Msg("MQTT message handler panicked")
		}
	}()
	h(msg)
}

func (c *Client) notifyConnection(connected bool) {
	c.handlersMu.RLock()
	handlers := make([]ConnectionHandler, 0, len(c.connHandlers))
	for _, h := range c.connHandlers {
		handlers = append(handlers, h)
	}
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(connected)
	}
}

// OnMessage registers h for every received message and returns a function
// that removes it.
func (c *Client) OnMessage(h MessageHandler) (unregister func()) {
	c.handlersMu.Lock()
	id := c.nextID
	c.nextID++
	c.msgHandlers[id] = h
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		delete(c.msgHandlers, id)
		c.handlersMu.Unlock()
	}
}

// OnConnectionChange registers h for connect/disconnect events and returns a
// function that removes it.
func (c *Client) OnConnectionChange(h ConnectionHandler) (unregister func()) {
	c.handlersMu.Lock()
	id := c.nextID
	c.nextID++
	c.connHandlers[id] = h
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		delete(c.connHandlers, id)
		c.handlersMu.Unlock()
	}
}

// Subscribe subscribes to topic (wildcards allowed) and tracks it for
// re-subscription. qos outside 0..2 uses the configured default.
func (c *Client) Subscribe(ctx context.Context, topic string, qos int) error {
	if err := config.ValidateSubscriptionTopic(topic); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	q := c.qos()
	if qos >= 0 && qos <= 2 {
		q = byte(qos)
	}

	if err := c.wait(ctx, c.client.Subscribe(topic, q, nil)); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	c.mu.Lock()
	c.subscriptions[topic] = q
	c.mu.Unlock()

	logging.Info().Str("topic", topic).Uint8("qos", q).Msg("Subscribed to topic")
	return nil
}

// Unsubscribe stops tracking topic and unsubscribes if connected.
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	_, tracked := c.subscriptions[topic]
	delete(c.subscriptions, topic)
	c.mu.Unlock()

	if !tracked {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, topic)
	}
	if !c.IsConnected() {
		return nil
	}
	if err := c.wait(ctx, c.client.Unsubscribe(topic)); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	logging.Info().Str("topic", topic).Msg("Unsubscribed from topic")
	return nil
}

// Subscriptions returns the tracked topics, sorted.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Publish sends payload to topic with the configured QoS. It waits for the
// rate limiter and then for the broker acknowledgement.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	err := c.publish(ctx, topic, payload)
	metrics.RecordMQTTPublish(err)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		return err
	}
	logging.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("Published to topic")
	return nil
}

func (c *Client) publish(ctx context.Context, topic string, payload []byte) error {
	if err := config.ValidatePublishTopic(topic); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("publish rate limit: %w", err)
	}
	if err := c.wait(ctx, c.client.Publish(topic, c.qos(), false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishTopic is the topic an observation is published to: the configured
// topic, or bio-d-scan/bee-data/{hive_id|default}.
func (c *Client) PublishTopic(obs *models.Observation) string {
	return PublishTopic(c.cfg.Topic, obs)
}

// PublishTopic resolves the publish topic for obs given the configured topic.
func PublishTopic(configured string, obs *models.Observation) string {
	if configured != "" {
		return configured
	}
	hive := obs.HiveID
	if hive == "" {
		hive = "default"
	}
	return DefaultTopicRoot + "/" + hive
}

// PublishObservation encodes obs as JSON and publishes it. It returns the
// topic and payload so callers can queue them on failure.
func (c *Client) PublishObservation(ctx context.Context, obs *models.Observation) (topic string, payload []byte, err error) {
	payload, err = json.Marshal(obs)
	if err != nil {
		return "", nil, fmt.Errorf("encode observation: %w", err)
	}
	topic = c.PublishTopic(obs)
	return topic, payload, c.Publish(ctx, topic, payload)
}

func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
}

// RecentMessages returns up to RecentMessageLimit messages, newest first.
func (c *Client) RecentMessages() []models.MQTTMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.MQTTMessage, len(c.recent))
	copy(out, c.recent)
	return out
}

// Status summarizes the connection for the status endpoint.
func (c *Client) Status() models.MQTTStatus {
	c.mu.RLock()
	lastErr := c.lastError
	c.mu.RUnlock()

	return models.MQTTStatus{
		Connected:      c.IsConnected(),
		Broker:         c.cfg.BrokerURL(),
		ClientID:       c.clientID,
		Subscriptions:  c.Subscriptions(),
		RecentMessages: c.RecentMessages(),
		LastError:      lastErr,
	}
}
