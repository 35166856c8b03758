// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/biodscan/internal/auth"
	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/database"
	"github.com/tomtom215/biodscan/internal/models"
	"github.com/tomtom215/biodscan/internal/mqtt"
	"github.com/tomtom215/biodscan/internal/table"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeStore keeps observations newest first.
type fakeStore struct {
	mu        sync.Mutex
	records   []models.Observation
	err       error
	pingErr   error
	summaries []models.FieldSummary
	lastLimit int
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) InsertObservation(_ context.Context, obs *models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	for i := range s.records {
		if s.records[i].ID == obs.ID {
			return fmt.Errorf("insert %s: %w", obs.ID, database.ErrDuplicate)
		}
	}
	s.records = append([]models.Observation{*obs}, s.records...)
	return nil
}

func (s *fakeStore) InsertObservations(ctx context.Context, batch []models.Observation) (int, error) {
	for i := range batch {
		if err := s.InsertObservation(ctx, &batch[i]); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}

func (s *fakeStore) GetObservation(_ context.Context, id string) (models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Observation{}, s.err
	}
	for i := range s.records {
		if s.records[i].ID == id {
			return s.records[i], nil
		}
	}
	return models.Observation{}, fmt.Errorf("observation %s: %w", id, database.ErrNotFound)
}

func (s *fakeStore) ListObservations(_ context.Context, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit > len(s.records) {
		limit = len(s.records)
	}
	return append([]models.Observation(nil), s.records[:limit]...), nil
}

func (s *fakeStore) ListInSensorRange(_ context.Context, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Observation
	for i := range s.records {
		o := s.records[i]
		if o.Temperature < models.MinSensorTemperature || o.Temperature > models.MaxSensorTemperature ||
			o.Humidity < models.MinSensorHumidity || o.Humidity > models.MaxSensorHumidity {
			continue
		}
		out = append(out, o)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) FieldSummaries(context.Context) ([]models.FieldSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summaries, nil
}

type published struct {
	topic   string
	payload []byte
}

type fakeBroker struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	subs       []string
	published  []published
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Status() models.MQTTStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.MQTTStatus{
		Connected:     b.connected,
		Broker:        "tcp://broker.test:1883",
		Subscriptions: append([]string(nil), b.subs...),
	}
}

func (b *fakeBroker) Subscribe(_ context.Context, topic string, _ int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return mqtt.ErrNotConnected
	}
	b.subs = append(b.subs, topic)
	return nil
}

func (b *fakeBroker) Unsubscribe(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == topic {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", mqtt.ErrNotSubscribed, topic)
}

func (b *fakeBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{topic: topic, payload: payload})
	return nil
}

func (b *fakeBroker) PublishTopic(obs *models.Observation) string {
	return mqtt.PublishTopic("", obs)
}

func (b *fakeBroker) publishCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

type fakeOutbox struct {
	mu      sync.Mutex
	entries []published
}

func (o *fakeOutbox) Write(_ context.Context, topic string, payload []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, published{topic: topic, payload: payload})
	return fmt.Sprintf("wal-%d", len(o.entries)), nil
}

func (o *fakeOutbox) PendingCount() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(len(o.entries))
}

type fakeUpstream struct {
	records []models.Observation
	err     error
}

func (u *fakeUpstream) FetchObservations(context.Context) ([]models.Observation, error) {
	return u.records, u.err
}

// feedRecorder prepends to a real live feed.
type feedRecorder struct {
	feed *table.LiveFeed
}

func (r *feedRecorder) Record(obs models.Observation) models.Observation {
	return r.feed.Prepend(obs)
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(now time.Time, n int) []models.Observation {
	out := make([]models.Observation, n)
	for i := range out {
		out[i] = models.Observation{
			HiveID:         fmt.Sprintf("HIVE-%d", i+1),
			Temperature:    20,
			Humidity:       50,
			BumbleBeeCount: i,
			Location:       "North Field",
			Timestamp:      now,
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		MQTT: config.MQTTConfig{Topic: "sensors/bee-data", QoS: 1},
		Security: config.SecurityConfig{
			AuthMode:          "none",
			RateLimitDisabled: true,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
	}
}

type testEnv struct {
	handler *Handler
	store   *fakeStore
	broker  *fakeBroker
	outbox  *fakeOutbox
	feed    *table.LiveFeed
}

type envOption func(*Dependencies, *testEnv)

func withBroker(connected bool) envOption {
	return func(d *Dependencies, e *testEnv) {
		e.broker = &fakeBroker{connected: connected}
		d.Broker = e.broker
	}
}

func withOutbox() envOption {
	return func(d *Dependencies, e *testEnv) {
		e.outbox = &fakeOutbox{}
		d.Outbox = e.outbox
	}
}

func withUpstream(u *fakeUpstream) envOption {
	return func(d *Dependencies, _ *testEnv) {
		d.Upstream = u
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		store: &fakeStore{},
		feed:  table.NewLiveFeed(50),
	}
	deps := Dependencies{
		Store:     env.store,
		Recorder:  &feedRecorder{feed: env.feed},
		Feed:      env.feed,
		Generator: fakeGenerator{},
	}
	for _, opt := range opts {
		opt(&deps, env)
	}
	env.handler = NewHandler(testConfig(), deps)
	env.handler.nowFunc = func() time.Time { return testNow }
	return env
}

func do(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

// decodeEnvelope decodes an APIResponse whose data is re-decoded into T.
func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) (models.APIResponse, T) {
	t.Helper()
	var raw struct {
		models.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	var data T
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			t.Fatalf("decode data %s: %v", raw.Data, err)
		}
	}
	return raw.APIResponse, data
}

func newAuthMiddleware(t *testing.T, sec *config.SecurityConfig) *auth.Middleware {
	t.Helper()
	mw, err := auth.NewMiddleware(sec)
	if err != nil {
		t.Fatalf("NewMiddleware() error = %v", err)
	}
	t.Cleanup(mw.Stop)
	return mw
}
