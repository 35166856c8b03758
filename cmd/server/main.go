// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/biodscan/internal/api"
	"github.com/tomtom215/biodscan/internal/auth"
	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/database"
	"github.com/tomtom215/biodscan/internal/ingest"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/mqtt"
	"github.com/tomtom215/biodscan/internal/simulator"
	"github.com/tomtom215/biodscan/internal/supervisor"
	"github.com/tomtom215/biodscan/internal/supervisor/services"
	"github.com/tomtom215/biodscan/internal/table"
	"github.com/tomtom215/biodscan/internal/upstream"
	"github.com/tomtom215/biodscan/internal/wal"
	ws "github.com/tomtom215/biodscan/internal/websocket"
)

// seedSampleSize is how many records SEED_SAMPLE_DATA inserts into an
// empty database.
const seedSampleSize = 48

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().Msg("Starting Bio-D-Scan with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("mqtt_enabled", cfg.MQTT.Enabled).
		Bool("wal_enabled", cfg.WAL.Enabled).
		Bool("simulator_enabled", cfg.Simulator.Enabled).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	generator := simulator.NewGenerator(cfg.Simulator.Location, nil)

	if cfg.Database.SeedData {
		logging.Info().Msg("Sample data seeding enabled (SEED_SAMPLE_DATA=true)")
		sample := generator.Generate(time.Now().UTC(), seedSampleSize)
		if _, err := db.SeedIfEmpty(context.Background(), sample); err != nil {
			logging.Error().Err(err).Msg("Failed to seed sample data")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridges zerolog to slog for sutureslog
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()
	feed := table.NewLiveFeed(cfg.Ingest.LiveFeedSize)

	pipeline, err := ingest.New(&cfg.Ingest, db, feed, wsHub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ingest pipeline")
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ingest pipeline")
		}
	}()

	deps := api.Dependencies{
		Store:     db,
		Recorder:  pipeline,
		Feed:      feed,
		Generator: generator,
		Hub:       wsHub,
	}

	// === MQTT ===
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = initMQTT(&cfg.MQTT, wsHub, pipeline)
		deps.Broker = mqttClient
	} else {
		logging.Info().Msg("MQTT disabled (MQTT_ENABLED=false), simulated data is stored directly")
	}

	// === WAL ===
	walStore := initWAL(&cfg.WAL, mqttClient, tree)
	if walStore != nil {
		deps.Outbox = walStore
		defer func() {
			if err := walStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing WAL")
			}
		}()
	}

	if cfg.Upstream.URL != "" {
		upstreamClient := upstream.New(&cfg.Upstream)
		deps.Upstream = upstreamClient
		logging.Info().Str("endpoint", upstreamClient.Endpoint()).Msg("External bee-data API configured")
	} else {
		logging.Info().Msg("UPSTREAM_URL not set, external bee data is simulated")
	}

	// === AUTH ===
	middleware, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}
	defer middleware.Stop()
	deps.Auth = middleware
	logSecurityWarnings(cfg)

	handler := api.NewHandler(cfg, deps)
	router := api.NewRouter(handler, middleware, &cfg.Security)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(pipeline)
	if mqttClient != nil {
		tree.AddMessagingService(mqtt.NewConnectionService(mqttClient))
	}
	if cfg.Simulator.Enabled {
		tree.AddMessagingService(newScheduler(cfg, generator, mqttClient, walStore, db))
		logging.Info().
			Str("schedule", cfg.Simulator.Schedule).
			Int("hives", cfg.Simulator.Hives).
			Msg("Simulator added to supervisor tree")
	}
	logging.Info().Msg("WebSocket hub and ingest router added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// initMQTT builds the broker client and routes its traffic: received
// messages go to the ingest pipeline, connection changes to the hub.
func initMQTT(cfg *config.MQTTConfig, hub *ws.Hub, pipeline *ingest.Pipeline) *mqtt.Client {
	mqtt.InstallLoggers()
	client := mqtt.New(cfg)

	client.OnMessage(pipeline.HandleMessage)
	client.OnConnectionChange(func(connected bool) {
		hub.BroadcastMQTTStatus(connected, client.Broker())
	})

	logging.Info().
		Str("broker", client.Broker()).
		Str("client_id", client.ClientID()).
		Strs("subscribe_topics", cfg.SubscribeTopics).
		Msg("MQTT client configured")
	return client
}

// initWAL opens the outbox and adds its retry loop and compactor to the
// data layer. It returns nil when the WAL is disabled or has nothing to
// drain into.
func initWAL(cfg *config.WALConfig, client *mqtt.Client, tree *supervisor.SupervisorTree) *wal.BadgerWAL {
	if !cfg.Enabled {
		logging.Warn().Msg("WAL disabled (WAL_ENABLED=false). Publishes made while the broker is down are rejected.")
		return nil
	}
	if client == nil {
		logging.Info().Msg("WAL enabled but MQTT is disabled, skipping WAL")
		return nil
	}

	w, err := wal.Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Path).Msg("Failed to open WAL")
	}

	tree.AddDataService(services.NewWALRetryLoopService(wal.NewRetryLoop(w, client, cfg)))
	tree.AddDataService(services.NewWALCompactorService(w, services.DefaultCompactionInterval))
	logging.Info().
		Str("path", cfg.Path).
		Int64("pending", w.PendingCount()).
		Msg("WAL opened, retry loop and compactor added to supervisor tree")
	return w
}

// newScheduler builds the simulator service. Optional handles are passed
// as untyped nil so the scheduler sees them as absent.
func newScheduler(cfg *config.Config, gen *simulator.Generator, client *mqtt.Client, w *wal.BadgerWAL, db *database.DB) *simulator.Scheduler {
	var publisher simulator.Publisher
	if client != nil {
		publisher = client
	}
	var outbox simulator.Outbox
	if w != nil {
		outbox = w
	}
	return simulator.NewScheduler(&cfg.Simulator, gen, publisher, outbox, db)
}

func logSecurityWarnings(cfg *config.Config) {
	switch cfg.Security.AuthMode {
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  MQTT publish and subscription control is open to anyone")
		logging.Warn().Msg("  who can reach this server. Use only on isolated networks.")
		logging.Warn().Msg("============================================================")
	case "basic":
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	default:
		logging.Info().Str("mode", cfg.Security.AuthMode).Msg("Authentication enabled")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  RECOMMENDED: Set specific origins in production:")
		logging.Warn().Msg("    CORS_ORIGINS=https://dashboard.example.org")
		logging.Warn().Msg("============================================================")
	}

	if cfg.IsDevelopment() {
		logging.Info().Msg("Running in development mode")
	}
}
