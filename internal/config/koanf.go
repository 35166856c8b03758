// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/biodscan/config.yaml",
	"/etc/biodscan/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/biodscan.duckdb",
			Name:      "bee_monitoring",
			MaxMemory: "1GB",
		},
		MQTT: MQTTConfig{
			Enabled:         true,
			Host:            "localhost",
			Port:            1883,
			Topic:           "sensors/bee-data",
			SubscribeTopics: []string{"sensors/bee-data", "bio-d-scan/bee-data/#"},
			ClientIDPrefix:  "bio-d-scan-backend",
			QoS:             1,
			KeepAlive:       60 * time.Second,
			ConnectTimeout:  10 * time.Second,
			PublishRate:     20,
			PublishBurst:    10,
		},
		Upstream: UpstreamConfig{
			Timeout: 10 * time.Second,
		},
		Simulator: SimulatorConfig{
			Enabled:  false,
			Schedule: "@every 30s",
			Hives:    5,
			Location: "North Field",
		},
		WAL: WALConfig{
			Enabled:       false,
			Path:          "/data/wal",
			SyncWrites:    true,
			EntryTTL:      24 * time.Hour,
			RetryInterval: 30 * time.Second,
			MaxRetries:    20,
		},
		Ingest: IngestConfig{
			BufferSize:   1024,
			MaxRetries:   3,
			RetryBackoff: 200 * time.Millisecond,
			LiveFeedSize: 500,
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, config file and environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"mqtt.subscribe_topics",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"duckdb_path":       "database.path",
	"database_path":     "database.path",
	"database_name":     "database.name",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_sample_data":  "database.seed_data",

	"mqtt_enabled":          "mqtt.enabled",
	"mqtt_host":             "mqtt.host",
	"mqtt_port":             "mqtt.port",
	"mqtt_tls":              "mqtt.tls",
	"mqtt_topic":            "mqtt.topic",
	"mqtt_subscribe_topics": "mqtt.subscribe_topics",
	"mqtt_username":         "mqtt.username",
	"mqtt_password":         "mqtt.password",
	"mqtt_client_id_prefix": "mqtt.client_id_prefix",
	"mqtt_qos":              "mqtt.qos",
	"mqtt_keepalive":        "mqtt.keepalive",
	"mqtt_connect_timeout":  "mqtt.connect_timeout",
	"mqtt_publish_rate":     "mqtt.publish_rate",
	"mqtt_publish_burst":    "mqtt.publish_burst",

	"upstream_url":     "upstream.url",
	"upstream_timeout": "upstream.timeout",

	"simulator_enabled":  "simulator.enabled",
	"simulator_schedule": "simulator.schedule",
	"simulator_hives":    "simulator.hives",
	"simulator_location": "simulator.location",

	"wal_enabled":        "wal.enabled",
	"wal_path":           "wal.path",
	"wal_sync_writes":    "wal.sync_writes",
	"wal_entry_ttl":      "wal.entry_ttl",
	"wal_retry_interval": "wal.retry_interval",
	"wal_max_retries":    "wal.max_retries",

	"ingest_buffer_size":   "ingest.buffer_size",
	"ingest_max_retries":   "ingest.max_retries",
	"ingest_retry_backoff": "ingest.retry_backoff",
	"live_feed_size":       "ingest.live_feed_size",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
