// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

// Package config loads Bio-D-Scan configuration.
//
// Loading order (Koanf v2, highest priority last):
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file: CONFIG_PATH, ./config.yaml or /etc/biodscan/config.yaml
//  3. Environment variables (see envMappings)
//
// Broker and admin credentials have no defaults; they only ever come from the
// file or the environment.
package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	MQTT      MQTTConfig      `koanf:"mqtt"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Simulator SimulatorConfig `koanf:"simulator"`
	WAL       WALConfig       `koanf:"wal"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	Name      string `koanf:"name"` // logical collection namespace, kept for parity with DATABASE_NAME
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
	SeedData  bool   `koanf:"seed_data"`
}

// MQTTConfig holds broker connection settings.
//
// Environment Variables:
//   - MQTT_ENABLED: connect to the broker at startup (default: true)
//   - MQTT_HOST / MQTT_PORT: broker address (default: localhost:1883)
//   - MQTT_TLS: force TLS; port 8883 always uses TLS
//   - MQTT_TOPIC: topic used for publishing observations (default: sensors/bee-data)
//   - MQTT_SUBSCRIBE_TOPICS: comma-separated topics to ingest
//   - MQTT_USERNAME / MQTT_PASSWORD: broker credentials
//   - MQTT_CLIENT_ID_PREFIX: client id prefix, a random suffix is appended
//   - MQTT_QOS: 0, 1 or 2 (default: 1)
//   - MQTT_KEEPALIVE, MQTT_CONNECT_TIMEOUT: durations
//   - MQTT_PUBLISH_RATE / MQTT_PUBLISH_BURST: outbound publish limiter
type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	TLS             bool          `koanf:"tls"`
	Topic           string        `koanf:"topic"`
	SubscribeTopics []string      `koanf:"subscribe_topics"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	ClientIDPrefix  string        `koanf:"client_id_prefix"`
	QoS             int           `koanf:"qos"`
	KeepAlive       time.Duration `koanf:"keepalive"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	PublishRate     float64       `koanf:"publish_rate"` // messages per second
	PublishBurst    int           `koanf:"publish_burst"`
}

// UseTLS reports whether the broker connection should be encrypted.
func (m MQTTConfig) UseTLS() bool {
	return m.TLS || m.Port == 8883
}

// BrokerURL returns the paho broker URL (tcp:// or ssl://).
func (m MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if m.UseTLS() {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, m.Host, m.Port)
}

// UpstreamConfig points at the external bee-data API. An empty URL means the
// external endpoint is served from the local simulator instead.
type UpstreamConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SimulatorConfig drives the scheduled observation generator.
type SimulatorConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"` // cron spec, e.g. "@every 30s"
	Hives    int    `koanf:"hives"`
	Location string `koanf:"location"`
}

// WALConfig holds the outbound publish write-ahead log settings.
type WALConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	SyncWrites    bool          `koanf:"sync_writes"`
	EntryTTL      time.Duration `koanf:"entry_ttl"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"`
}

// IngestConfig tunes the message ingest pipeline.
type IngestConfig struct {
	BufferSize   int64         `koanf:"buffer_size"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	LiveFeedSize int           `koanf:"live_feed_size"`
}

// SecurityConfig holds authentication, CORS and rate limiting settings
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // none, basic, jwt
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
