// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMosquittoImage is the Eclipse Mosquitto 2.x image.
	DefaultMosquittoImage = "eclipse-mosquitto:2"

	// DefaultMosquittoPort is the plain MQTT listener.
	DefaultMosquittoPort = "1883/tcp"

	// mosquittoNoAuthConfig ships with the image and enables an anonymous
	// listener on 1883.
	mosquittoNoAuthConfig = "/mosquitto-no-auth.conf"
)

// MosquittoContainer is a running MQTT broker.
type MosquittoContainer struct {
	testcontainers.Container
	Host string
	Port int
}

// MosquittoOption configures the broker container.
type MosquittoOption func(*mosquittoConfig)

type mosquittoConfig struct {
	image        string
	startTimeout time.Duration
}

// WithMosquittoImage overrides the image.
func WithMosquittoImage(image string) MosquittoOption {
	return func(c *mosquittoConfig) {
		c.image = image
	}
}

// WithMosquittoStartTimeout sets how long to wait for the listener.
func WithMosquittoStartTimeout(timeout time.Duration) MosquittoOption {
	return func(c *mosquittoConfig) {
		c.startTimeout = timeout
	}
}

// NewMosquittoContainer starts an anonymous Mosquitto broker and returns
// its mapped host and port.
func NewMosquittoContainer(ctx context.Context, opts ...MosquittoOption) (*MosquittoContainer, error) {
	cfg := &mosquittoConfig{
		image:        DefaultMosquittoImage,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultMosquittoPort},
		Cmd:          []string{"mosquitto", "-c", mosquittoNoAuthConfig},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultMosquittoPort),
			wait.ForLog("running"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mosquitto container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mosquitto host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, DefaultMosquittoPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mosquitto port: %w", err)
	}

	return &MosquittoContainer{
		Container: container,
		Host:      host,
		Port:      mapped.Int(),
	}, nil
}
