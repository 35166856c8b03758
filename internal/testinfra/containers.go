// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

//go:build integration

package testinfra

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// SkipIfNoDocker skips the test if Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable checks if the Docker daemon is running and accessible.
func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "info")
	return cmd.Run() == nil
}

// CleanupContainer terminates container and logs, rather than fails, on
// error. Intended for defer.
func CleanupContainer(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()

	if container == nil {
		return
	}
	if err := container.Terminate(ctx); err != nil {
		t.Logf("Warning: failed to terminate container: %v", err)
	}
}

// LogContainerState writes the container's status and mapped ports to the
// test log. Useful when a broker round trip times out.
func LogContainerState(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()

	state, err := container.State(ctx)
	if err != nil {
		t.Logf("container state unavailable: %v", err)
		return
	}
	ports, _ := container.Ports(ctx)
	mapped := make(map[string]string, len(ports))
	for port, bindings := range ports {
		if len(bindings) > 0 {
			mapped[string(port)] = bindings[0].HostPort
		}
	}
	t.Logf("container %s: status=%s started=%s ports=%v",
		container.GetContainerID()[:12], state.Status, state.StartedAt, mapped)
}
