// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package wal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockPublisher struct {
	mu        sync.Mutex
	connected bool
	fail      error
	published []string
}

func (m *mockPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.published = append(m.published, topic)
	return nil
}

func (m *mockPublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func TestRetryPendingSkipsWhileDisconnected(t *testing.T) {
	t.Parallel()
	w := openTestWAL(t)
	cfg := w.Config()
	pub := &mockPublisher{connected: false}
	loop := NewRetryLoop(w, pub, &cfg)

	_, _ = w.Write(context.Background(), "a", []byte("{}"))
	res := loop.RetryPending(context.Background())
	if res != (RetryResult{}) {
		t.Errorf("result = %+v, want zero", res)
	}
	if w.PendingCount() != 1 {
		t.Error("entry should stay pending")
	}
}

func TestRetryPendingPublishesAndConfirms(t *testing.T) {
	t.Parallel()
	w := openTestWAL(t)
	cfg := w.Config()
	pub := &mockPublisher{connected: true}
	loop := NewRetryLoop(w, pub, &cfg)
	ctx := context.Background()

	_, _ = w.Write(ctx, "a", []byte("{}"))
	_, _ = w.Write(ctx, "b", []byte("{}"))

	res := loop.RetryPending(ctx)
	if res.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", res.Succeeded)
	}
	if pub.count() != 2 {
		t.Errorf("published %d, want 2", pub.count())
	}
	if w.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0", w.PendingCount())
	}
}

func TestRetryPendingRecordsFailuresAndStopsAtMax(t *testing.T) {
	t.Parallel()
	w := openTestWAL(t)
	cfg := w.Config()
	cfg.RetryInterval = time.Nanosecond
	cfg.MaxRetries = 2
	pub := &mockPublisher{connected: true, fail: errors.New("broker busy")}
	loop := NewRetryLoop(w, pub, &cfg)
	ctx := context.Background()

	_, _ = w.Write(ctx, "a", []byte("{}"))

	for i := 0; i < 2; i++ {
		if res := loop.RetryPending(ctx); res.Failed != 1 {
			t.Fatalf("pass %d: Failed = %d, want 1", i, res.Failed)
		}
		time.Sleep(time.Millisecond)
	}
	res := loop.RetryPending(ctx)
	if res.Exhausted != 1 || res.Failed != 0 {
		t.Errorf("third pass = %+v, want one exhausted", res)
	}
	pending, _ := w.GetPending(ctx)
	if len(pending) != 1 || pending[0].Attempts != 2 {
		t.Errorf("pending = %+v", pending)
	}
}

func TestRetryPendingDropsExpired(t *testing.T) {
	t.Parallel()
	w := openTestWAL(t)
	cfg := w.Config()
	cfg.EntryTTL = time.Millisecond
	pub := &mockPublisher{connected: true}
	loop := NewRetryLoop(w, pub, &cfg)
	ctx := context.Background()

	_, _ = w.Write(ctx, "a", []byte("{}"))
	time.Sleep(5 * time.Millisecond)

	res := loop.RetryPending(ctx)
	if res.Expired != 1 || pub.count() != 0 {
		t.Errorf("result = %+v, published = %d", res, pub.count())
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	loop := &RetryLoop{interval: time.Second}
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{20, 5 * time.Minute},
		{100, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := loop.backoff(tt.attempts); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	w := openTestWAL(t)
	cfg := w.Config()
	pub := &mockPublisher{connected: true}
	loop := NewRetryLoop(w, pub, &cfg)

	_, _ = w.Write(context.Background(), "a", []byte("{}"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop")
	}
	if pub.count() == 0 {
		t.Error("entry was never republished")
	}
}
