package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(2)
	now := time.Now()

	if !rl.Allow(now) {
		t.Fatal("expected first send to be allowed")
	}
	if !rl.Allow(now) {
		t.Fatal("expected second send to be allowed")
	}
	if rl.Allow(now) {
		t.Fatal("expected third send within the window to be rejected")
	}

	// Once the window has rolled past, capacity frees up again.
	if !rl.Allow(now.Add(61 * time.Second)) {
		t.Fatal("expected send to be allowed once the window has rolled over")
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := newRateLimiter(0)
	now := time.Now()
	for i := 0; i < 100; i++ {
		if !rl.Allow(now) {
			t.Fatalf("expected unlimited rate limiter to always allow, failed at %d", i)
		}
	}
}

func TestGateway_EnqueueAssignsID(t *testing.T) {
	gw := NewGateway(GatewayConfig{RatePerMin: 20, MaxRetries: 3}, nil, newMetrics(prometheus.NewRegistry()), testLogger())

	id, err := gw.Enqueue(SMSRequest{To: "+1234567890", Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated ID")
	}
}

func TestGateway_EnqueueRejectsWhenFull(t *testing.T) {
	gw := NewGateway(GatewayConfig{RatePerMin: 20, MaxRetries: 3}, nil, newMetrics(prometheus.NewRegistry()), testLogger())

	// Run is never started, so the queue fills up and the 257th job must
	// be rejected rather than block the caller.
	for i := 0; i < cap(gw.queue); i++ {
		if _, err := gw.Enqueue(SMSRequest{To: "+1", Message: "x"}); err != nil {
			t.Fatalf("unexpected error filling queue at %d: %v", i, err)
		}
	}

	if _, err := gw.Enqueue(SMSRequest{To: "+1", Message: "x"}); err != errQueueFull {
		t.Fatalf("expected errQueueFull, got: %v", err)
	}
}
