package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"i4.energy/across/smsgw/modem"
)

var errQueueFull = errors.New("smsgw: gateway queue is full")

// SMSRequest is a single outbound send, arriving from either the HTTP API
// or the MQTT bridge.
type SMSRequest struct {
	ID      string
	To      string
	Message string
}

// GatewayConfig controls the rate limiter and retry policy of a Gateway.
type GatewayConfig struct {
	// RatePerMin caps accepted sends to this many per rolling 60-second
	// window. Zero or negative disables the limit.
	RatePerMin int
	// MaxRetries is how many times a failed send is retried before being
	// logged as a permanent failure.
	MaxRetries int
}

// rateLimiter is a sliding one-minute-window limiter: Allow reports whether
// another send fits under the cap, pruning timestamps older than a minute
// on every call rather than running a background ticker.
type rateLimiter struct {
	mu  sync.Mutex
	cap int
	win []time.Time
}

func newRateLimiter(cap int) *rateLimiter {
	return &rateLimiter{cap: cap}
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r.cap <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-time.Minute)
	kept := r.win[:0]
	for _, t := range r.win {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.win = kept

	if len(r.win) >= r.cap {
		return false
	}
	r.win = append(r.win, now)
	return true
}

// job tracks a single queued send through its retry lifecycle.
type job struct {
	req      SMSRequest
	attempts int
}

// Gateway sits between the HTTP/MQTT submission surfaces and the modem,
// applying a send-rate cap and jittered retry backoff on transient
// failures. It owns no transport of its own — all actual sends go through
// Modem.SendSMS, which serializes onto the shared atengine dispatch loop.
type Gateway struct {
	cfg     GatewayConfig
	modem   *modem.Modem
	metrics *Metrics
	logger  *slog.Logger

	limit *rateLimiter
	queue chan job
}

// NewGateway constructs a Gateway. Run must be started in its own goroutine
// for queued jobs to actually be processed.
func NewGateway(cfg GatewayConfig, m *modem.Modem, metrics *Metrics, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:     cfg,
		modem:   m,
		metrics: metrics,
		logger:  logger,
		limit:   newRateLimiter(cfg.RatePerMin),
		queue:   make(chan job, 256),
	}
}

// Enqueue accepts a request for asynchronous delivery, assigning an ID if
// the caller didn't supply one, and returns immediately. It reports an
// error only if the queue itself is full — send failures surface via logs
// and the failures metric, not back to the submitter.
func (g *Gateway) Enqueue(req SMSRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	select {
	case g.queue <- job{req: req}:
		g.metrics.queueDepth.Inc()
		return req.ID, nil
	default:
		return "", errQueueFull
	}
}

// Run processes queued jobs until ctx is canceled. Each job first waits on
// the rate limiter, then attempts a send; a transient failure is requeued
// with jittered backoff up to cfg.MaxRetries attempts.
func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-g.queue:
			g.metrics.queueDepth.Dec()
			g.process(ctx, j)
		}
	}
}

func (g *Gateway) process(ctx context.Context, j job) {
	for !g.limit.Allow(time.Now()) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}

	err := g.modem.SendSMS(ctx, j.req.To, j.req.Message)
	if err == nil {
		g.metrics.sendsTotal.Inc()
		g.logger.Info("sms sent", "id", j.req.ID, "to", j.req.To)
		return
	}

	j.attempts++
	if j.attempts > g.cfg.MaxRetries {
		g.metrics.failuresTotal.Inc()
		g.logger.Error("sms send permanently failed", "id", j.req.ID, "to", j.req.To, "attempts", j.attempts, "error", err)
		return
	}

	g.metrics.retriesTotal.Inc()
	backoff := time.Duration(800+rand.Intn(600)) * time.Millisecond
	g.logger.Warn("sms send failed, retrying", "id", j.req.ID, "to", j.req.To, "attempt", j.attempts, "backoff", backoff, "error", err)

	select {
	case <-ctx.Done():
	case <-time.After(backoff):
		select {
		case g.queue <- j:
			g.metrics.queueDepth.Inc()
		case <-ctx.Done():
		}
	}
}
