// Package scheduler wraps robfig/cron to run the backend health probe and the
// history retention purge.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Health states.
const (
	StatusIdle  = "idle"
	StatusOK    = "ok"
	StatusError = "error"
)

// Prober measures backend round-trip latency.
type Prober interface {
	Health(ctx context.Context) (time.Duration, error)
}

// Purger drops history entries older than maxAge.
type Purger interface {
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// Publisher receives each health result.
type Publisher interface {
	Publish(typ string, data interface{})
}

// Health is the latest probe result.
type Health struct {
	Status    string    `json:"status"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// String renders the result for chat replies.
func (h Health) String() string {
	switch h.Status {
	case StatusOK:
		return fmt.Sprintf("ok (%dms)", h.LatencyMS)
	case StatusError:
		return "error: " + h.Error
	default:
		return "not checked yet"
	}
}

// Engine manages the cron scheduler.
type Engine struct {
	cron      *cron.Cron
	prober    Prober
	purger    Purger
	publisher Publisher
	topic     string
	timeout   time.Duration

	mu     sync.RWMutex
	health Health
}

// New creates a cron-based Engine. Any dependency may be nil to skip its job.
func New(prober Prober, purger Purger, publisher Publisher, topic string) *Engine {
	return &Engine{
		cron:      cron.New(cron.WithSeconds()),
		prober:    prober,
		purger:    purger,
		publisher: publisher,
		topic:     topic,
		timeout:   5 * time.Second,
		health:    Health{Status: StatusIdle},
	}
}

// Start registers the jobs and begins the cron engine. An empty healthSpec
// disables the probe; retention <= 0 disables the purge.
func (e *Engine) Start(ctx context.Context, healthSpec string, retention time.Duration) error {
	if e.prober != nil && healthSpec != "" {
		if _, err := e.cron.AddFunc(healthSpec, func() { e.Probe(ctx) }); err != nil {
			return fmt.Errorf("scheduler.Start: health spec %q: %w", healthSpec, err)
		}
	}
	if e.purger != nil && retention > 0 {
		if _, err := e.cron.AddFunc("@hourly", func() { e.Purge(ctx, retention) }); err != nil {
			return fmt.Errorf("scheduler.Start: purge: %w", err)
		}
	}
	e.cron.Start()
	go func() {
		<-ctx.Done()
		e.cron.Stop()
	}()
	return nil
}

// Probe runs one health check, stores the result and publishes it.
func (e *Engine) Probe(ctx context.Context) Health {
	if e.prober == nil {
		return e.Health()
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	latency, err := e.prober.Health(ctx)
	h := Health{Status: StatusOK, LatencyMS: latency.Milliseconds(), CheckedAt: time.Now().UTC()}
	if err != nil {
		h = Health{Status: StatusError, Error: err.Error(), CheckedAt: h.CheckedAt}
	}

	e.mu.Lock()
	prev := e.health.Status
	e.health = h
	e.mu.Unlock()

	if prev != h.Status {
		log.Printf("scheduler.Probe: backend %s -> %s", prev, h.Status)
	}
	if e.publisher != nil {
		e.publisher.Publish(e.topic, h)
	}
	return h
}

// Purge runs one retention pass. retention <= 0 keeps everything.
func (e *Engine) Purge(ctx context.Context, retention time.Duration) {
	if e.purger == nil || retention <= 0 {
		return
	}
	n, err := e.purger.PurgeOlderThan(ctx, retention)
	if err != nil {
		log.Printf("scheduler.Purge: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler.Purge: removed %d history entries older than %s", n, retention)
	}
}

// Health returns the latest probe result.
func (e *Engine) Health() Health {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health
}

// Next returns when the next job is due, or the zero time.
func (e *Engine) Next() time.Time {
	var next time.Time
	for _, entry := range e.cron.Entries() {
		if next.IsZero() || (!entry.Next.IsZero() && entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}
