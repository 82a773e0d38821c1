// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/hooks"
)

// Endpoint is a receiver of webhook deliveries.
type Endpoint struct {
	URL    string
	Secret string
}

// Config holds dispatcher configuration.
type Config struct {
	Endpoints []Endpoint
	// Workers is the number of concurrent delivery workers.
	Workers int
	// QueueSize bounds deliveries waiting for a worker.
	QueueSize int
	// MaxAttempts is the number of tries per delivery, the first included.
	MaxAttempts int
	// InitialBackoff is the wait before the first retry. It doubles per
	// attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Debounce coalesces events of one entity arriving within the window.
	Debounce DebounceConfig
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        2,
		QueueSize:      100,
		MaxAttempts:    MaxAttempts,
		InitialBackoff: InitialBackoff,
		MaxBackoff:     MaxBackoff,
		Debounce:       DefaultDebounceConfig(),
	}
}

// delivery is one event bound for one endpoint.
type delivery struct {
	ID       string
	Event    string
	Payload  []byte
	Endpoint Endpoint
	Attempt  int
}

// Dispatcher delivers events to every configured endpoint.
type Dispatcher struct {
	cfg       Config
	client    *http.Client
	logger    *slog.Logger
	queue     chan *delivery
	debouncer *Debouncer

	wg      sync.WaitGroup
	retries sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewDispatcher creates a new webhook dispatcher.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = httpClient
	}

	d := &Dispatcher{
		cfg:    cfg,
		client: client,
		logger: logger,
		queue:  make(chan *delivery, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	d.debouncer = NewDebouncer(d, cfg.Debounce)
	return d
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.cfg.Endpoints) > 0
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers, "endpoints", len(d.cfg.Endpoints))
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop flushes debounced events, stops the workers and waits for them to
// finish. Deliveries still waiting for a retry are dropped.
func (d *Dispatcher) Stop() {
	d.debouncer.Stop()

	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.retries.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case dl := <-d.queue:
			d.processDelivery(ctx, dl)
		}
	}
}

// Dispatch queues an event for every endpoint without debouncing.
func (d *Dispatcher) Dispatch(_ context.Context, event *Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.logger.Warn("dispatcher not running, cannot dispatch event", "event_type", event.Type)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.Type, err)
	}

	for _, ep := range d.cfg.Endpoints {
		d.enqueue(&delivery{
			ID:       uuid.NewString(),
			Event:    event.Type,
			Payload:  payload,
			Endpoint: ep,
			Attempt:  1,
		})
	}
	return nil
}

func (d *Dispatcher) enqueue(dl *delivery) {
	select {
	case d.queue <- dl:
		d.logger.Debug("delivery queued", "delivery_id", dl.ID, "url", dl.Endpoint.URL)
	default:
		d.logger.Warn("webhook queue full, delivery dropped", "delivery_id", dl.ID, "event", dl.Event)
	}
}

// OnEntityEvent is the hooks.Func forwarding registry events through the
// debouncer.
func (d *Dispatcher) OnEntityEvent(ctx context.Context, ev hooks.Event) error {
	event, ok := FromHook(ev)
	if !ok {
		return nil
	}
	return d.debouncer.Dispatch(ctx, event)
}

// Register subscribes the dispatcher to entity events. It does nothing when
// no endpoint is configured.
func (d *Dispatcher) Register(r *hooks.Registry) {
	if !d.Enabled() {
		return
	}
	for _, ev := range []string{hooks.EntitySaved, hooks.EntityDeleted, hooks.EntityTranslated} {
		r.Register(ev, hooks.Handler{Name: "webhook.dispatch", Priority: 100, Fn: d.OnEntityEvent})
	}
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
