// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DebounceConfig holds debouncer configuration.
type DebounceConfig struct {
	// Interval is the debounce window duration.
	// Events within this window will be coalesced into a single event.
	Interval time.Duration
	// MaxWait is the maximum time to wait before dispatching.
	// Even if events keep coming, dispatch after this time.
	MaxWait time.Duration
}

// DefaultDebounceConfig returns default debounce configuration.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Interval: 2 * time.Second,
		MaxWait:  10 * time.Second,
	}
}

// pendingEvent tracks a debounced event.
type pendingEvent struct {
	event     *Event
	languages map[string]bool
	timer     *time.Timer
	firstSeen time.Time
}

// Debouncer coalesces bursts of events for one entity. A save followed by
// a translation per target language becomes a single delivery per type.
type Debouncer struct {
	dispatcher *Dispatcher
	config     DebounceConfig
	pending    map[string]*pendingEvent
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewDebouncer creates a new event debouncer.
func NewDebouncer(dispatcher *Dispatcher, config DebounceConfig) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		dispatcher: dispatcher,
		config:     config,
		pending:    make(map[string]*pendingEvent),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// eventKey deduplicates events by type and entity.
func eventKey(event *Event) string {
	return fmt.Sprintf("%s:%s:%d", event.Type, event.Data.Kind, event.Data.ID)
}

// Dispatch queues an event for debounced delivery. A zero Interval
// dispatches immediately.
func (d *Debouncer) Dispatch(ctx context.Context, event *Event) error {
	if d.config.Interval <= 0 {
		return d.dispatcher.Dispatch(ctx, event)
	}

	key := eventKey(event)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[key]; ok {
		existing.event = merge(existing, event)

		if d.config.MaxWait > 0 && now.Sub(existing.firstSeen) >= d.config.MaxWait {
			d.dispatchLocked(key)
			return nil
		}

		existing.timer.Reset(d.config.Interval)
		d.dispatcher.logger.Debug("debounced event updated",
			"key", key,
			"wait_time", now.Sub(existing.firstSeen))
		return nil
	}

	pe := &pendingEvent{
		event:     event,
		languages: map[string]bool{},
		firstSeen: now,
	}
	if event.Data.Language != "" {
		pe.languages[event.Data.Language] = true
	}
	pe.timer = time.AfterFunc(d.config.Interval, func() {
		d.mu.Lock()
		d.dispatchLocked(key)
		d.mu.Unlock()
	})

	d.pending[key] = pe
	d.dispatcher.logger.Debug("debounced event queued", "key", key)
	return nil
}

// merge folds next into a pending event. The newest event wins, changed
// fields accumulate and the language is dropped once several languages
// were coalesced.
func merge(pe *pendingEvent, next *Event) *Event {
	merged := *next
	seen := map[string]bool{}
	var fields []string
	for _, f := range append(pe.event.Data.ChangedFields, next.Data.ChangedFields...) {
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	merged.Data.ChangedFields = fields

	if next.Data.Language != "" {
		pe.languages[next.Data.Language] = true
	}
	if len(pe.languages) > 1 {
		merged.Data.Language = ""
	}
	return &merged
}

// dispatchLocked dispatches a pending event. Must be called with lock held.
func (d *Debouncer) dispatchLocked(key string) {
	pe, ok := d.pending[key]
	if !ok {
		return
	}
	pe.timer.Stop()
	delete(d.pending, key)

	d.wg.Add(1)
	go func(event *Event) {
		defer d.wg.Done()
		if err := d.dispatcher.Dispatch(d.ctx, event); err != nil {
			d.dispatcher.logger.Error("failed to dispatch debounced event",
				"error", err,
				"event_type", event.Type)
		}
	}(pe.event)
}

// Flush immediately dispatches all pending events.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.pending {
		d.dispatchLocked(key)
	}
}

// Stop flushes all pending events and waits for them to be queued.
func (d *Debouncer) Stop() {
	d.Flush()
	d.wg.Wait()
	d.cancel()
}

// PendingCount returns the number of pending events.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
