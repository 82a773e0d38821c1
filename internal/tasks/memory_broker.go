// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryQueueSize is the buffer size of a MemoryBroker.
const DefaultMemoryQueueSize = 1024

// MemoryBroker is an in-process Broker. Messages are lost on restart; the
// backfill job re-enqueues whatever is still missing.
type MemoryBroker struct {
	queue chan Message
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

// NewMemoryBroker creates a broker with the given buffer size.
func NewMemoryBroker(size int) *MemoryBroker {
	if size <= 0 {
		size = DefaultMemoryQueueSize
	}
	return &MemoryBroker{
		queue:  make(chan Message, size),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
	}
}

// Push implements Broker.
func (b *MemoryBroker) Push(ctx context.Context, msg Message, delay time.Duration) error {
	select {
	case <-b.done:
		return ErrBrokerClosed
	default:
	}

	// A full queue fails fast; callers on the request path must not wait
	// for workers to drain it.
	if delay <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case b.queue <- msg:
			return nil
		case <-b.done:
			return ErrBrokerClosed
		default:
			return ErrQueueFull
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		b.mu.Lock()
		delete(b.timers, timer)
		b.mu.Unlock()
		select {
		case b.queue <- msg:
		case <-b.done:
		}
	})
	b.timers[timer] = struct{}{}
	return nil
}

// Pop implements Broker.
func (b *MemoryBroker) Pop(ctx context.Context) (Message, error) {
	select {
	case msg := <-b.queue:
		return msg, nil
	case <-b.done:
		return Message{}, ErrBrokerClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len returns the number of ready messages.
func (b *MemoryBroker) Len() int {
	return len(b.queue)
}

// Pending returns the number of delayed messages not yet ready.
func (b *MemoryBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}

// Close stops delayed deliveries and unblocks Pop.
func (b *MemoryBroker) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.mu.Lock()
		for t := range b.timers {
			t.Stop()
		}
		clear(b.timers)
		b.mu.Unlock()
	})
	return nil
}
