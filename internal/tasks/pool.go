// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Pool runs a fixed number of goroutines that pop messages from a Broker
// and hand them to a Worker.
type Pool struct {
	broker  Broker
	worker  *Worker
	workers int
	logger  *slog.Logger

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

// NewPool creates a pool of n workers.
func NewPool(broker Broker, worker *Worker, n int, logger *slog.Logger) *Pool {
	if n <= 0 {
		n = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{broker: broker, worker: worker, workers: n, logger: logger}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info("starting translation workers", "workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop cancels the workers and waits for them to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.logger.Info("stopping translation workers")
	p.wg.Wait()
	p.logger.Info("translation workers stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	p.logger.Debug("translation worker started", "worker_id", id)

	for {
		msg, err := p.broker.Pop(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoMessage):
			continue
		case errors.Is(err, ErrBrokerClosed), ctx.Err() != nil:
			p.logger.Debug("translation worker stopping", "worker_id", id)
			return
		default:
			p.logger.Error("failed to pop task", "error", err, "worker_id", id)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		p.process(ctx, msg)
	}
}

func (p *Pool) process(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("translation worker panic", append(msg.logAttrs(), "panic", r)...)
		}
	}()

	res := p.worker.Handle(ctx, msg)
	if res.Retry == nil {
		return
	}
	if err := p.broker.Push(context.WithoutCancel(ctx), *res.Retry, res.RetryIn); err != nil {
		p.logger.Error("failed to schedule task retry", append(res.Retry.logAttrs(), "error", err)...)
	}
}
