// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoMessage is returned by Pop when nothing became ready in time.
	ErrNoMessage = errors.New("no message available")
	// ErrBrokerClosed is returned once a broker has been closed.
	ErrBrokerClosed = errors.New("broker closed")
	// ErrQueueFull is returned by Push when no more messages fit.
	ErrQueueFull = errors.New("queue full")
)

// Broker transports task messages between producers and workers.
type Broker interface {
	// Push makes msg available to Pop after delay. A zero delay means now.
	Push(ctx context.Context, msg Message, delay time.Duration) error
	// Pop blocks until a message is ready, the context ends, or the broker
	// decides to return ErrNoMessage so the caller can re-check its state.
	Pop(ctx context.Context) (Message, error)
	Close() error
}
