// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBroker is a Broker backed by a Redis list of ready messages and a
// sorted set of delayed ones scored by their due time in unix milliseconds.
type RedisBroker struct {
	client      *redis.Client
	readyKey    string
	delayedKey  string
	pollTimeout time.Duration
	logger      *slog.Logger
}

// RedisBrokerOptions configures a RedisBroker.
type RedisBrokerOptions struct {
	URL         string
	Prefix      string
	PollTimeout time.Duration
}

// NewRedisBroker connects to Redis and verifies the connection.
func NewRedisBroker(opts RedisBrokerOptions, logger *slog.Logger) (*RedisBroker, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisBroker{
		client:      client,
		readyKey:    opts.Prefix + "tasks:ready",
		delayedKey:  opts.Prefix + "tasks:delayed",
		pollTimeout: opts.PollTimeout,
		logger:      logger,
	}, nil
}

// Push implements Broker.
func (b *RedisBroker) Push(ctx context.Context, msg Message, delay time.Duration) error {
	data, err := msg.encode()
	if err != nil {
		return err
	}
	if delay <= 0 {
		return b.client.LPush(ctx, b.readyKey, data).Err()
	}
	due := time.Now().Add(delay).UnixMilli()
	return b.client.ZAdd(ctx, b.delayedKey, redis.Z{Score: float64(due), Member: data}).Err()
}

// Pop implements Broker. It returns ErrNoMessage after the poll timeout.
func (b *RedisBroker) Pop(ctx context.Context) (Message, error) {
	if err := b.promoteDue(ctx); err != nil && ctx.Err() == nil {
		b.logger.Warn("failed to promote delayed tasks", "error", err)
	}

	res, err := b.client.BRPop(ctx, b.pollTimeout, b.readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Message{}, ErrNoMessage
		}
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		if errors.Is(err, redis.ErrClosed) {
			return Message{}, ErrBrokerClosed
		}
		return Message{}, err
	}
	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return Message{}, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	return decodeMessage([]byte(res[1]))
}

// promoteDue moves delayed messages whose time has come to the ready list.
// ZREM decides ownership when several workers race for the same member.
func (b *RedisBroker) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := b.client.ZRangeByScore(ctx, b.delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 100,
	}).Result()
	if err != nil {
		return err
	}
	for _, member := range members {
		removed, err := b.client.ZRem(ctx, b.delayedKey, member).Result()
		if err != nil {
			return err
		}
		if removed == 1 {
			if err := b.client.LPush(ctx, b.readyKey, member).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of ready and delayed messages.
func (b *RedisBroker) Len(ctx context.Context) (ready, delayed int64, err error) {
	ready, err = b.client.LLen(ctx, b.readyKey).Result()
	if err != nil {
		return 0, 0, err
	}
	delayed, err = b.client.ZCard(ctx, b.delayedKey).Result()
	return ready, delayed, err
}

// Purge removes every queued message.
func (b *RedisBroker) Purge(ctx context.Context) error {
	return b.client.Del(ctx, b.readyKey, b.delayedKey).Err()
}

// Ping checks the Redis connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
