// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Delivery configuration constants
const (
	MaxAttempts    = 5                // Maximum number of delivery attempts
	InitialBackoff = 10 * time.Second // Initial backoff delay
	MaxBackoff     = 10 * time.Minute // Maximum backoff delay
	RequestTimeout = 30 * time.Second // HTTP request timeout
	MaxResponseLen = 10 * 1024        // Maximum response body to read (10KB)
	UserAgent      = "folio/1.0"      // User-Agent header value
)

// Request headers set on every delivery.
const (
	HeaderSignature  = "X-Webhook-Signature"
	HeaderEvent      = "X-Webhook-Event"
	HeaderDeliveryID = "X-Webhook-Delivery-ID"
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        error
	ShouldRetry  bool
}

// httpClient is the shared HTTP client with appropriate timeouts.
var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// processDelivery attempts a delivery and schedules a retry on a
// retryable failure.
func (d *Dispatcher) processDelivery(ctx context.Context, dl *delivery) {
	result := d.attemptDelivery(ctx, dl)
	if result.Success {
		d.logger.Info("webhook delivered",
			"delivery_id", dl.ID,
			"event", dl.Event,
			"url", dl.Endpoint.URL,
			"status_code", result.StatusCode)
		return
	}

	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}

	if !result.ShouldRetry || dl.Attempt >= d.cfg.MaxAttempts {
		d.logger.Warn("webhook delivery failed permanently",
			"delivery_id", dl.ID,
			"event", dl.Event,
			"url", dl.Endpoint.URL,
			"attempts", dl.Attempt,
			"reason", errMsg)
		return
	}

	backoff := d.backoff(dl.Attempt)
	d.logger.Info("webhook delivery scheduled for retry",
		"delivery_id", dl.ID,
		"attempt", dl.Attempt,
		"backoff", backoff.String(),
		"reason", errMsg)

	next := *dl
	next.Attempt++
	d.retries.Add(1)
	go func() {
		defer d.retries.Done()
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-timer.C:
			d.enqueue(&next)
		case <-d.done:
		case <-ctx.Done():
		}
	}()
}

// attemptDelivery performs the actual HTTP POST request.
func (d *Dispatcher) attemptDelivery(ctx context.Context, dl *delivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dl.Endpoint.URL, bytes.NewReader(dl.Payload))
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("failed to create request: %w", err),
			ShouldRetry: false, // Bad URL, don't retry
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderEvent, dl.Event)
	req.Header.Set(HeaderDeliveryID, dl.ID)
	if dl.Endpoint.Secret != "" {
		req.Header.Set(HeaderSignature, GenerateSignature(dl.Payload, dl.Endpoint.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: true, // Network error, retry
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	responseBody := string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return DeliveryResult{
			Success:      true,
			StatusCode:   resp.StatusCode,
			ResponseBody: responseBody,
		}
	}

	// Client errors are final except 408 Request Timeout and 429 Too Many Requests
	shouldRetry := resp.StatusCode >= 500 ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests
	return DeliveryResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: responseBody,
		Error:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		ShouldRetry:  shouldRetry,
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	return calculateBackoff(attempt, d.cfg.InitialBackoff, d.cfg.MaxBackoff)
}

// calculateBackoff returns initial * 2^(attempt-1), capped at maxBackoff.
// Attempt 1 = initial, attempt 2 = 2*initial, attempt 3 = 4*initial.
func calculateBackoff(attempt int, initial, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	return backoff
}
