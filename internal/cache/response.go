// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// KeyPrefix starts every response cache key.
const KeyPrefix = "api_cache:"

// Envelope is the stored form of a cached response.
type Envelope struct {
	Payload json.RawMessage `json:"payload"`
	ETag    string          `json:"etag"`
}

func (e *Envelope) valid() bool {
	return e != nil && len(e.Payload) > 0 && e.ETag != ""
}

// LanguageFunc returns the resolved language of a request.
type LanguageFunc func(r *http.Request) string

// ResponsePrefix returns the key prefix of every cached variant of path.
func ResponsePrefix(path string) string {
	return KeyPrefix + path
}

// ResponseKey builds the cache key of a GET request:
// "api_cache:" + path + ":" + lang + ":" + md5 of the sorted query as JSON.
func ResponseKey(path, lang string, query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([][2]any, 0, len(keys))
	for _, k := range keys {
		values := slices.Clone(query[k])
		slices.Sort(values)
		pairs = append(pairs, [2]any{k, values})
	}

	// Marshal of strings and string slices cannot fail
	data, _ := json.Marshal(pairs)
	sum := md5.Sum(data)
	return ResponsePrefix(path) + ":" + lang + ":" + hex.EncodeToString(sum[:])
}

// CanonicalJSON re-encodes data with sorted object keys, no insignificant
// whitespace and no HTML escaping. It fails on anything that is not a single
// JSON value.
func CanonicalJSON(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ETagOf returns the strong hash of a canonical payload.
func ETagOf(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// ResponseCache caches JSON GET responses per path, language and query.
type ResponseCache struct {
	backend  Cacher
	entries  *TypedCache[Envelope]
	language LanguageFunc
	logger   *slog.Logger
}

// NewResponseCache creates a response cache over backend. Entries live for
// ttl, or until invalidated when ttl is zero.
func NewResponseCache(backend Cacher, language LanguageFunc, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	if logger == nil {
		logger = slog.Default()
	}
	if language == nil {
		language = func(*http.Request) string { return "" }
	}
	return &ResponseCache{
		backend:  backend,
		entries:  NewTypedCache[Envelope](backend, ttl),
		language: language,
		logger:   logger,
	}
}

// Cached wraps a read-only handler with the response cache.
func (rc *ResponseCache) Cached(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := ResponseKey(r.URL.Path, rc.language(r), r.URL.Query())

		if env, ok := rc.lookup(ctx, key); ok {
			rc.serve(w, r, env, "HIT")
			return
		}

		capture := newCaptureWriter()
		next.ServeHTTP(capture, r)

		env, ok := capture.envelope()
		if !ok {
			capture.flushTo(w)
			return
		}
		if err := rc.entries.Set(ctx, key, env); err != nil {
			rc.logger.Warn("response cache write failed", "key", key, "error", err)
		}
		copyHeader(w.Header(), capture.header)
		rc.serve(w, r, env, "MISS")
	})
}

// Middleware is Cached in the shape chi's Use expects.
func (rc *ResponseCache) Middleware(next http.Handler) http.Handler {
	return rc.Cached(next)
}

// lookup returns a usable envelope. Entries of any other shape are deleted.
// Backend failures degrade to a miss.
func (rc *ResponseCache) lookup(ctx context.Context, key string) (*Envelope, bool) {
	env, err := rc.entries.Lookup(ctx, key)
	switch {
	case err == nil && env.valid():
		return env, true
	case err == nil, errors.Is(err, ErrDecode):
		rc.logger.Debug("deleting legacy response cache entry", "key", key)
		if derr := rc.backend.Delete(ctx, key); derr != nil {
			rc.logger.Warn("response cache delete failed", "key", key, "error", derr)
		}
	case errors.Is(err, ErrCacheMiss):
	default:
		rc.logger.Warn("response cache read failed", "key", key, "error", err)
	}
	return nil, false
}

func (rc *ResponseCache) serve(w http.ResponseWriter, r *http.Request, env *Envelope, state string) {
	h := w.Header()
	h.Set("ETag", quoteETag(env.ETag))
	h.Set("X-Cache", state)
	// The payload may be compressed downstream under the same validator.
	addVary(h, "Accept-Encoding")

	if etagMatches(r.Header.Get("If-None-Match"), env.ETag) {
		h.Del("Content-Type")
		h.Del("Content-Length")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(env.Payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(env.Payload)
}

func addVary(h http.Header, field string) {
	for _, v := range h.Values("Vary") {
		for _, f := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(f), field) {
				return
			}
		}
	}
	h.Add("Vary", field)
}

func quoteETag(etag string) string {
	return `"` + etag + `"`
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag {
			return true
		}
	}
	return false
}

// captureWriter buffers a handler's response so it can be inspected before
// anything reaches the client.
type captureWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(p)
}

func (c *captureWriter) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

// envelope returns the cacheable form of a 200 JSON response.
func (c *captureWriter) envelope() (*Envelope, bool) {
	if c.statusCode() != http.StatusOK || c.body.Len() == 0 {
		return nil, false
	}
	mediaType, _, err := mime.ParseMediaType(c.header.Get("Content-Type"))
	if err != nil || (mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json")) {
		return nil, false
	}
	payload, err := CanonicalJSON(c.body.Bytes())
	if err != nil {
		return nil, false
	}
	return &Envelope{Payload: payload, ETag: ETagOf(payload)}, true
}

func (c *captureWriter) flushTo(w http.ResponseWriter) {
	copyHeader(w.Header(), c.header)
	w.WriteHeader(c.statusCode())
	_, _ = w.Write(c.body.Bytes())
}

func copyHeader(dst, src http.Header) {
	for k, v := range src {
		if k == "Content-Length" {
			continue
		}
		dst[k] = slices.Clone(v)
	}
}
