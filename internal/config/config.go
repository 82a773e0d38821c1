// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// LLM backends.
const (
	BackendOpenAI = "openai"
	BackendClaude = "claude"
	BackendOllama = "ollama"
	BackendStatic = "static"
)

// Task brokers.
const (
	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"FOLIO_ENV" envDefault:"development"`
	LogLevel   string `env:"FOLIO_LOG_LEVEL" envDefault:"info"`
	ServerHost string `env:"FOLIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"FOLIO_SERVER_PORT" envDefault:"8080"`

	DBDriver string `env:"FOLIO_DB_DRIVER" envDefault:"sqlite"`
	DBPath   string `env:"FOLIO_DB_PATH" envDefault:"./data/folio.db"`

	// Languages
	DefaultLanguage string   `env:"FOLIO_DEFAULT_LANGUAGE" envDefault:"en"`
	Languages       []string `env:"FOLIO_LANGUAGES" envDefault:"en,pl" envSeparator:","`

	// LLM provider
	LLMBackend string        `env:"FOLIO_LLM_BACKEND" envDefault:"openai"`
	LLMAPIKey  string        `env:"FOLIO_LLM_API_KEY"`
	LLMModel   string        `env:"FOLIO_LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMBaseURL string        `env:"FOLIO_LLM_BASE_URL"`
	LLMTimeout time.Duration `env:"FOLIO_LLM_TIMEOUT" envDefault:"120s"`
	LLMRate    float64       `env:"FOLIO_LLM_RATE" envDefault:"2"`

	// Cache configuration
	RedisURL    string        `env:"FOLIO_REDIS_URL"`                         // Optional Redis URL for cache and broker
	CachePrefix string        `env:"FOLIO_CACHE_PREFIX" envDefault:"folio:"` // Redis key prefix
	CacheTTL    time.Duration `env:"FOLIO_CACHE_TTL" envDefault:"0s"`        // 0 keeps entries until invalidated

	// Task queue
	TaskBroker            string        `env:"FOLIO_TASK_BROKER" envDefault:"memory"`
	TaskWorkers           int           `env:"FOLIO_TASK_WORKERS" envDefault:"4"`
	TaskRetryMax          int           `env:"FOLIO_TASK_RETRY_MAX" envDefault:"3"`
	TaskRetryInitialDelay time.Duration `env:"FOLIO_TASK_RETRY_INITIAL_DELAY" envDefault:"60s"`
	TaskRetryMaxDelay     time.Duration `env:"FOLIO_TASK_RETRY_MAX_DELAY" envDefault:"600s"`
	TaskRetryMultiplier   float64       `env:"FOLIO_TASK_RETRY_MULTIPLIER" envDefault:"2"`
	TaskRetryJitter       bool          `env:"FOLIO_TASK_RETRY_JITTER" envDefault:"true"`
	// TriggerAlwaysEnqueue enqueues every target language on each save and
	// leaves skipping already translated fields to the worker.
	TriggerAlwaysEnqueue bool `env:"FOLIO_TRIGGER_ALWAYS_ENQUEUE" envDefault:"false"`

	// Scheduled jobs
	BackfillSchedule    string        `env:"FOLIO_BACKFILL_SCHEDULE" envDefault:"@every 6h"`
	MaintenanceSchedule string        `env:"FOLIO_MAINTENANCE_SCHEDULE" envDefault:"@every 10m"`
	StaleTaskAfter      time.Duration `env:"FOLIO_STALE_TASK_AFTER" envDefault:"30m"`
	TaskRetention       time.Duration `env:"FOLIO_TASK_RETENTION" envDefault:"720h"`
	EventRetention      time.Duration `env:"FOLIO_EVENT_RETENTION" envDefault:"720h"`
	// DisableScheduler turns off all cron jobs, e.g. for a web-only replica.
	DisableScheduler bool `env:"FOLIO_DISABLE_SCHEDULER" envDefault:"false"`

	// Content change webhooks
	WebhookURLs     []string      `env:"FOLIO_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret   string        `env:"FOLIO_WEBHOOK_SECRET"`
	WebhookDebounce time.Duration `env:"FOLIO_WEBHOOK_DEBOUNCE" envDefault:"2s"`

	// Admin API
	AdminUser         string `env:"FOLIO_ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"FOLIO_ADMIN_PASSWORD_HASH"`

	// Seeding configuration
	DoSeed bool `env:"FOLIO_DO_SEED" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// TargetLanguages returns every configured language except the default one.
func (c Config) TargetLanguages() []string {
	out := make([]string, 0, len(c.Languages))
	for _, l := range c.Languages {
		if l != c.DefaultLanguage {
			out = append(out, l)
		}
	}
	return out
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env.Parse cannot express.
func (c *Config) Validate() error {
	var errs []error

	for i, l := range c.Languages {
		c.Languages[i] = strings.TrimSpace(l)
	}
	if !slices.Contains(c.Languages, c.DefaultLanguage) {
		errs = append(errs, fmt.Errorf("FOLIO_DEFAULT_LANGUAGE %q is not listed in FOLIO_LANGUAGES", c.DefaultLanguage))
	}

	switch c.LLMBackend {
	case BackendOpenAI, BackendClaude:
		if c.LLMAPIKey == "" {
			errs = append(errs, fmt.Errorf("FOLIO_LLM_API_KEY is required for the %s backend", c.LLMBackend))
		}
	case BackendOllama, BackendStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown FOLIO_LLM_BACKEND %q", c.LLMBackend))
	}

	switch c.TaskBroker {
	case BrokerMemory:
	case BrokerRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("FOLIO_TASK_BROKER=redis requires FOLIO_REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FOLIO_TASK_BROKER %q", c.TaskBroker))
	}

	if c.TaskWorkers < 1 {
		errs = append(errs, errors.New("FOLIO_TASK_WORKERS must be at least 1"))
	}
	if c.TaskRetryMax < 0 {
		errs = append(errs, errors.New("FOLIO_TASK_RETRY_MAX must not be negative"))
	}
	if c.TaskRetryInitialDelay <= 0 || c.TaskRetryMaxDelay < c.TaskRetryInitialDelay {
		errs = append(errs, errors.New("FOLIO_TASK_RETRY_INITIAL_DELAY must be positive and not exceed FOLIO_TASK_RETRY_MAX_DELAY"))
	}
	if c.TaskRetryMultiplier < 1 {
		errs = append(errs, errors.New("FOLIO_TASK_RETRY_MULTIPLIER must be at least 1"))
	}
	if c.StaleTaskAfter <= 0 {
		errs = append(errs, errors.New("FOLIO_STALE_TASK_AFTER must be positive"))
	}
	for i, u := range c.WebhookURLs {
		c.WebhookURLs[i] = strings.TrimSpace(u)
		parsed, err := url.Parse(c.WebhookURLs[i])
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("FOLIO_WEBHOOK_URLS entry %q is not an http(s) URL", u))
		}
	}
	if c.LLMRate <= 0 {
		errs = append(errs, errors.New("FOLIO_LLM_RATE must be positive"))
	}

	return errors.Join(errs...)
}
