// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/folio-go/internal/auth"
	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/config"
	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/handler/api"
	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/llm"
	"github.com/olegiv/folio-go/internal/logging"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/scheduler"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/tasks"
	"github.com/olegiv/folio-go/internal/transfer"
	"github.com/olegiv/folio-go/internal/translation"
	"github.com/olegiv/folio-go/internal/trigger"
	"github.com/olegiv/folio-go/internal/version"
	"github.com/olegiv/folio-go/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	hashPassword := flag.String("hash-password", "", "Print the argon2id hash of a password for FOLIO_ADMIN_PASSWORD_HASH and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "folio - portfolio API with LLM translation\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_DB_PATH               SQLite database path (default: ./data/folio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_LANGUAGES             Supported languages (default: en,pl)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_LLM_BACKEND           openai|claude|ollama|static (default: openai)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_LLM_API_KEY           API key of the LLM backend\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_REDIS_URL             Redis URL for the cache and task broker (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ADMIN_PASSWORD_HASH   Admin API password hash (see -hash-password)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "hashing password: %v\n", err)
			os.Exit(1)
		}
		_, _ = fmt.Println(hash)
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(os.Stdout, cfg.IsDevelopment(), logLevel)
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath, "driver", cfg.DBDriver)
	dbCfg := store.DefaultDBConfig()
	dbCfg.Driver = cfg.DBDriver
	db, err := store.NewDBWithConfig(cfg.DBPath, dbCfg)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Also write WARN and ERROR logs to the event log table
	logger = slog.New(logging.NewEventLogHandler(logger.Handler(), db))
	slog.SetDefault(logger)

	queries := store.New(db)
	negotiator := middleware.NewLanguageNegotiator(cfg.DefaultLanguage, cfg.Languages)

	// Response cache
	cacheCfg := cache.DefaultCacheConfig()
	cacheCfg.Prefix = cfg.CachePrefix
	cacheCfg.DefaultTTL = cfg.CacheTTL
	if cfg.UseRedisCache() {
		cacheCfg.Type = cache.CacheBackendRedis
		cacheCfg.RedisURL = cfg.RedisURL
	}
	cacheRes, err := cache.NewCacheWithInfo(cacheCfg)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	cacheManager := cache.NewManager(cacheRes, negotiator.Resolve, cfg.CacheTTL, logger)
	defer func() { _ = cacheManager.Close() }()
	slog.Info("response cache initialized", "backend", cacheRes.BackendType, "fallback", cacheRes.IsFallback)

	// LLM provider and translation service
	provider, err := llm.New(llm.Config{
		Backend: cfg.LLMBackend,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
		Rate:    cfg.LLMRate,
	})
	if err != nil {
		return fmt.Errorf("initializing llm provider: %w", err)
	}
	slog.Info("llm provider initialized", "backend", provider.Name(), "model", cfg.LLMModel)

	registry := hooks.NewRegistry(logger)
	agent := translation.NewAgent(provider, cfg.DefaultLanguage, logger)
	translator := translation.NewService(db, agent, translation.Config{
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       cfg.Languages,
	}, registry, logger)

	// Task queue
	var broker tasks.Broker
	probes := map[string]handler.Pinger{}
	switch cfg.TaskBroker {
	case config.BrokerRedis:
		rb, err := tasks.NewRedisBroker(tasks.RedisBrokerOptions{URL: cfg.RedisURL, Prefix: cfg.CachePrefix}, logger)
		if err != nil {
			return fmt.Errorf("connecting task broker: %w", err)
		}
		broker = rb
		probes["broker"] = rb
	default:
		broker = tasks.NewMemoryBroker(1024)
	}
	defer func() { _ = broker.Close() }()
	if rc, ok := cacheRes.Cache.(*cache.RedisCache); ok {
		probes["cache"] = rc
	}

	queue := tasks.NewQueue(broker, queries, logger)
	worker := tasks.NewWorker(queries, translator, tasks.RetryPolicy{
		MaxRetries:   cfg.TaskRetryMax,
		InitialDelay: cfg.TaskRetryInitialDelay,
		MaxDelay:     cfg.TaskRetryMaxDelay,
		Multiplier:   cfg.TaskRetryMultiplier,
		Jitter:       cfg.TaskRetryJitter,
	}, logger)
	pool := tasks.NewPool(broker, worker, cfg.TaskWorkers, logger)

	// Save hooks: translation trigger, then cache invalidation
	saveTrigger := trigger.New(queries, queue, trigger.Config{
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       cfg.Languages,
		AlwaysEnqueue:   cfg.TriggerAlwaysEnqueue,
	}, logger)
	registry.RegisterFunc(hooks.EntitySaved, "translation.trigger", saveTrigger.OnEntitySaved)
	cacheManager.Invalidator.Register(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Content change webhooks, after cache invalidation
	webhookCfg := webhook.DefaultConfig()
	webhookCfg.Debounce.Interval = cfg.WebhookDebounce
	for _, u := range cfg.WebhookURLs {
		webhookCfg.Endpoints = append(webhookCfg.Endpoints, webhook.Endpoint{URL: u, Secret: cfg.WebhookSecret})
	}
	webhookDispatcher := webhook.NewDispatcher(webhookCfg, logger)
	if webhookDispatcher.Enabled() {
		webhookDispatcher.Register(registry)
		webhookDispatcher.Start(ctx)
		defer webhookDispatcher.Stop()
	}

	pool.Start(ctx)
	defer pool.Stop()

	// Services
	contentService := service.NewContentService(db, registry, service.ContentConfig{
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       cfg.Languages,
	}, logger)
	eventService := service.NewEventService(db, logger)

	if cfg.DoSeed {
		if err := service.Seed(ctx, contentService); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	// Scheduled maintenance. Backfill always uses the strict trigger so it
	// only enqueues pairs that still need work.
	var jobs api.JobRunner
	if !cfg.DisableScheduler {
		backfillTrigger := trigger.New(queries, queue, trigger.Config{
			DefaultLanguage: cfg.DefaultLanguage,
			Languages:       cfg.Languages,
		}, logger)
		sched := scheduler.New(logger)
		for _, job := range []scheduler.Job{
			scheduler.BackfillJob(queries, backfillTrigger, cfg.BackfillSchedule, logger),
			scheduler.ReaperJob(queries, cfg.StaleTaskAfter, cfg.MaintenanceSchedule, logger),
			scheduler.CleanupJob(queries, cfg.TaskRetention, cfg.EventRetention, cfg.MaintenanceSchedule, logger),
		} {
			if err := sched.Add(job); err != nil {
				return fmt.Errorf("scheduling %s: %w", job.Name, err)
			}
		}
		sched.Start()
		defer sched.Stop()
		jobs = sched
	}

	// Admin authentication
	creds := auth.Credentials{User: cfg.AdminUser, PasswordHash: cfg.AdminPasswordHash}
	if !creds.Configured() {
		slog.Warn("admin API disabled: FOLIO_ADMIN_PASSWORD_HASH is not set")
	}
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	apiHandler := api.NewHandler(api.Deps{
		Public:   service.NewPublicService(db, cfg.DefaultLanguage, logger),
		Content:  contentService,
		Events:   eventService,
		Tasks:    queries,
		Trigger:  saveTrigger,
		Cache:    cacheManager,
		Jobs:     jobs,
		Exporter: transfer.NewExporter(queries, cfg.DefaultLanguage, cfg.Languages, logger),
		Importer: transfer.NewImporter(db, registry, cfg.Languages, logger),
		Logger:   logger,
	})
	healthHandler := handler.NewHealthHandler(db, info.Version, probes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(chimw.Compress(5, "application/json"))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)

	// Global rate limiting for the API (100 requests per second with burst of 200)
	apiRateLimiter := middleware.NewGlobalRateLimiter(100, 200)
	r.Mount("/", api.NewRouter(apiHandler, api.Routes{
		Language:  negotiator.Middleware,
		Cache:     cacheManager.Responses.Middleware,
		AdminAuth: middleware.AdminAuth(creds, loginProtection, logger),
		RateLimit: apiRateLimiter.Middleware(),
	}))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
