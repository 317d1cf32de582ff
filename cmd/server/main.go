package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darkodi/snip/internal/analytics"
	"github.com/darkodi/snip/internal/cache"
	"github.com/darkodi/snip/internal/codegen"
	"github.com/darkodi/snip/internal/config"
	"github.com/darkodi/snip/internal/handler"
	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/middleware"
	"github.com/darkodi/snip/internal/repository"
	"github.com/darkodi/snip/internal/service"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	fmt.Println("📋 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Database: %s\n", cfg.Database.Backend)
		fmt.Printf("   Base URL: %s\n", cfg.App.BaseURL)
	}

	// ============================================================
	// Initialize logger
	// ============================================================
	log := logger.New(cfg.Log)

	log.Info("starting url-shortener",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment,
		"backend", cfg.Database.Backend)

	// ============================================================
	// INITIALIZE STORE
	// ============================================================
	repo, err := repository.NewURLRepository(&cfg.Database)
	if err != nil {
		log.Error("Failed to initialize database", "error", err.Error())
		os.Exit(1)
	}

	// ============================================================
	// INITIALIZE REDIS (optional: cache + click stream)
	// ============================================================
	var urlCache service.URLCache
	var sink analytics.Sink = analytics.NewLogSink(log)

	if cfg.Redis.Enabled() {
		log.Info("connecting to Redis...", "addr", cfg.Redis.Addr)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		cancel()
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis client", "error", err.Error())
			}
		}()

		urlCache = cache.NewRedisCache(redisClient, cfg.Redis.CacheTTL)
		sink = analytics.NewRedisSink(redisClient, cfg.Analytics.Stream, 1_000_000)
		log.Info("Redis connected successfully!")
	}

	var clicks service.ClickRecorder
	var dispatcher *analytics.Dispatcher
	if cfg.Analytics.Enabled {
		dispatcher = analytics.NewDispatcher(sink, analytics.Config{
			BufferSize: cfg.Analytics.BufferSize,
			Workers:    cfg.Analytics.Workers,
			Timeout:    cfg.Analytics.Timeout,
		}, log)
		clicks = dispatcher
	}

	// ============================================================
	// INITIALIZE SERVICES + HANDLERS
	// ============================================================
	shortener := service.NewShortenService(repo, codegen.New(cfg.App.CodeLength), cfg.App.MaxAttempts, log)
	redirector := service.NewRedirectService(repo, urlCache, clicks, log)

	h := handler.NewURLHandler(shortener, redirector, repo, cfg.App.BaseURL, log)
	router := h.SetupRoutes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	wrappedRouter := middleware.Chain(router,
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
		middleware.CORS(middleware.CORSConfig{
			PathPrefix:     "/api/",
			AllowedOrigins: cfg.App.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel to track server errors
	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST /api/shorten        - Create short URL")
			fmt.Println("  GET  /{code}             - Redirect to original")
			fmt.Println("  GET  /api/stats/{code}   - View statistics")
			fmt.Println("  GET  /health             - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	exitCode := 0
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			exitCode = 1
		}

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			// force close if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		// Flush queued click events before the Redis client goes away
		if dispatcher != nil {
			if err := dispatcher.Close(ctx); err != nil {
				log.Warn("click events not fully drained", "error", err.Error())
			}
		}
	}

	if err := repo.Close(); err != nil {
		log.Error("failed to close database", "error", err.Error())
	}
	log.Info("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
