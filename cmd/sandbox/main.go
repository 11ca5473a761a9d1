// Command sandbox serves an in-memory expense API for local development of
// the console.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/expense-console/internal/config"
	"github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/sandbox"
	"github.com/benvon/expense-console/internal/storage"
	"github.com/benvon/expense-console/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.DebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	signingKey := cfg.SandboxSigningKey
	if signingKey == "" {
		signingKey = uuid.NewString()
		zapLogger.Warn("sandbox_signing_key_not_configured_using_random_key")
	}

	zapLogger.Info("starting_sandbox",
		zap.Bool("debug_mode", debugMode),
		zap.String("port", cfg.SandboxPort),
		zap.Strings("allowed_origins", cfg.SandboxAllowedOrigins),
		zap.String("login_rate", cfg.SandboxLoginRate),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracing := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), sandbox.ServiceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracing = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Login counters live in Redis when the console state does
	var limiterStore storage.Store
	if cfg.Store == config.StoreRedis {
		rs, err := storage.NewRedisStore(context.Background(), cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := rs.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		limiterStore = rs
		zapLogger.Info("connected_to_redis")
	}
	loginStore, err := storage.LimiterStore(limiterStore, "sandbox_login")
	if err != nil {
		zapLogger.Fatal("failed_to_create_limiter_store", zap.Error(err))
	}

	srv, err := sandbox.New(sandbox.Options{
		SigningKey:     signingKey,
		AllowedOrigins: cfg.SandboxAllowedOrigins,
		LoginRate:      cfg.SandboxLoginRate,
		LimiterStore:   loginStore,
		Tracing:        tracing,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_sandbox", zap.Error(err))
	}
	for _, u := range sandbox.DefaultSeed {
		zapLogger.Info("sandbox_account", zap.String("username", u.Username), zap.String("role", u.Role))
	}

	httpServer := &http.Server{
		Addr:           ":" + cfg.SandboxPort,
		Handler:        srv,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   35 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.SandboxPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}
