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

	"github.com/gin-gonic/gin"
	authgin "github.com/pilab-dev/homefin-auth/api/gin"
	"github.com/pilab-dev/homefin-auth/config"
	"github.com/pilab-dev/homefin-auth/internal/app"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
	"github.com/pilab-dev/homefin-auth/internal/server"
	"github.com/pilab-dev/homefin-auth/internal/telemetry"
	"github.com/pilab-dev/homefin-auth/log"
	"github.com/pilab-dev/homefin-auth/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("homefin-auth server failed")
	}
}

func run() error {
	cfg, err := config.LoadConfig(os.Getenv("HOMEFIN_AUTH_CONFIG"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := log.Setup(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		return err
	}
	ctx := context.Background()
	appLogger.Info(ctx, "Configuration loaded", map[string]interface{}{
		"http_port":       cfg.HTTPPort,
		"storage_driver":  cfg.StorageDriver,
		"redis":           cfg.RedisAddr != "",
		"session_timeout": cfg.SessionTimeout.String(),
		"session_grace":   cfg.SessionGrace.String(),
	})

	var tp *sdktrace.TracerProvider
	if cfg.OtelTracingEnabled {
		if tp, err = tracing.InitTracerProvider(ctx, cfg.OtelServiceName, os.Stdout); err != nil {
			return err
		}
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	svc := app.NewServices(cfg, stores, nil)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.InitCustomMetrics(registry)
	meterProvider, err := telemetry.InitMeterProvider(registry)
	if err != nil {
		_ = stores.Close(ctx)
		return err
	}

	api := authgin.NewAuthAPI(svc.Auth, svc.TwoFactor, svc.Tokens, svc.Tracker, svc.Limiter, authgin.Options{
		LoginRateLimit:     authgin.RateLimit{Limit: cfg.LoginRateLimit, Window: cfg.LoginRateWindow},
		KeepAliveRateLimit: authgin.RateLimit{Limit: cfg.KeepAliveRateLimit, Window: cfg.KeepAliveRateWindow},
		ExemptPaths:        cfg.SessionExemptPaths,
		LoginPagePath:      cfg.LoginPagePath,
	})
	checks := make([]server.HealthCheck, 0, len(stores.HealthChecks))
	for _, check := range stores.HealthChecks {
		checks = append(checks, check)
	}
	router := server.NewRouter(cfg, appLogger, api, registry, checks...)
	httpServer := server.NewHTTPServer(cfg, router)

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", sig))
	case err := <-serveErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
	}
	telemetry.Shutdown(shutdownCtx, meterProvider)
	if err := stores.Close(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Failed to close stores", err)
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
	return runErr
}
