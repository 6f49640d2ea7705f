package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kevin07696/cybersource-plugin/internal/bootstrap"
	"github.com/kevin07696/cybersource-plugin/internal/config"
	paymentHandler "github.com/kevin07696/cybersource-plugin/internal/handlers/payment"
	"github.com/kevin07696/cybersource-plugin/pkg/middleware"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
	"github.com/kevin07696/cybersource-plugin/pkg/shutdown"
)

const poolMonitorInterval = 30 * time.Second

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting CyberSource plugin",
		zap.String("version", "1.0.0"),
		zap.String("secrets_backend", cfg.Secrets.Backend),
		zap.String("tenant_config", cfg.CyberSource.ConfigPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	deps.Database.StartPoolMonitoring(ctx, poolMonitorInterval)

	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	inFlight := shutdown.NewInFlightTracker("http", logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(middleware.Gzip(middleware.DefaultGzipConfig(), logger))
	r.Use(inFlight.Middleware)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.Burst,
			middleware.TenantOrIP(paymentHandler.HeaderTenantID),
			logger,
		)
		r.Use(rateLimiter.Middleware)
	}

	handler := paymentHandler.NewHandler(deps.Payments, deps.Ledger, deps.PaymentMethods, logger).
		WithTimeouts(resilience.TimeoutConfig{
			Operation: cfg.Server.OperationTimeout,
			Lookup:    cfg.Server.LookupTimeout,
		})
	r.Mount(paymentHandler.BasePath, handler.Routes())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsServer := observability.NewMetricsServer(observability.MetricsServerConfig{
		Port:   cfg.Server.MetricsPort,
		Health: observability.NewHealthChecker(deps.DB),
		Ready:  func() bool { return !inFlight.IsShuttingDown() },
	}, logger)
	metricsServer.Start()

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
			zap.String("base_path", paymentHandler.BasePath),
			zap.Int("metrics_port", cfg.Server.MetricsPort),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Components stop in reverse registration order
	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	sm.RegisterNoErr("database", func() {
		cancel()
		deps.Close()
	})
	sm.Register("metrics-server", metricsServer.Shutdown)
	if rateLimiter != nil {
		sm.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)
	}
	sm.Register("in-flight-requests", inFlight.Shutdown)
	sm.Register("http-server", httpServer.Shutdown)

	sm.WaitForShutdown()
	logger.Info("Server stopped")
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("tenant_id", r.Header.Get(paymentHandler.HeaderTenantID)),
			)
		})
	}
}
