package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsServerConfig configures the side port serving /metrics, /health and /ready.
type MetricsServerConfig struct {
	Port   int
	Health *HealthChecker
	// Ready reports whether the payment API should still receive traffic.
	// Nil means always ready.
	Ready func() bool
}

// MetricsServer is the operational listener kept apart from the payment API.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer builds the server without starting it.
func NewMetricsServer(cfg MetricsServerConfig, logger *zap.Logger) *MetricsServer {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.HealthHandler())
	}

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			http.Error(w, "draining", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.Port),
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests
func (m *MetricsServer) Handler() http.Handler {
	return m.server.Handler
}

// Start serves in the background
func (m *MetricsServer) Start() {
	go func() {
		m.logger.Info("Metrics server listening", zap.String("address", m.server.Addr))
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server error", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting scrapes and waits for open ones up to ctx's deadline.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
