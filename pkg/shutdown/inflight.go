package shutdown

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker counts running requests so shutdown can wait for them.
// Gateway calls must not be cut off: an interrupted call leaves an UNDEFINED
// ledger row that only reconciliation can settle.
type InFlightTracker struct {
	wg         sync.WaitGroup
	mu         sync.RWMutex
	shutdownCh chan struct{}
	closeOnce  sync.Once
	logger     *zap.Logger
	name       string
}

// NewInFlightTracker creates a new in-flight work tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		shutdownCh: make(chan struct{}),
		logger:     logger,
		name:       name,
	}
}

// Add registers one unit of work. It returns false once shutdown has begun.
func (ift *InFlightTracker) Add() bool {
	ift.mu.RLock()
	defer ift.mu.RUnlock()

	select {
	case <-ift.shutdownCh:
		return false
	default:
		ift.wg.Add(1)
		return true
	}
}

// Done marks one unit of work as finished
func (ift *InFlightTracker) Done() {
	ift.wg.Done()
}

// IsShuttingDown reports whether Shutdown has been called
func (ift *InFlightTracker) IsShuttingDown() bool {
	select {
	case <-ift.shutdownCh:
		return true
	default:
		return false
	}
}

// Shutdown rejects new work and waits for running work or ctx
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	ift.closeOnce.Do(func() {
		ift.mu.Lock()
		close(ift.shutdownCh)
		ift.mu.Unlock()
	})

	ift.logger.Info("Waiting for in-flight work", zap.String("tracker", ift.name))

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ift.logger.Info("All in-flight work completed", zap.String("tracker", ift.name))
		return nil
	case <-ctx.Done():
		ift.logger.Warn("Shutdown timeout with work still running", zap.String("tracker", ift.name))
		return ctx.Err()
	}
}

// Middleware answers 503 once shutdown has begun and tracks every other request
func (ift *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ift.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer ift.Done()
		next.ServeHTTP(w, r)
	})
}
