package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownOrder(t *testing.T) {
	sm := NewManager(zap.NewNop(), time.Second)

	var order []string
	sm.RegisterNoErr("database", func() { order = append(order, "database") })
	sm.Register("metrics", func(ctx context.Context) error {
		order = append(order, "metrics")
		return errors.New("listener already closed")
	})
	sm.RegisterNoErr("http", func() { order = append(order, "http") })

	failures := sm.Shutdown()

	assert.Equal(t, []string{"http", "metrics", "database"}, order)
	require.Len(t, failures, 1)
	assert.EqualError(t, failures["metrics"], "listener already closed")
}

func TestInFlightTracker_WaitsForRunningWork(t *testing.T) {
	tracker := NewInFlightTracker("test", zap.NewNop())
	require.True(t, tracker.Add())

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(released)
		tracker.Done()
	}()

	require.NoError(t, tracker.Shutdown(context.Background()))
	select {
	case <-released:
	default:
		t.Fatal("Shutdown returned before work finished")
	}
	assert.True(t, tracker.IsShuttingDown())
	assert.False(t, tracker.Add())
}

func TestInFlightTracker_Timeout(t *testing.T) {
	tracker := NewInFlightTracker("test", zap.NewNop())
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}

func TestInFlightTracker_Middleware(t *testing.T) {
	tracker := NewInFlightTracker("http", zap.NewNop())
	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, tracker.Shutdown(context.Background()))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
