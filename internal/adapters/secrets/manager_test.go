package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_CachesUntilTTL(t *testing.T) {
	calls := 0
	m := newManager("test", func(_ context.Context, path string) (*ports.Secret, error) {
		calls++
		return &ports.Secret{Value: "value-for-" + path}, nil
	}, time.Minute, zap.NewNop())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		secret, err := m.GetSecret(context.Background(), "transaction_key")
		require.NoError(t, err)
		assert.Equal(t, "value-for-transaction_key", secret.Value)
	}
	assert.Equal(t, 1, calls)

	now = now.Add(time.Minute + time.Second)
	_, err := m.GetSecret(context.Background(), "transaction_key")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entries are fetched again")
}

func TestManager_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fetch   fetchFunc
		wantErr error
	}{
		{
			name:    "backend failure",
			fetch:   func(context.Context, string) (*ports.Secret, error) { return nil, ErrSecretNotFound },
			wantErr: ErrSecretNotFound,
		},
		{
			name:    "blank value",
			fetch:   func(context.Context, string) (*ports.Secret, error) { return &ports.Secret{Value: " \n"}, nil },
			wantErr: ErrEmptySecret,
		},
		{
			name:    "nil secret",
			fetch:   func(context.Context, string) (*ports.Secret, error) { return nil, nil },
			wantErr: ErrEmptySecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager("test", tt.fetch, time.Minute, zap.NewNop())

			_, err := m.GetSecret(context.Background(), "report_password")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorContains(t, err, "test secret report_password")
			assert.Nil(t, m.cache.get("report_password"), "failures are not cached")
		})
	}
}

func TestManager_Close(t *testing.T) {
	m := newManager("test", nil, 0, zap.NewNop())
	assert.NoError(t, m.Close())

	m.closeFn = func() error { return errors.New("closed twice") }
	assert.EqualError(t, m.Close(), "closed twice")
}

func TestSecretCache_ZeroTTLDisables(t *testing.T) {
	cache := newSecretCache(0)
	cache.set("a", &ports.Secret{Value: "key"})
	assert.Nil(t, cache.get("a"))
}
