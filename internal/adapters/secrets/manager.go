package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"go.uber.org/zap"
)

var (
	// ErrSecretNotFound is returned when a secret path does not exist
	ErrSecretNotFound = errors.New("secret not found")
	// ErrEmptySecret is returned when the backend holds no usable value
	ErrEmptySecret = errors.New("secret value is empty")
)

// fetchFunc reads one secret from a backend, bypassing any cache.
type fetchFunc func(ctx context.Context, path string) (*ports.Secret, error)

// manager is the SecretManagerAdapter every backend is exposed through. It
// adds the TTL cache, the empty-value check and uniform logging.
type manager struct {
	backend string
	fetch   fetchFunc
	cache   *secretCache
	closeFn func() error
	logger  *zap.Logger
}

func newManager(backend string, fetch fetchFunc, ttl time.Duration, logger *zap.Logger) *manager {
	return &manager{
		backend: backend,
		fetch:   fetch,
		cache:   newSecretCache(ttl),
		logger:  logger.With(zap.String("secrets_backend", backend)),
	}
}

// GetSecret returns the cached value or reads it from the backend.
func (m *manager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := m.cache.get(path); cached != nil {
		m.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	start := time.Now()
	secret, err := m.fetch(ctx, path)
	if err != nil {
		m.logger.Error("Failed to retrieve secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s secret %s: %w", m.backend, path, err)
	}
	if secret == nil || strings.TrimSpace(secret.Value) == "" {
		return nil, fmt.Errorf("%s secret %s: %w", m.backend, path, ErrEmptySecret)
	}

	m.logger.Debug("Secret retrieved",
		zap.String("path", path),
		zap.String("version", secret.Version),
		zap.Duration("elapsed", time.Since(start)),
	)

	m.cache.set(path, secret)
	return secret, nil
}

// Close releases the backend client, if it holds one.
func (m *manager) Close() error {
	if m.closeFn == nil {
		return nil
	}
	return m.closeFn()
}

// secretCache is a per-instance TTL cache. A zero TTL disables it.
type secretCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func newSecretCache(ttl time.Duration) *secretCache {
	return &secretCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *secretCache) get(key string) *ports.Secret {
	if c.ttl <= 0 {
		return nil
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(key string, secret *ports.Secret) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{secret: secret, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
