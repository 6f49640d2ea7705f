package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"go.uber.org/zap"
)

// NewLocalSecretManager reads secrets from files under basePath. Files hold
// either the bare value or {"value": ..., "tags": {...}}. Development only;
// nothing is cached so edited files apply on the next read.
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return newManager("local", readLocalSecret(basePath), 0, logger)
}

func readLocalSecret(basePath string) fetchFunc {
	return func(_ context.Context, secretPath string) (*ports.Secret, error) {
		// Rooting the path first keeps ".." from leaving basePath.
		filePath := filepath.Join(basePath, filepath.Clean("/"+secretPath))

		data, err := os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrSecretNotFound
			}
			return nil, fmt.Errorf("read secret file: %w", err)
		}

		var doc struct {
			Value     string            `json:"value"`
			Tags      map[string]string `json:"tags"`
			CreatedAt string            `json:"created_at"`
		}
		if json.Unmarshal(data, &doc) == nil && doc.Value != "" {
			return &ports.Secret{Value: doc.Value, Version: "local", Metadata: doc.Tags, CreatedAt: doc.CreatedAt}, nil
		}
		return &ports.Secret{Value: strings.TrimSpace(string(data)), Version: "local"}, nil
	}
}
