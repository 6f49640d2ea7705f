package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (transaction key, report password)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for reading secrets referenced from
// tenant configuration (password_secret). The plugin never writes secrets.
//
// Backends: local filesystem, HashiCorp Vault, AWS Secrets Manager, GCP Secret Manager.
// Implementations cache values for a bounded TTL.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - Local: relative file path under the base directory
	//   - AWS: secret name or ARN
	//   - GCP: secret id, latest version
	//   - Vault: path under the KV mount
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
