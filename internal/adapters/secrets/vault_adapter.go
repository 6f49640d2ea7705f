package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig configures the Vault backend. AuthMethod is "token" or
// "approle"; KVVersion is "v1" or "v2".
type VaultConfig struct {
	Address    string
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string
	// Namespace is for Vault Enterprise
	Namespace     string
	MountPath     string
	KVVersion     string
	CacheTTL      time.Duration
	TLSSkipVerify bool
}

// DefaultVaultConfig uses token auth against a KV v2 mount named "secret"
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:    address,
		AuthMethod: "token",
		MountPath:  "secret",
		KVVersion:  "v2",
		CacheTTL:   5 * time.Minute,
	}
}

// NewVaultAdapter reads secrets from a KV mount, authenticating with a token
// or AppRole.
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault backend initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)
	return newManager("vault", readVaultSecret(client.Logical(), cfg), cfg.CacheTTL, logger), nil
}

// vaultReader is the part of *vault.Logical the backend uses
type vaultReader interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func readVaultSecret(reader vaultReader, cfg *VaultConfig) fetchFunc {
	v2 := cfg.KVVersion == "v2"
	return func(ctx context.Context, path string) (*ports.Secret, error) {
		fullPath := cfg.MountPath + "/" + path
		if v2 {
			fullPath = cfg.MountPath + "/data/" + path
		}

		secret, err := reader.ReadWithContext(ctx, fullPath)
		if err != nil {
			return nil, err
		}
		if secret == nil {
			return nil, ErrSecretNotFound
		}
		return parseVaultSecret(secret.Data, v2)
	}
}

// parseVaultSecret extracts the value from a KV read; v2 wraps it in "data"
func parseVaultSecret(raw map[string]interface{}, v2 bool) (*ports.Secret, error) {
	secretData := raw
	version := "1"
	var createdTime string

	if v2 {
		data, ok := raw["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid secret format from Vault")
		}
		secretData = data

		if metadata, ok := raw["metadata"].(map[string]interface{}); ok {
			if v, ok := metadata["version"].(json.Number); ok {
				version = v.String()
			}
			if ct, ok := metadata["created_time"].(string); ok {
				createdTime = ct
			}
		}
	}

	value, _ := secretData["value"].(string)
	if value == "" {
		for _, v := range secretData {
			if str, ok := v.(string); ok && str != "" {
				value = str
				break
			}
		}
	}
	if value == "" {
		return nil, ErrEmptySecret
	}

	result := &ports.Secret{
		Value:     value,
		Version:   version,
		CreatedAt: createdTime,
		Metadata:  make(map[string]string),
	}
	for k, v := range secretData {
		if str, ok := v.(string); ok && k != "value" {
			result.Metadata[k] = str
		}
	}
	return result, nil
}
