package bootstrap

import (
	"context"
	"fmt"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/secrets"
	"github.com/kevin07696/cybersource-plugin/internal/config"
	"go.uber.org/zap"
)

// NewSecretManager selects the backend that resolves password_secret references.
//
// SECRETS_BACKEND:
//   - local: files under SECRETS_LOCAL_PATH (development)
//   - vault: VAULT_ADDR with VAULT_TOKEN, or VAULT_ROLE_ID and VAULT_SECRET_ID
//   - aws: AWS_REGION, optional AWS_PROFILE and AWS_SECRETS_ENDPOINT
//   - gcp: GCP_PROJECT_ID with GOOGLE_APPLICATION_CREDENTIALS
func NewSecretManager(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case "local":
		logger.Warn("Using local file secret manager - not for production use",
			zap.String("path", cfg.LocalPath),
		)
		return secrets.NewLocalSecretManager(cfg.LocalPath, logger), nil

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.MountPath = cfg.VaultMountPath
		vaultCfg.KVVersion = cfg.VaultKVVersion
		vaultCfg.CacheTTL = cfg.CacheTTL
		if cfg.VaultRoleID != "" {
			vaultCfg.AuthMethod = "approle"
			vaultCfg.RoleID = cfg.VaultRoleID
			vaultCfg.SecretID = cfg.VaultSecretID
		} else {
			vaultCfg.Token = cfg.VaultToken
		}
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		awsCfg.CacheTTL = cfg.CacheTTL
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "gcp":
		gcpCfg := secrets.DefaultGCPSecretManagerConfig(cfg.GCPProjectID)
		gcpCfg.CacheTTL = cfg.CacheTTL
		return secrets.NewGCPSecretManager(ctx, gcpCfg, logger)

	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Backend)
	}
}
