package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"go.uber.org/zap"
)

// AWSSecretsManagerConfig configures the AWS Secrets Manager backend.
type AWSSecretsManagerConfig struct {
	Region string
	// Profile selects a shared-config profile, for local development.
	Profile string
	// Endpoint overrides the service URL, e.g. LocalStack.
	Endpoint string
	CacheTTL time.Duration
}

// DefaultAWSSecretsManagerConfig caches for five minutes
func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{Region: region, CacheTTL: 5 * time.Minute}
}

// getSecretValueAPI is the part of the secretsmanager client the backend uses
type getSecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewAWSSecretsManagerAdapter resolves secrets by name or ARN using the default
// AWS credential chain.
func NewAWSSecretsManagerAdapter(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	loadOptions := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		loadOptions = append(loadOptions, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsConfig, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("AWS Secrets Manager backend initialized",
		zap.String("region", cfg.Region),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)
	return newManager("aws", readAWSSecret(client), cfg.CacheTTL, logger), nil
}

func readAWSSecret(client getSecretValueAPI) fetchFunc {
	return func(ctx context.Context, path string) (*ports.Secret, error) {
		out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrSecretNotFound, err)
			}
			return nil, err
		}

		secret := &ports.Secret{
			Value:    aws.ToString(out.SecretString),
			Version:  aws.ToString(out.VersionId),
			Metadata: map[string]string{"name": aws.ToString(out.Name), "arn": aws.ToString(out.ARN)},
		}
		if out.CreatedDate != nil {
			secret.CreatedAt = out.CreatedDate.UTC().Format(time.RFC3339)
		}
		return secret, nil
	}
}
