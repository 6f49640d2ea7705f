package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerConfig configures the Google Cloud Secret Manager backend
type GCPSecretManagerConfig struct {
	ProjectID string
	CacheTTL  time.Duration
}

// DefaultGCPSecretManagerConfig caches for five minutes
func DefaultGCPSecretManagerConfig(projectID string) *GCPSecretManagerConfig {
	return &GCPSecretManagerConfig{ProjectID: projectID, CacheTTL: 5 * time.Minute}
}

// accessSecretAPI is the part of the Secret Manager client the backend uses
type accessSecretAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// NewGCPSecretManager reads the latest version of each secret. Credentials
// come from GOOGLE_APPLICATION_CREDENTIALS or workload identity.
func NewGCPSecretManager(ctx context.Context, cfg *GCPSecretManagerConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager backend initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	m := newManager("gcp", readGCPSecret(client, cfg.ProjectID), cfg.CacheTTL, logger)
	m.closeFn = client.Close
	return m, nil
}

func readGCPSecret(client accessSecretAPI, projectID string) fetchFunc {
	return func(ctx context.Context, path string) (*ports.Secret, error) {
		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: gcpSecretName(projectID, path),
		})
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, errors.Join(ErrSecretNotFound, err)
			}
			return nil, err
		}

		return &ports.Secret{
			Value:   string(resp.GetPayload().GetData()),
			Version: versionFromName(resp.GetName()),
			Metadata: map[string]string{
				"gcp_project_id": projectID,
				"gcp_secret":     path,
			},
		}, nil
	}
}

// gcpSecretName: projects/{project}/secrets/{path}/versions/latest
func gcpSecretName(projectID, path string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, path)
}

// versionFromName extracts {version} from projects/p/secrets/s/versions/{version}
func versionFromName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return "unknown"
}
