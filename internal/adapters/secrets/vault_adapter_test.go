package secrets

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeVault map[string]*vault.Secret

func (f fakeVault) ReadWithContext(_ context.Context, path string) (*vault.Secret, error) {
	return f[path], nil
}

func TestParseVaultSecret(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]interface{}
		v2          bool
		wantValue   string
		wantVersion string
		wantErr     bool
	}{
		{
			name: "kv v2",
			raw: map[string]interface{}{
				"data":     map[string]interface{}{"value": "transaction-key", "owner": "ops"},
				"metadata": map[string]interface{}{"version": json.Number("3"), "created_time": "2026-03-01T12:00:00Z"},
			},
			v2:          true,
			wantValue:   "transaction-key",
			wantVersion: "3",
		},
		{
			name:        "kv v1 single field",
			raw:         map[string]interface{}{"password": "report-pass"},
			wantValue:   "report-pass",
			wantVersion: "1",
		},
		{
			name:    "kv v2 without data",
			raw:     map[string]interface{}{"value": "x"},
			v2:      true,
			wantErr: true,
		},
		{
			name:    "no string value",
			raw:     map[string]interface{}{"count": 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := parseVaultSecret(tt.raw, tt.v2)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, secret.Value)
			assert.Equal(t, tt.wantVersion, secret.Version)
			assert.NotContains(t, secret.Metadata, "value")
		})
	}
}

func TestGCPNames(t *testing.T) {
	assert.Equal(t, "projects/p1/secrets/report-pass/versions/latest", gcpSecretName("p1", "report-pass"))
	assert.Equal(t, "4", versionFromName("projects/p1/secrets/report-pass/versions/4"))
	assert.Equal(t, "unknown", versionFromName("projects/p1/secrets/report-pass/versions/"))
}

func TestReadVaultSecret_Paths(t *testing.T) {
	reader := fakeVault{
		"kv/data/tenants/default": {Data: map[string]interface{}{"data": map[string]interface{}{"value": "v2-key"}}},
		"legacy/tenants/default":  {Data: map[string]interface{}{"value": "v1-key"}},
	}

	v2 := readVaultSecret(reader, &VaultConfig{MountPath: "kv", KVVersion: "v2"})
	secret, err := v2(context.Background(), "tenants/default")
	require.NoError(t, err)
	assert.Equal(t, "v2-key", secret.Value)

	v1 := readVaultSecret(reader, &VaultConfig{MountPath: "legacy", KVVersion: "v1"})
	secret, err = v1(context.Background(), "tenants/default")
	require.NoError(t, err)
	assert.Equal(t, "v1-key", secret.Value)

	_, err = v2(context.Background(), "tenants/missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

type fakeGCP struct {
	payload string
	err     error
	gotName string
}

func (f *fakeGCP) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.gotName = req.GetName()
	if f.err != nil {
		return nil, f.err
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    "projects/p1/secrets/report-pass/versions/2",
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(f.payload)},
	}, nil
}

func TestReadGCPSecret(t *testing.T) {
	client := &fakeGCP{payload: "report-pass-value"}
	secret, err := readGCPSecret(client, "p1")(context.Background(), "report-pass")
	require.NoError(t, err)
	assert.Equal(t, "projects/p1/secrets/report-pass/versions/latest", client.gotName)
	assert.Equal(t, "report-pass-value", secret.Value)
	assert.Equal(t, "2", secret.Version)

	missing := &fakeGCP{err: status.Error(codes.NotFound, "secret missing")}
	_, err = readGCPSecret(missing, "p1")(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
