package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalSecretManager_GetSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tenants", "default"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tenants", "default", "transaction_key"), []byte("plain-key\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tenants", "default", "report"), []byte(`{"value":"report-pass","tags":{"owner":"ops"}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("  \n"), 0o600))

	sm := NewLocalSecretManager(dir, zap.NewNop())

	tests := []struct {
		name      string
		path      string
		wantValue string
		wantErr   error
	}{
		{name: "plain text is trimmed", path: "tenants/default/transaction_key", wantValue: "plain-key"},
		{name: "json value", path: "tenants/default/report", wantValue: "report-pass"},
		{name: "missing", path: "tenants/other/transaction_key", wantErr: ErrSecretNotFound},
		{name: "cannot escape base path", path: "../../etc/passwd", wantErr: ErrSecretNotFound},
		{name: "empty file", path: "empty", wantErr: ErrEmptySecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := sm.GetSecret(context.Background(), tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, secret.Value)
		})
	}
}
