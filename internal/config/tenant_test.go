package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenantYAML = `
tenants:
  default:
    cybersource:
      - account_id: default
        login: merchant_default
        password: key_default
        test: true
        merchant_descriptor:
          name: ACME*STORE
          contact: 555-0100
      - account_id: moto
        login: merchant_moto
        password_secret: default/moto_key
        ignore_avs: true
      - account_id: on_demand
        merchant_id: merchant_default
        username: reporter
        password_secret: default/report_password
        test: true
        check_for_duplicates: true
        open_timeout: 5s
        read_timeout: 10s
        max_retries: 3
    cancel_threshold: 30m
    auto_credit_threshold: 240h
  7f0c2f6e-5b3c-4b68-9a43-2c1f6b1c4d10:
    cybersource:
      - login: merchant_tenant
        password: key_tenant
`

var knownTenant = uuid.MustParse("7f0c2f6e-5b3c-4b68-9a43-2c1f6b1c4d10")

func writeTenantConfig(t *testing.T, body string) (configPath, secretsDir string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "cybersource.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))

	secretsDir = filepath.Join(dir, "secrets")
	require.NoError(t, os.MkdirAll(filepath.Join(secretsDir, "default"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "default", "moto_key"), []byte("key_moto"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "default", "report_password"), []byte("report_pass"), 0o600))
	return configPath, secretsDir
}

func loadTenants(t *testing.T, body string) *TenantConfig {
	t.Helper()
	configPath, secretsDir := writeTenantConfig(t, body)
	tc, err := LoadTenantConfig(configPath, secrets.NewLocalSecretManager(secretsDir, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	return tc
}

func TestTenantConfig_Settings(t *testing.T) {
	tc := loadTenants(t, tenantYAML)
	ctx := context.Background()

	t.Run("unknown tenant falls back to default", func(t *testing.T) {
		settings, err := tc.Settings(ctx, uuid.New())
		require.NoError(t, err)

		require.Len(t, settings.Accounts, 2, "on_demand is not a processor account")
		account, ok := settings.Account("default")
		require.True(t, ok)
		assert.Equal(t, "merchant_default", account.Credentials.MerchantID)
		assert.Equal(t, "key_default", account.Credentials.TransactionKey)
		assert.True(t, account.Credentials.Test)
		require.NotNil(t, account.MerchantDescriptor)
		assert.Equal(t, "ACME*STORE", account.MerchantDescriptor.Name)

		moto, ok := settings.Account("moto")
		require.True(t, ok)
		assert.Equal(t, "key_moto", moto.Credentials.TransactionKey)
		assert.True(t, moto.IgnoreAVS)
		assert.Nil(t, moto.MerchantDescriptor)

		require.NotNil(t, settings.CancelThreshold)
		assert.Equal(t, 30*time.Minute, *settings.CancelThreshold)
		require.NotNil(t, settings.AutoCreditThreshold)
		assert.Equal(t, 240*time.Hour, *settings.AutoCreditThreshold)
	})

	t.Run("tenant block replaces default", func(t *testing.T) {
		settings, err := tc.Settings(ctx, knownTenant)
		require.NoError(t, err)

		account, ok := settings.Account("default")
		require.True(t, ok, "blank account_id means default")
		assert.Equal(t, "merchant_tenant", account.Credentials.MerchantID)
		_, ok = settings.Account("moto")
		assert.False(t, ok)
		assert.Nil(t, settings.CancelThreshold)
		assert.Nil(t, settings.AutoCreditThreshold)
	})
}

func TestTenantConfig_ReportConfig(t *testing.T) {
	tc := loadTenants(t, tenantYAML)
	ctx := context.Background()

	report, err := tc.ReportConfig(ctx, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "merchant_default", report.MerchantID)
	assert.Equal(t, "reporter", report.Username)
	assert.Equal(t, "report_pass", report.Password)
	assert.True(t, report.Test)
	assert.True(t, report.CheckForDuplicates)
	assert.Equal(t, 5*time.Second, report.OpenTimeout)
	assert.Equal(t, 10*time.Second, report.ReadTimeout)
	assert.Equal(t, 3, report.MaxRetries)

	report, err = tc.ReportConfig(ctx, knownTenant)
	require.NoError(t, err)
	assert.Nil(t, report, "tenant without an on_demand account")
}

func TestTenantConfig_MissingSecret(t *testing.T) {
	configPath, _ := writeTenantConfig(t, tenantYAML)
	tc, err := LoadTenantConfig(configPath, secrets.NewLocalSecretManager(t.TempDir(), zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	_, err = tc.Settings(context.Background(), uuid.New())
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestTenantConfig_NoTenants(t *testing.T) {
	tc, err := NewTenantConfig(TenantFile{}, nil, zap.NewNop())
	require.NoError(t, err)

	settings, err := tc.Settings(context.Background(), uuid.New())
	require.NoError(t, err)
	_, ok := settings.Account("default")
	assert.False(t, ok)

	report, err := tc.ReportConfig(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestTenantFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tenant  TenantBlock
		wantErr string
	}{
		{
			name:   "valid",
			tenant: TenantBlock{CancelThreshold: "2h", AutoCreditThreshold: "1440h"},
		},
		{
			name:    "bad cancel threshold",
			tenant:  TenantBlock{CancelThreshold: "soon"},
			wantErr: "cancel_threshold",
		},
		{
			name:    "negative auto credit threshold",
			tenant:  TenantBlock{AutoCreditThreshold: "-1h"},
			wantErr: "auto_credit_threshold",
		},
		{
			name: "duplicate account",
			tenant: TenantBlock{CyberSource: []AccountBlock{
				{Login: "a"},
				{AccountID: "default", Login: "b"},
			}},
			wantErr: "duplicate account_id",
		},
		{
			name:    "bad read timeout",
			tenant:  TenantBlock{CyberSource: []AccountBlock{{AccountID: "on_demand", ReadTimeout: "x"}}},
			wantErr: "read_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TenantFile{Tenants: map[string]TenantBlock{"default": tt.tenant}}.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadTenantConfig_Errors(t *testing.T) {
	_, err := LoadTenantConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil, zap.NewNop())
	assert.ErrorContains(t, err, "error reading tenant config")

	configPath, _ := writeTenantConfig(t, "tenants:\n  default:\n    cancel_threshold: later\n")
	_, err = LoadTenantConfig(configPath, nil, zap.NewNop())
	assert.ErrorContains(t, err, "cancel_threshold")
}
