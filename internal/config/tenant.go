package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/cybersource"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultTenant is the block used by tenants without their own
const DefaultTenant = "default"

// ReportingAccountID names the On-Demand reporting account in a tenant block
const ReportingAccountID = "on_demand"

// AccountBlock is one entry of a tenant's cybersource list. Processor accounts
// use login/password; the on_demand entry uses merchant_id/username/password.
type AccountBlock struct {
	AccountID          string           `mapstructure:"account_id"`
	Login              string           `mapstructure:"login"`
	MerchantID         string           `mapstructure:"merchant_id"`
	Username           string           `mapstructure:"username"`
	Password           string           `mapstructure:"password"`
	PasswordSecret     string           `mapstructure:"password_secret"`
	Test               bool             `mapstructure:"test"`
	IgnoreAVS          bool             `mapstructure:"ignore_avs"`
	IgnoreCVV          bool             `mapstructure:"ignore_cvv"`
	MerchantDescriptor *DescriptorBlock `mapstructure:"merchant_descriptor"`

	CheckForDuplicates bool   `mapstructure:"check_for_duplicates"`
	TestURL            string `mapstructure:"test_url"`
	LiveURL            string `mapstructure:"live_url"`
	OpenTimeout        string `mapstructure:"open_timeout"`
	ReadTimeout        string `mapstructure:"read_timeout"`
	MaxRetries         int    `mapstructure:"max_retries"`
	ProxyAddress       string `mapstructure:"proxy_address"`
	ProxyPort          int    `mapstructure:"proxy_port"`
	ProxyUser          string `mapstructure:"proxy_user"`
	ProxyPassword      string `mapstructure:"proxy_password"`
}

// DescriptorBlock is the merchant descriptor sent as invoice header
type DescriptorBlock struct {
	Name    string `mapstructure:"name"`
	Contact string `mapstructure:"contact"`
}

// TenantBlock is the configuration of one tenant
type TenantBlock struct {
	CyberSource         []AccountBlock `mapstructure:"cybersource"`
	CancelThreshold     string         `mapstructure:"cancel_threshold"`
	AutoCreditThreshold string         `mapstructure:"auto_credit_threshold"`
}

// TenantFile is the root of the YAML tenant configuration
type TenantFile struct {
	Tenants map[string]TenantBlock `mapstructure:"tenants"`
}

// TenantConfig serves per-tenant settings from a YAML file. The file is
// re-read when it changes; every call resolves against the current snapshot.
type TenantConfig struct {
	secrets ports.SecretManagerAdapter
	logger  *zap.Logger

	mu   sync.RWMutex
	file TenantFile
}

var (
	_ domainports.TenantSettingsProvider = (*TenantConfig)(nil)
	_ cybersource.ReportConfigSource     = (*TenantConfig)(nil)
)

// LoadTenantConfig reads path with viper. CYBERSOURCE_* environment variables
// override file keys (CYBERSOURCE_TENANTS_DEFAULT_CANCEL_THRESHOLD).
func LoadTenantConfig(path string, secrets ports.SecretManagerAdapter, logger *zap.Logger) (*TenantConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CYBERSOURCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading tenant config: %w", err)
	}

	tc := &TenantConfig{secrets: secrets, logger: logger}
	if err := tc.load(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := tc.load(v); err != nil {
			logger.Error("Tenant config reload failed, keeping previous", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("Tenant config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return tc, nil
}

// NewTenantConfig builds a TenantConfig from an already decoded file
func NewTenantConfig(file TenantFile, secrets ports.SecretManagerAdapter, logger *zap.Logger) (*TenantConfig, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &TenantConfig{secrets: secrets, logger: logger, file: file}, nil
}

func (c *TenantConfig) load(v *viper.Viper) error {
	var file TenantFile
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("error unmarshaling tenant config: %w", err)
	}
	if err := file.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.file = file
	c.mu.Unlock()
	return nil
}

// Validate checks durations and account ids up front so per-call resolution
// only fails on secret lookups
func (f TenantFile) Validate() error {
	for name, tenant := range f.Tenants {
		if _, err := parseThreshold(tenant.CancelThreshold); err != nil {
			return fmt.Errorf("tenant %s: cancel_threshold: %w", name, err)
		}
		if _, err := parseThreshold(tenant.AutoCreditThreshold); err != nil {
			return fmt.Errorf("tenant %s: auto_credit_threshold: %w", name, err)
		}
		seen := make(map[string]bool, len(tenant.CyberSource))
		for _, account := range tenant.CyberSource {
			id := accountID(account)
			if seen[id] {
				return fmt.Errorf("tenant %s: duplicate account_id %q", name, id)
			}
			seen[id] = true
			if _, err := parseThreshold(account.OpenTimeout); err != nil {
				return fmt.Errorf("tenant %s: %s: open_timeout: %w", name, id, err)
			}
			if _, err := parseThreshold(account.ReadTimeout); err != nil {
				return fmt.Errorf("tenant %s: %s: read_timeout: %w", name, id, err)
			}
		}
	}
	return nil
}

// tenant returns the block of tenantID, falling back to the default block
func (c *TenantConfig) tenant(tenantID uuid.UUID) (TenantBlock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if block, ok := c.file.Tenants[tenantID.String()]; ok {
		return block, true
	}
	block, ok := c.file.Tenants[DefaultTenant]
	return block, ok
}

// Settings implements domainports.TenantSettingsProvider
func (c *TenantConfig) Settings(ctx context.Context, tenantID uuid.UUID) (*domainports.TenantSettings, error) {
	block, ok := c.tenant(tenantID)
	if !ok {
		return &domainports.TenantSettings{}, nil
	}

	settings := &domainports.TenantSettings{
		Accounts: make(map[string]domainports.GatewayAccount, len(block.CyberSource)),
	}
	settings.CancelThreshold, _ = parseThreshold(block.CancelThreshold)
	settings.AutoCreditThreshold, _ = parseThreshold(block.AutoCreditThreshold)

	for _, account := range block.CyberSource {
		id := accountID(account)
		if id == ReportingAccountID {
			continue
		}
		password, err := c.password(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("tenant %s account %s: %w", tenantID, id, err)
		}

		gatewayAccount := domainports.GatewayAccount{
			AccountID: id,
			Credentials: domainports.GatewayCredentials{
				MerchantID:     account.Login,
				TransactionKey: password,
				Test:           account.Test,
			},
			IgnoreAVS: account.IgnoreAVS,
			IgnoreCVV: account.IgnoreCVV,
		}
		if d := account.MerchantDescriptor; d != nil && (d.Name != "" || d.Contact != "") {
			gatewayAccount.MerchantDescriptor = &domainports.MerchantDescriptor{Name: d.Name, Contact: d.Contact}
		}
		settings.Accounts[id] = gatewayAccount
	}

	return settings, nil
}

// ReportConfig implements cybersource.ReportConfigSource. Nil means the tenant
// has no on_demand account.
func (c *TenantConfig) ReportConfig(ctx context.Context, tenantID uuid.UUID) (*cybersource.ReportConfig, error) {
	block, ok := c.tenant(tenantID)
	if !ok {
		return nil, nil
	}

	for _, account := range block.CyberSource {
		if accountID(account) != ReportingAccountID {
			continue
		}
		password, err := c.password(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("tenant %s reporting account: %w", tenantID, err)
		}

		report := &cybersource.ReportConfig{
			MerchantID:         account.MerchantID,
			Username:           account.Username,
			Password:           password,
			TestURL:            account.TestURL,
			LiveURL:            account.LiveURL,
			ProxyAddress:       account.ProxyAddress,
			ProxyPort:          account.ProxyPort,
			ProxyUser:          account.ProxyUser,
			ProxyPassword:      account.ProxyPassword,
			MaxRetries:         account.MaxRetries,
			Test:               account.Test,
			CheckForDuplicates: account.CheckForDuplicates,
		}
		if d, _ := parseThreshold(account.OpenTimeout); d != nil {
			report.OpenTimeout = *d
		}
		if d, _ := parseThreshold(account.ReadTimeout); d != nil {
			report.ReadTimeout = *d
		}
		if report.MerchantID == "" {
			report.MerchantID = account.Login
		}
		return report, nil
	}
	return nil, nil
}

// password returns the inline password or resolves password_secret
func (c *TenantConfig) password(ctx context.Context, account AccountBlock) (string, error) {
	if account.PasswordSecret == "" {
		return account.Password, nil
	}
	if c.secrets == nil {
		return "", domain.ErrGatewayNotConfigured.WithDetail("password_secret", account.PasswordSecret)
	}
	secret, err := c.secrets.GetSecret(ctx, account.PasswordSecret)
	if err != nil {
		c.logger.Error("Failed to resolve password secret",
			zap.String("account_id", accountID(account)),
			zap.String("path", account.PasswordSecret),
			zap.Error(err),
		)
		return "", fmt.Errorf("resolve password_secret: %w", err)
	}
	return secret.Value, nil
}

func accountID(account AccountBlock) string {
	if account.AccountID == "" {
		return domain.DefaultPaymentProcessorAccountID
	}
	return account.AccountID
}

// parseThreshold parses an optional duration; blank means unset
func parseThreshold(s string) (*time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, fmt.Errorf("negative duration %s", s)
	}
	return &d, nil
}
