package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GatewayAccount is one configured CyberSource processor account
type GatewayAccount struct {
	MerchantDescriptor *MerchantDescriptor
	Credentials        GatewayCredentials
	AccountID          string
	IgnoreAVS          bool
	IgnoreCVV          bool
}

// TenantSettings is the per-tenant plugin configuration
type TenantSettings struct {
	Accounts            map[string]GatewayAccount
	CancelThreshold     *time.Duration
	AutoCreditThreshold *time.Duration
}

// Account returns the processor account with the given id
func (s *TenantSettings) Account(id string) (GatewayAccount, bool) {
	if s == nil {
		return GatewayAccount{}, false
	}
	a, ok := s.Accounts[id]
	return a, ok
}

// TenantSettingsProvider resolves settings per call; implementations must not
// assume settings stay the same between calls.
type TenantSettingsProvider interface {
	Settings(ctx context.Context, tenantID uuid.UUID) (*TenantSettings, error)
}
