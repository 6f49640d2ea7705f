package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is a CyberSource profile stored against a billing-platform payment method.
// The token is the CyberSource subscription id; card numbers are never stored.
type PaymentMethod struct {
	// Identity
	ID                uuid.UUID `json:"id"`
	KBPaymentMethodID uuid.UUID `json:"kb_payment_method_id"`

	// Multi-tenant
	KBAccountID uuid.UUID `json:"kb_account_id"`
	KBTenantID  uuid.UUID `json:"kb_tenant_id"`

	// Tokenization
	Token string `json:"token"`

	// Display metadata
	CCFirstName  *string `json:"cc_first_name"`
	CCLastName   *string `json:"cc_last_name"`
	CCType       *string `json:"cc_type"`
	CCExpMonth   *int    `json:"cc_exp_month"`
	CCExpYear    *int    `json:"cc_exp_year"`
	CCLastDigits *string `json:"cc_last_4"`
	Zip          *string `json:"zip"`

	// Status
	IsDefault bool `json:"is_default"`
	IsDeleted bool `json:"is_deleted"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExpired returns true if the card expired before now
func (pm *PaymentMethod) IsExpired(now time.Time) bool {
	if pm.CCExpMonth == nil || pm.CCExpYear == nil {
		return false
	}

	expYear := *pm.CCExpYear
	expMonth := *pm.CCExpMonth

	if expYear < now.Year() {
		return true
	}
	if expYear == now.Year() && expMonth < int(now.Month()) {
		return true
	}

	return false
}

// CanBeUsed returns true if the payment method can be charged
func (pm *PaymentMethod) CanBeUsed(now time.Time) bool {
	if pm.IsDeleted || pm.Token == "" {
		return false
	}
	return !pm.IsExpired(now)
}
