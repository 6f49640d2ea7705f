package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// PaymentMethodBuilder provides a fluent API for building stored payment methods.
type PaymentMethodBuilder struct {
	pm *domain.PaymentMethod
}

// NewPaymentMethod starts a Visa profile that expires next year.
func NewPaymentMethod() *PaymentMethodBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &PaymentMethodBuilder{
		pm: &domain.PaymentMethod{
			KBPaymentMethodID: uuid.New(),
			KBAccountID:       uuid.New(),
			KBTenantID:        uuid.New(),
			Token:             "7012345678901234567890",
			CCType:            StringPtr("visa"),
			CCExpMonth:        IntPtr(12),
			CCExpYear:         IntPtr(now.Year() + 1),
			CCLastDigits:      StringPtr("1111"),
			CreatedAt:         now,
			UpdatedAt:         now,
		},
	}
}

func (b *PaymentMethodBuilder) WithTenantID(id uuid.UUID) *PaymentMethodBuilder {
	b.pm.KBTenantID = id
	return b
}

func (b *PaymentMethodBuilder) WithAccountID(id uuid.UUID) *PaymentMethodBuilder {
	b.pm.KBAccountID = id
	return b
}

func (b *PaymentMethodBuilder) WithKBPaymentMethodID(id uuid.UUID) *PaymentMethodBuilder {
	b.pm.KBPaymentMethodID = id
	return b
}

func (b *PaymentMethodBuilder) WithToken(token string) *PaymentMethodBuilder {
	b.pm.Token = token
	return b
}

func (b *PaymentMethodBuilder) WithExpiry(month, year int) *PaymentMethodBuilder {
	b.pm.CCExpMonth = IntPtr(month)
	b.pm.CCExpYear = IntPtr(year)
	return b
}

func (b *PaymentMethodBuilder) Deleted() *PaymentMethodBuilder {
	b.pm.IsDeleted = true
	return b
}

func (b *PaymentMethodBuilder) Build() *domain.PaymentMethod {
	return b.pm
}
