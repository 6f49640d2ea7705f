package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// TransactionRepository persists the settled-transaction ledger
type TransactionRepository interface {
	// Create inserts a transaction. A row already linked to the same response
	// is left alone and created is false.
	Create(ctx context.Context, db DBTX, transaction *domain.GatewayTransaction) (created bool, err error)

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.GatewayTransaction, error)

	// GetByResponseID returns nil, nil when the response has no transaction
	GetByResponseID(ctx context.Context, db DBTX, responseID uuid.UUID) (*domain.GatewayTransaction, error)

	// LatestByPayment returns the most recent transaction for the payment,
	// restricted to types when any are given. Nil, nil when none exists.
	LatestByPayment(ctx context.Context, db DBTX, tenantID, paymentID uuid.UUID, types ...domain.TransactionType) (*domain.GatewayTransaction, error)
}

// PaymentMethodRepository resolves billing-platform payment methods to CyberSource tokens
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PaymentMethod, error)
	GetByKBPaymentMethodID(ctx context.Context, db DBTX, tenantID, kbPaymentMethodID uuid.UUID) (*domain.PaymentMethod, error)
	Create(ctx context.Context, db DBTX, pm *domain.PaymentMethod) error
}
