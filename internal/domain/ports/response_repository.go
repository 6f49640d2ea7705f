package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// ResponseRepository persists the response ledger.
type ResponseRepository interface {
	// Create inserts a new ledger row
	Create(ctx context.Context, db DBTX, response *domain.GatewayResponse) error

	// GetByID returns domain.ErrResponseNotFound when the id does not exist
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.GatewayResponse, error)

	// GetForUpdate is GetByID holding a row lock until db's transaction ends
	GetForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.GatewayResponse, error)

	// ListByPayment returns the rows for a payment, oldest first
	ListByPayment(ctx context.Context, db DBTX, tenantID, paymentID uuid.UUID) ([]*domain.GatewayResponse, error)

	// LatestForTransaction returns the most recent row for (tenant, payment, payment transaction)
	LatestForTransaction(ctx context.Context, db DBTX, tenantID, paymentID, paymentTransactionID uuid.UUID) (*domain.GatewayResponse, error)

	// CountForOperation counts rows for (tenant, payment, payment transaction, api call)
	CountForOperation(ctx context.Context, db DBTX, tenantID, paymentID, paymentTransactionID uuid.UUID, apiCall domain.APICall) (int, error)

	// Update writes the full row only when it differs from what is stored.
	// It reports whether a write happened.
	Update(ctx context.Context, db DBTX, response *domain.GatewayResponse) (bool, error)

	// Rekey moves a row to another payment transaction id
	Rekey(ctx context.Context, db DBTX, id, paymentTransactionID uuid.UUID) error
}
