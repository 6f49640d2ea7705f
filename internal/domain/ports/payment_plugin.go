package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// Authorizer authorizes a payment
type Authorizer interface {
	Authorize(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)
}

// Capturer captures a prior authorization
type Capturer interface {
	Capture(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)
}

// Purchaser authorizes and captures in one call
type Purchaser interface {
	Purchase(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)
}

// Voider voids the latest transaction of a payment
type Voider interface {
	Void(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)
}

// Crediter issues a stand-alone credit
type Crediter interface {
	Credit(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)
}

// Refunder refunds a captured payment
type Refunder interface {
	Refund(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)
}

// PaymentInfoGetter lists a payment's results, reconciling indeterminate ones first
type PaymentInfoGetter interface {
	GetPaymentInfo(ctx context.Context, call domain.CallContext, paymentID uuid.UUID, props domain.Properties) ([]*domain.PaymentTransactionInfo, error)
}

// PaymentPlugin is the full operation surface exposed to the billing platform
type PaymentPlugin interface {
	Authorizer
	Capturer
	Purchaser
	Voider
	Crediter
	Refunder
	PaymentInfoGetter
}
