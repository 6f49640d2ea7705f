package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CallContext identifies who a plugin call is made for.
type CallContext struct {
	TenantID  uuid.UUID
	AccountID uuid.UUID
}

// OperationRequest is the input of every payment operation.
type OperationRequest struct {
	Amount               *decimal.Decimal
	Currency             string
	Properties           Properties
	Call                 CallContext
	PaymentID            uuid.UUID
	PaymentTransactionID uuid.UUID
	PaymentMethodID      uuid.UUID
}

// PaymentTransactionInfo is the classified result returned to the billing platform.
type PaymentTransactionInfo struct {
	CreatedDate       time.Time           `json:"created_date"`
	EffectiveDate     time.Time           `json:"effective_date"`
	Amount            *decimal.Decimal    `json:"amount,omitempty"`
	GatewayError      *string             `json:"gateway_error,omitempty"`
	GatewayErrorCode  *string             `json:"gateway_error_code,omitempty"`
	FirstReferenceID  *string             `json:"first_payment_reference_id,omitempty"`
	SecondReferenceID *string             `json:"second_payment_reference_id,omitempty"`
	Currency          string              `json:"currency,omitempty"`
	Status            PaymentPluginStatus `json:"status"`
	TransactionType   TransactionType     `json:"transaction_type"`
	Properties        Properties          `json:"properties"`
	KBPaymentID       uuid.UUID           `json:"kb_payment_id"`
	KBTransactionID   uuid.UUID           `json:"kb_transaction_payment_id"`
}
