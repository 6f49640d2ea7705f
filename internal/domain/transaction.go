package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is the kind of payment operation a response or transaction answers.
type TransactionType string

const (
	TransactionTypeAuthorize TransactionType = "AUTHORIZE"
	TransactionTypeCapture   TransactionType = "CAPTURE"
	TransactionTypePurchase  TransactionType = "PURCHASE"
	TransactionTypeVoid      TransactionType = "VOID"
	TransactionTypeCredit    TransactionType = "CREDIT"
	TransactionTypeRefund    TransactionType = "REFUND"
)

// APICall names the plugin entry point that produced a ledger row.
type APICall string

const (
	APICallAuthorize APICall = "authorize"
	APICallCapture   APICall = "capture"
	APICallPurchase  APICall = "purchase"
	APICallVoid      APICall = "void"
	APICallCredit    APICall = "credit"
	APICallRefund    APICall = "refund"
)

// APICallFor maps a transaction type to the api call recorded in the ledger.
func APICallFor(t TransactionType) APICall {
	switch t {
	case TransactionTypeAuthorize:
		return APICallAuthorize
	case TransactionTypeCapture:
		return APICallCapture
	case TransactionTypePurchase:
		return APICallPurchase
	case TransactionTypeVoid:
		return APICallVoid
	case TransactionTypeCredit:
		return APICallCredit
	case TransactionTypeRefund:
		return APICallRefund
	}
	return APICall(t)
}

// PaymentPluginStatus is the status reported back to the billing platform.
type PaymentPluginStatus string

const (
	StatusProcessed PaymentPluginStatus = "PROCESSED"
	StatusError     PaymentPluginStatus = "ERROR"
	StatusCanceled  PaymentPluginStatus = "CANCELED"
	StatusUndefined PaymentPluginStatus = "UNDEFINED"
)

// IsValid reports whether s is one of the known statuses.
func (s PaymentPluginStatus) IsValid() bool {
	switch s {
	case StatusProcessed, StatusError, StatusCanceled, StatusUndefined:
		return true
	}
	return false
}

// GatewayTransaction is an append-only row for a settled monetary movement.
type GatewayTransaction struct {
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
	AmountInCents             *int64          `json:"amount_in_cents"`
	TxnID                     *string         `json:"txn_id"`
	Currency                  *string         `json:"currency"`
	APICall                   APICall         `json:"api_call"`
	TransactionType           TransactionType `json:"transaction_type"`
	PaymentProcessorAccountID string          `json:"payment_processor_account_id"`
	ID                        uuid.UUID       `json:"id"`
	ResponseID                uuid.UUID       `json:"cybersource_response_id"`
	KBAccountID               uuid.UUID       `json:"kb_account_id"`
	KBTenantID                uuid.UUID       `json:"kb_tenant_id"`
	KBPaymentID               uuid.UUID       `json:"kb_payment_id"`
	KBPaymentTransactionID    uuid.UUID       `json:"kb_payment_transaction_id"`
}
