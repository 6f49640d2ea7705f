package fixtures

import (
	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// TransactionBuilder provides a fluent API for building transaction ledger rows.
type TransactionBuilder struct {
	transaction *domain.GatewayTransaction
}

// NewTransactionFor settles the given response, copying its identifiers.
func NewTransactionFor(response *domain.GatewayResponse) *TransactionBuilder {
	return &TransactionBuilder{
		transaction: &domain.GatewayTransaction{
			ResponseID:                response.ID,
			APICall:                   response.APICall,
			TransactionType:           response.TransactionType,
			PaymentProcessorAccountID: response.PaymentProcessorAccountID,
			KBAccountID:               response.KBAccountID,
			KBTenantID:                response.KBTenantID,
			KBPaymentID:               response.KBPaymentID,
			KBPaymentTransactionID:    response.KBPaymentTransactionID,
			TxnID:                     response.Params.RequestID,
			AmountInCents:             Int64Ptr(1000),
			Currency:                  StringPtr("USD"),
			CreatedAt:                 response.CreatedAt,
			UpdatedAt:                 response.CreatedAt,
		},
	}
}

func (b *TransactionBuilder) WithID(id uuid.UUID) *TransactionBuilder {
	b.transaction.ID = id
	return b
}

func (b *TransactionBuilder) WithAmountInCents(cents int64, currency string) *TransactionBuilder {
	b.transaction.AmountInCents = Int64Ptr(cents)
	b.transaction.Currency = StringPtr(currency)
	return b
}

func (b *TransactionBuilder) WithTxnID(txnID string) *TransactionBuilder {
	b.transaction.TxnID = StringPtr(txnID)
	return b
}

func (b *TransactionBuilder) Build() *domain.GatewayTransaction {
	return b.transaction
}
