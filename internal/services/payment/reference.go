package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// linkedTypes lists, per follow-on operation, the transaction types it may reference
var linkedTypes = map[domain.TransactionType][]domain.TransactionType{
	domain.TransactionTypeCapture: {domain.TransactionTypeAuthorize},
	domain.TransactionTypeRefund:  {domain.TransactionTypeCapture, domain.TransactionTypePurchase},
	domain.TransactionTypeVoid: {
		domain.TransactionTypeAuthorize,
		domain.TransactionTypeCapture,
		domain.TransactionTypePurchase,
		domain.TransactionTypeCredit,
		domain.TransactionTypeRefund,
	},
}

// reference finds the prior settled transaction a follow-on call points at.
// The request token lives on the response the transaction was settled from.
func (s *Service) reference(ctx context.Context, tenantID, paymentID uuid.UUID, txType domain.TransactionType) (*ports.GatewayReference, error) {
	types, ok := linkedTypes[txType]
	if !ok {
		return nil, domain.ErrValidationFailed.WithDetail("transaction_type", string(txType))
	}

	linked, err := s.ledger.LatestTransaction(ctx, nil, tenantID, paymentID, types...)
	if err != nil {
		return nil, fmt.Errorf("find linked transaction: %w", err)
	}
	if linked == nil || domain.IsBlank(linked.TxnID) {
		return nil, domain.ErrNoCaptureCandidate.
			WithDetail("kb_payment_id", paymentID.String()).
			WithDetail("transaction_type", string(txType))
	}

	amount, currency := amountOf(linked)
	ref := &ports.GatewayReference{
		Amount:    amount,
		Currency:  currency,
		RequestID: *linked.TxnID,
		Type:      linked.TransactionType,
	}

	response, err := s.ledger.Response(ctx, nil, linked.ResponseID)
	if err != nil {
		return nil, fmt.Errorf("load linked response: %w", err)
	}
	if response.Params.RequestToken != nil {
		ref.RequestToken = *response.Params.RequestToken
	}
	return ref, nil
}

// amountOf converts a settled amount back to a decimal
func amountOf(transaction *domain.GatewayTransaction) (*decimal.Decimal, string) {
	if transaction == nil || transaction.Currency == nil {
		return nil, ""
	}
	if transaction.AmountInCents == nil {
		return nil, *transaction.Currency
	}
	amount, err := domain.FromMinorUnits(*transaction.AmountInCents, *transaction.Currency)
	if err != nil {
		return nil, *transaction.Currency
	}
	return &amount, *transaction.Currency
}
