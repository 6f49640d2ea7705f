package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"go.uber.org/zap"
)

// forceValidationReasonCode: the processor does not support a zero amount
// authorization for this card type.
const forceValidationReasonCode = "234"

// forceValidation retries a rejected zero amount authorization with a real
// amount and voids the retry once it succeeds. The rejected row is moved to a
// random payment transaction id so the retry owns the billing platform's id.
func (s *Service) forceValidation(ctx context.Context, req *domain.OperationRequest, opts domain.Options, failed *dispatchResult) *domain.PaymentTransactionInfo {
	logger := s.logger.With(
		zap.String("kb_payment_id", req.PaymentID.String()),
		zap.String("kb_payment_transaction_id", req.PaymentTransactionID.String()),
	)

	originalID := failed.response.KBPaymentTransactionID
	if err := s.ledger.Rekey(ctx, nil, failed.response.ID, uuid.New()); err != nil {
		logger.Warn("Unable to re-key failed zero amount authorization", zap.Error(err))
		return failed.info
	}

	retry := *req
	amount := opts.ForceValidationAmount
	retry.Amount = &amount
	// the reference code was already submitted once
	retry.Properties = req.Properties.With(domain.PropBypassDuplicateCheck, "true")

	retryOpts, err := domain.ParseOptions(retry.Properties)
	if err != nil {
		return failed.info
	}

	validated, err := s.dispatch(ctx, &retry, retryOpts, domain.TransactionTypeAuthorize)
	if err != nil {
		logger.Warn("Unexpected error while forcing validation", zap.Error(err))
		if err := s.ledger.Rekey(ctx, nil, failed.response.ID, originalID); err != nil {
			logger.Warn("Unable to restore failed zero amount authorization", zap.Error(err))
		}
		return failed.info
	}

	if validated.info.Status == domain.StatusProcessed && validated.info.FirstReferenceID != nil {
		// the billing platform knows nothing of this void
		void := retry
		void.Amount = nil
		void.PaymentTransactionID = uuid.New()
		if _, err := s.dispatch(ctx, &void, retryOpts, domain.TransactionTypeVoid); err != nil {
			logger.Warn("Unexpected error while voiding forced validation", zap.Error(err))
		}
	}

	return validated.info
}
