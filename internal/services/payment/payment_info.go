package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"go.uber.org/zap"
)

// Property keys attached to every PaymentTransactionInfo
const (
	PropResponseID        = "cybersourceResponseId"
	PropAuthorization     = "authorization"
	PropProcessorResponse = "processorResponse"
)

// GetPaymentInfo lists the results of a payment. Indeterminate rows are run
// through the resolver first; when any of them changed the ledger is re-read.
func (s *Service) GetPaymentInfo(ctx context.Context, call domain.CallContext, paymentID uuid.UUID, props domain.Properties) ([]*domain.PaymentTransactionInfo, error) {
	opts, err := domain.ParseOptions(props)
	if err != nil {
		return nil, err
	}

	responses, err := s.ledger.Responses(ctx, nil, call.TenantID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	stale := false
	for _, response := range responses {
		if !s.classifier.NeedsResolution(response) {
			continue
		}
		resolution, err := s.resolver.Reconcile(ctx, response, opts)
		if err != nil {
			s.logger.Error("Failed to reconcile response",
				zap.String("cybersource_response_id", response.ID.String()),
				zap.Error(err),
			)
			return nil, err
		}
		stale = stale || resolution.Changed()
	}

	if stale {
		if responses, err = s.ledger.Responses(ctx, nil, call.TenantID, paymentID); err != nil {
			return nil, fmt.Errorf("list responses: %w", err)
		}
	}

	infos := make([]*domain.PaymentTransactionInfo, 0, len(responses))
	for _, response := range responses {
		transaction, err := s.ledger.TransactionFor(ctx, nil, response.ID)
		if err != nil {
			return nil, fmt.Errorf("load transaction: %w", err)
		}
		infos = append(infos, s.toInfo(response, transaction, s.classifier.Status(response)))
	}
	return infos, nil
}

// toInfo renders a ledger row for the billing platform. Correlation ids stay
// nil for rows the gateway never answered.
func (s *Service) toInfo(response *domain.GatewayResponse, transaction *domain.GatewayTransaction, status domain.PaymentPluginStatus) *domain.PaymentTransactionInfo {
	info := &domain.PaymentTransactionInfo{
		KBPaymentID:       response.KBPaymentID,
		KBTransactionID:   response.KBPaymentTransactionID,
		TransactionType:   response.TransactionType,
		Status:            status,
		GatewayError:      response.Message,
		GatewayErrorCode:  response.Params.ReasonCode,
		FirstReferenceID:  response.Params.RequestID,
		SecondReferenceID: response.Params.ReconciliationID,
		CreatedDate:       response.CreatedAt,
		EffectiveDate:     response.CreatedAt,
	}

	if transaction != nil {
		info.Amount, info.Currency = amountOf(transaction)
		info.EffectiveDate = transaction.CreatedAt
	}

	props := domain.Properties{{Key: PropResponseID, Value: response.ID.String()}}
	if response.Authorization != nil {
		props = append(props, domain.PluginProperty{Key: PropAuthorization, Value: *response.Authorization})
	}
	if response.Params.ProcessorResponse != nil {
		props = append(props, domain.PluginProperty{Key: PropProcessorResponse, Value: *response.Params.ProcessorResponse})
	}
	info.Properties = props

	return info
}
