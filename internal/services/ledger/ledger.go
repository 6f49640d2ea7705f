// Package ledger records gateway responses and the transactions settled from them.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"github.com/kevin07696/cybersource-plugin/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Requested is the amount the caller asked for. It settles a transaction when
// the gateway answer carries no amount of its own.
type Requested struct {
	Amount   *decimal.Decimal
	Currency string
}

// Service owns every write to the response and transaction ledgers
type Service struct {
	responses    ports.ResponseRepository
	transactions ports.TransactionRepository
	clock        timeutil.Clock
	logger       *zap.Logger
}

// NewService creates a ledger service
func NewService(
	responses ports.ResponseRepository,
	transactions ports.TransactionRepository,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Service{
		responses:    responses,
		transactions: transactions,
		clock:        clock,
		logger:       logger,
	}
}

// Record inserts a new response row. An existing row for the same operation
// is not an error, but it is logged and counted.
func (s *Service) Record(ctx context.Context, db ports.DBTX, response *domain.GatewayResponse) error {
	existing, err := s.responses.CountForOperation(ctx, db,
		response.KBTenantID, response.KBPaymentID, response.KBPaymentTransactionID, response.APICall)
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	if existing > 0 {
		s.logger.Warn("Duplicate response rows for payment transaction",
			zap.String("kb_payment_id", response.KBPaymentID.String()),
			zap.String("kb_payment_transaction_id", response.KBPaymentTransactionID.String()),
			zap.String("api_call", string(response.APICall)),
			zap.Int("existing_rows", existing),
		)
		observability.RecordDuplicateResponse(string(response.APICall))
	}

	now := s.clock.Now()
	if response.ID == uuid.Nil {
		response.ID = uuid.New()
	}
	response.CreatedAt = now
	response.UpdatedAt = now

	if err := s.responses.Create(ctx, db, response); err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}

// Update merges non-blank fields into the row. Nothing is written and
// updated_at stays put when the merge changes nothing, so applying the same
// report twice leaves the row as the first application left it.
func (s *Service) Update(ctx context.Context, db ports.DBTX, id uuid.UUID, fields domain.ResponseFields) (*domain.GatewayResponse, bool, error) {
	response, err := s.responses.GetByID(ctx, db, id)
	if err != nil {
		return nil, false, err
	}

	if !response.Merge(fields) {
		return response, false, nil
	}

	response.UpdatedAt = s.clock.Now()
	written, err := s.responses.Update(ctx, db, response)
	if err != nil {
		return nil, false, fmt.Errorf("update response %s: %w", id, err)
	}
	return response, written, nil
}

// Cancel turns the row into a terminal CANCELED result. A canceled placeholder
// stops being one. Safe to repeat.
func (s *Service) Cancel(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	response, err := s.responses.GetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	message := domain.CancelMessage(response.Message)
	response.Message = &message
	response.Success = false
	response.SkippedGateway = false
	response.UpdatedAt = s.clock.Now()

	if _, err := s.responses.Update(ctx, db, response); err != nil {
		return nil, fmt.Errorf("cancel response %s: %w", id, err)
	}
	return response, nil
}

// CreateFromResponse settles the transaction of a successful response. A
// response that already has a transaction returns it with created false.
func (s *Service) CreateFromResponse(ctx context.Context, db ports.DBTX, response *domain.GatewayResponse, requested Requested) (*domain.GatewayTransaction, bool, error) {
	existing, err := s.transactions.GetByResponseID(ctx, db, response.ID)
	if err != nil {
		return nil, false, fmt.Errorf("create transaction: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	amount, currency, err := settledAmount(response, requested)
	if err != nil {
		return nil, false, err
	}

	now := s.clock.Now()
	transaction := &domain.GatewayTransaction{
		ID:                        uuid.New(),
		ResponseID:                response.ID,
		APICall:                   response.APICall,
		TransactionType:           response.TransactionType,
		PaymentProcessorAccountID: response.PaymentProcessorAccountID,
		KBAccountID:               response.KBAccountID,
		KBTenantID:                response.KBTenantID,
		KBPaymentID:               response.KBPaymentID,
		KBPaymentTransactionID:    response.KBPaymentTransactionID,
		TxnID:                     response.Params.RequestID,
		AmountInCents:             amount,
		Currency:                  currency,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}

	created, err := s.transactions.Create(ctx, db, transaction)
	if err != nil {
		return nil, false, fmt.Errorf("create transaction: %w", err)
	}
	if !created {
		// lost a race with another reconciliation of the same response
		existing, err := s.transactions.GetByResponseID(ctx, db, response.ID)
		if err != nil {
			return nil, false, fmt.Errorf("create transaction: %w", err)
		}
		return existing, false, nil
	}

	if amount != nil && currency != nil {
		observability.RecordSettledAmount(string(transaction.TransactionType), *currency, *amount)
	}
	return transaction, true, nil
}

// Rekey moves a response to another payment transaction id
func (s *Service) Rekey(ctx context.Context, db ports.DBTX, id, paymentTransactionID uuid.UUID) error {
	return s.responses.Rekey(ctx, db, id, paymentTransactionID)
}

// Response returns a ledger row by id
func (s *Service) Response(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	return s.responses.GetByID(ctx, db, id)
}

// Lock re-reads a row and holds it until db's transaction ends. Writers that
// decide from an earlier read must decide again from this one.
func (s *Service) Lock(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	return s.responses.GetForUpdate(ctx, db, id)
}

// Responses lists the rows of a payment, oldest first
func (s *Service) Responses(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID) ([]*domain.GatewayResponse, error) {
	return s.responses.ListByPayment(ctx, db, tenantID, paymentID)
}

// Transaction returns a settled transaction by id
func (s *Service) Transaction(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayTransaction, error) {
	return s.transactions.GetByID(ctx, db, id)
}

// TransactionFor returns the transaction settled from a response, or nil
func (s *Service) TransactionFor(ctx context.Context, db ports.DBTX, responseID uuid.UUID) (*domain.GatewayTransaction, error) {
	return s.transactions.GetByResponseID(ctx, db, responseID)
}

// LatestTransaction returns the newest transaction of a payment, optionally of the given types
func (s *Service) LatestTransaction(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID, types ...domain.TransactionType) (*domain.GatewayTransaction, error) {
	return s.transactions.LatestByPayment(ctx, db, tenantID, paymentID, types...)
}

// settledAmount prefers what the gateway reported; a missing amount stays null
func settledAmount(response *domain.GatewayResponse, requested Requested) (*int64, *string, error) {
	amount, code := response.Params.Amount, response.Params.Currency
	if domain.IsBlank(amount) || domain.IsBlank(code) {
		if requested.Amount == nil || strings.TrimSpace(requested.Currency) == "" {
			return nil, domain.StringPtr(strings.ToUpper(requested.Currency)), nil
		}
		a := requested.Amount.String()
		amount, code = &a, &requested.Currency
	}

	cents, err := domain.ToMinorUnits(*amount, *code)
	if err != nil {
		return nil, nil, fmt.Errorf("create transaction: %w", err)
	}
	currency := strings.ToUpper(strings.TrimSpace(*code))
	return &cents, &currency, nil
}
