// Package payment runs the billing platform's payment operations against
// CyberSource and records every outcome in the response ledger.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/internal/services/ledger"
	"github.com/kevin07696/cybersource-plugin/internal/services/reconciliation"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"github.com/kevin07696/cybersource-plugin/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ ports.PaymentPlugin = (*Service)(nil)

// recordTimeout bounds the ledger write that follows a gateway call. The write
// runs detached from the caller's deadline so an answered call is never lost.
const recordTimeout = 10 * time.Second

// Service implements ports.PaymentPlugin
type Service struct {
	db             ports.TransactionManager
	ledger         *ledger.Service
	paymentMethods ports.PaymentMethodRepository
	gateway        ports.PaymentGateway
	reports        ports.ReportAPIProvider
	settings       ports.TenantSettingsProvider
	classifier     *reconciliation.Classifier
	guard          *reconciliation.Guard
	resolver       *reconciliation.Resolver
	creditPolicy   *reconciliation.CreditPolicy
	clock          timeutil.Clock
	logger         *zap.Logger
}

// NewService creates a new payment service
func NewService(
	db ports.TransactionManager,
	ledgerService *ledger.Service,
	paymentMethods ports.PaymentMethodRepository,
	gateway ports.PaymentGateway,
	reports ports.ReportAPIProvider,
	settings ports.TenantSettingsProvider,
	classifier *reconciliation.Classifier,
	resolver *reconciliation.Resolver,
	creditPolicy *reconciliation.CreditPolicy,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Service{
		db:             db,
		ledger:         ledgerService,
		paymentMethods: paymentMethods,
		gateway:        gateway,
		reports:        reports,
		settings:       settings,
		classifier:     classifier,
		guard:          reconciliation.NewGuard(logger),
		resolver:       resolver,
		creditPolicy:   creditPolicy,
		clock:          clock,
		logger:         logger,
	}
}

// Authorize authorizes a payment without capturing funds
func (s *Service) Authorize(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	opts, err := domain.ParseOptions(req.Properties)
	if err != nil {
		return nil, err
	}

	result, err := s.dispatch(ctx, req, opts, domain.TransactionTypeAuthorize)
	if err != nil {
		return nil, err
	}

	if opts.ForceValidation && isZeroAmount(req.Amount) && reasonCode(result.response) == forceValidationReasonCode {
		return s.forceValidation(ctx, req, opts, result), nil
	}
	return result.info, nil
}

// Capture captures the latest authorization of the payment
func (s *Service) Capture(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return s.run(ctx, req, domain.TransactionTypeCapture)
}

// Purchase authorizes and captures in one gateway call
func (s *Service) Purchase(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return s.run(ctx, req, domain.TransactionTypePurchase)
}

// Void reverses an authorization or voids the latest capture, purchase or credit
func (s *Service) Void(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return s.run(ctx, req, domain.TransactionTypeVoid)
}

// Credit issues a stand-alone credit to the stored payment method
func (s *Service) Credit(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return s.run(ctx, req, domain.TransactionTypeCredit)
}

// Refund refunds the latest capture. Payments older than the auto-credit
// threshold are refunded with a stand-alone credit instead.
func (s *Service) Refund(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	opts, err := domain.ParseOptions(req.Properties)
	if err != nil {
		return nil, err
	}

	credit, err := s.creditPolicy.ShouldCredit(ctx, req.Call.TenantID, req.PaymentID, opts)
	if err != nil {
		return nil, err
	}

	txType := domain.TransactionTypeRefund
	if credit {
		txType = domain.TransactionTypeCredit
		observability.RecordAutoCredit()
	}

	result, err := s.dispatch(ctx, req, opts, txType)
	if err != nil {
		return nil, err
	}
	return result.info, nil
}

func (s *Service) run(ctx context.Context, req *domain.OperationRequest, txType domain.TransactionType) (*domain.PaymentTransactionInfo, error) {
	opts, err := domain.ParseOptions(req.Properties)
	if err != nil {
		return nil, err
	}
	result, err := s.dispatch(ctx, req, opts, txType)
	if err != nil {
		return nil, err
	}
	return result.info, nil
}

// dispatchResult is what one recorded operation produced
type dispatchResult struct {
	info        *domain.PaymentTransactionInfo
	response    *domain.GatewayResponse
	transaction *domain.GatewayTransaction
}

// dispatch is the skeleton every operation runs through: resolve the account,
// consult the duplicate guard, call the gateway (or synthesize the reply) and
// record the result with its settled transaction in one database transaction.
func (s *Service) dispatch(ctx context.Context, req *domain.OperationRequest, opts domain.Options, txType domain.TransactionType) (*dispatchResult, error) {
	apiCall := domain.APICallFor(txType)
	mrc := opts.OrderID
	if mrc == "" {
		mrc = req.PaymentTransactionID.String()
	}

	logger := s.logger.With(
		zap.String("api_call", string(apiCall)),
		zap.String("kb_payment_id", req.PaymentID.String()),
		zap.String("kb_payment_transaction_id", req.PaymentTransactionID.String()),
		zap.String("merchant_reference_code", mrc),
	)

	reply, skipped, err := s.reply(ctx, logger, req, opts, txType, mrc)
	if err != nil {
		return nil, err
	}

	response := &domain.GatewayResponse{
		APICall:                   apiCall,
		TransactionType:           txType,
		PaymentProcessorAccountID: opts.PaymentProcessorAccountID,
		KBTenantID:                req.Call.TenantID,
		KBAccountID:               req.Call.AccountID,
		KBPaymentID:               req.PaymentID,
		KBPaymentTransactionID:    req.PaymentTransactionID,
		// kept even when the gateway never answered, for the resolver
		Params: domain.GatewayParams{MerchantReferenceCode: domain.StringPtr(mrc)},
	}
	fields := reply.Fields()
	fields.SkippedGateway = domain.BoolPtr(skipped)
	response.Merge(fields)

	status := s.classifier.Status(response)
	requested := ledger.Requested{Amount: req.Amount, Currency: req.Currency}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	var transaction *domain.GatewayTransaction
	err = s.db.WithTransaction(recordCtx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.ledger.Record(ctx, tx, response); err != nil {
			return err
		}
		if status != domain.StatusProcessed {
			return nil
		}
		created, _, err := s.ledger.CreateFromResponse(ctx, tx, response, requested)
		if err != nil {
			return err
		}
		transaction = created
		return nil
	})
	if err != nil {
		logger.Error("Failed to record gateway response", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", apiCall, err)
	}

	observability.RecordPaymentOperation(string(apiCall), string(status), reasonCode(response))
	logger.Info("Payment operation completed",
		zap.String("cybersource_response_id", response.ID.String()),
		zap.String("status", string(status)),
		zap.Bool("skipped_gateway", skipped),
	)

	return &dispatchResult{
		info:        s.toInfo(response, transaction, status),
		response:    response,
		transaction: transaction,
	}, nil
}

// reply produces the gateway answer for the call: synthesized when the caller
// skips the gateway or the guard finds the reference code already submitted.
func (s *Service) reply(
	ctx context.Context,
	logger *zap.Logger,
	req *domain.OperationRequest,
	opts domain.Options,
	txType domain.TransactionType,
	mrc string,
) (*ports.GatewayReply, bool, error) {
	if opts.SkipGateway {
		return reconciliation.SkippedReply(mrc), true, nil
	}

	settings, err := s.settings.Settings(ctx, req.Call.TenantID)
	if err != nil {
		return nil, false, fmt.Errorf("load tenant settings: %w", err)
	}
	account, ok := settings.Account(opts.PaymentProcessorAccountID)
	if !ok {
		return nil, false, domain.ErrGatewayNotConfigured.
			WithDetail("kb_tenant_id", req.Call.TenantID.String()).
			WithDetail("payment_processor_account_id", opts.PaymentProcessorAccountID)
	}

	gatewayReq, err := s.buildRequest(ctx, req, opts, account, txType, mrc)
	if err != nil {
		return nil, false, err
	}

	api, err := s.reports.ForTenant(ctx, req.Call.TenantID, opts)
	if err != nil {
		logger.Warn("Unable to look up reporting API", zap.Error(err))
		api = nil
	}
	decision := s.guard.Check(ctx, api, reconciliation.GuardRequest{
		Date:                  s.clock.Now(),
		MerchantReferenceCode: mrc,
		APICall:               domain.APICallFor(txType),
	}, opts)
	if decision.Skip {
		return decision.Reply(mrc), true, nil
	}

	reply, err := s.gateway.Process(ctx, gatewayReq)
	if err != nil {
		return nil, false, err
	}
	return reply, false, nil
}

// buildRequest resolves everything the gateway request needs before any
// network call: credentials, payment source and linked prior transaction.
func (s *Service) buildRequest(
	ctx context.Context,
	req *domain.OperationRequest,
	opts domain.Options,
	account ports.GatewayAccount,
	txType domain.TransactionType,
	mrc string,
) (*ports.GatewayRequest, error) {
	gatewayReq := &ports.GatewayRequest{
		Credentials:           account.Credentials,
		MerchantDescriptor:    account.MerchantDescriptor,
		Type:                  txType,
		MerchantReferenceCode: mrc,
		Amount:                req.Amount,
		Currency:              req.Currency,
		Email:                 opts.Email,
		CommerceIndicator:     opts.CommerceIndicator,
		RequestID:             req.PaymentTransactionID.String(),
		IgnoreAVS:             opts.IgnoreAVS || account.IgnoreAVS,
		IgnoreCVV:             opts.IgnoreCVV || account.IgnoreCVV,
	}

	switch txType {
	case domain.TransactionTypeAuthorize, domain.TransactionTypePurchase, domain.TransactionTypeCredit:
		token, err := s.token(ctx, req, opts)
		if err != nil {
			return nil, err
		}
		gatewayReq.Token = token

	default:
		ref, err := s.reference(ctx, req.Call.TenantID, req.PaymentID, txType)
		if err != nil {
			return nil, err
		}
		gatewayReq.Reference = ref
		if gatewayReq.Currency == "" {
			gatewayReq.Currency = ref.Currency
		}
	}

	return gatewayReq, nil
}

// token is the CyberSource subscription id charged by the call
func (s *Service) token(ctx context.Context, req *domain.OperationRequest, opts domain.Options) (string, error) {
	if opts.Token != "" {
		return opts.Token, nil
	}
	if req.PaymentMethodID == uuid.Nil {
		return "", domain.ErrPaymentMethodRequired
	}
	pm, err := s.paymentMethods.GetByKBPaymentMethodID(ctx, nil, req.Call.TenantID, req.PaymentMethodID)
	if err != nil {
		return "", fmt.Errorf("resolve payment method %s: %w", req.PaymentMethodID, err)
	}
	if pm.Token == "" {
		return "", domain.ErrPaymentMethodRequired.WithDetail("kb_payment_method_id", req.PaymentMethodID.String())
	}
	return pm.Token, nil
}

func isZeroAmount(amount *decimal.Decimal) bool {
	return amount == nil || amount.IsZero()
}

func reasonCode(response *domain.GatewayResponse) string {
	if response == nil || response.Params.ReasonCode == nil {
		return ""
	}
	return *response.Params.ReasonCode
}
