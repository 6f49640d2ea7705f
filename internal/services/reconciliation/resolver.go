package reconciliation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/internal/services/ledger"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"github.com/kevin07696/cybersource-plugin/pkg/timeutil"
	"go.uber.org/zap"
)

// DefaultCancelThreshold is how long an unresolved row waits before it is canceled
const DefaultCancelThreshold = time.Hour

// reconciledMessage replaces a structured message when the report carries none
const reconciledMessage = "Reconciled from transaction report"

// Action is what a reconciliation attempt did to a row
type Action string

const (
	ActionUnchanged  Action = "unchanged"
	ActionPending    Action = "pending"
	ActionReconciled Action = "reconciled"
	ActionCanceled   Action = "canceled"
	// ActionSuperseded: another writer resolved the row after the caller read it
	ActionSuperseded Action = "superseded"
)

// Resolution is the result of one reconciliation attempt
type Resolution struct {
	Response    *domain.GatewayResponse
	Transaction *domain.GatewayTransaction
	Action      Action
	Status      domain.PaymentPluginStatus
}

// Changed reports whether the stored row differs from the caller's copy
func (r Resolution) Changed() bool {
	return r.Action == ActionReconciled || r.Action == ActionCanceled || r.Action == ActionSuperseded
}

// Resolver promotes UNDEFINED and placeholder rows to terminal ones
type Resolver struct {
	db         ports.TransactionManager
	ledger     *ledger.Service
	classifier *Classifier
	reports    ports.ReportAPIProvider
	settings   ports.TenantSettingsProvider
	clock      timeutil.Clock
	logger     *zap.Logger
}

// NewResolver creates an outcome resolver
func NewResolver(
	db ports.TransactionManager,
	ledgerService *ledger.Service,
	classifier *Classifier,
	reports ports.ReportAPIProvider,
	settings ports.TenantSettingsProvider,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Resolver {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Resolver{
		db:         db,
		ledger:     ledgerService,
		classifier: classifier,
		reports:    reports,
		settings:   settings,
		clock:      clock,
		logger:     logger,
	}
}

// Reconcile fetches the transaction report for an unresolved row and applies
// it. Authoritative rows are returned untouched. Report failures never surface
// as errors; only ledger writes do.
func (r *Resolver) Reconcile(ctx context.Context, response *domain.GatewayResponse, opts domain.Options) (Resolution, error) {
	status := r.classifier.Status(response)
	if !r.classifier.NeedsResolution(response) {
		return Resolution{Response: response, Action: ActionUnchanged, Status: status}, nil
	}

	logger := r.logger.With(
		zap.String("cybersource_response_id", response.ID.String()),
		zap.String("kb_payment_transaction_id", response.KBPaymentTransactionID.String()),
	)

	// local state only
	if opts.SkipGateway {
		return Resolution{Response: response, Action: ActionPending, Status: status}, nil
	}

	outcome := r.lookup(ctx, logger, response, opts)
	if outcome.Kind == domain.ReportFound {
		return r.apply(ctx, logger, response, outcome.Report)
	}

	if outcome.Kind == domain.ReportEmpty {
		logger.Info("Unable to fix UNDEFINED transaction (not found in CyberSource)")
	}

	threshold := r.cancelThreshold(ctx, response.KBTenantID, opts)
	age := r.clock.Now().Sub(response.CreatedAt)
	if age < threshold {
		observability.RecordReconciliation(string(ActionPending), string(status))
		return Resolution{Response: response, Action: ActionPending, Status: status}, nil
	}

	var resolution Resolution
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := r.ledger.Lock(ctx, tx, response.ID)
		if err != nil {
			return err
		}
		if !r.classifier.NeedsResolution(current) {
			resolution = r.superseded(current)
			return nil
		}

		canceled, err := r.ledger.Cancel(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		resolution = Resolution{Response: canceled, Action: ActionCanceled, Status: domain.StatusCanceled}
		return nil
	})
	if err != nil {
		return Resolution{}, err
	}
	if resolution.Action == ActionSuperseded {
		logger.Info("Transaction resolved concurrently, not canceling", zap.String("status", string(resolution.Status)))
		return resolution, nil
	}

	logger.Info("Canceled unresolved transaction",
		zap.Duration("age", age),
		zap.Duration("cancel_threshold", threshold),
	)
	observability.RecordReconciliation(string(ActionCanceled), string(domain.StatusCanceled))
	return resolution, nil
}

// superseded describes a row another writer resolved after the caller read it
func (r *Resolver) superseded(current *domain.GatewayResponse) Resolution {
	return Resolution{Response: current, Action: ActionSuperseded, Status: r.classifier.Status(current)}
}

// lookup tries each candidate merchant reference code until the report has
// one. An unavailable service ends the search.
func (r *Resolver) lookup(ctx context.Context, logger *zap.Logger, response *domain.GatewayResponse, opts domain.Options) domain.ReportOutcome {
	api, err := r.reports.ForTenant(ctx, response.KBTenantID, opts)
	if err != nil {
		logger.Warn("Unable to look up reporting API", zap.Error(err))
		return domain.ReportUnavailableOutcome(err)
	}
	if api == nil {
		return domain.ReportUnavailableOutcome(nil)
	}

	outcome := domain.ReportEmptyOutcome()
	for _, mrc := range candidateReferences(response, opts) {
		outcome = api.FetchReport(ctx, mrc, response.CreatedAt)
		switch outcome.Kind {
		case domain.ReportFound:
			return outcome
		case domain.ReportUnavailable:
			logger.Warn("Transaction report unavailable",
				zap.String("merchant_reference_code", mrc),
				zap.Error(outcome.Err),
			)
			return outcome
		}
	}
	return outcome
}

func (r *Resolver) apply(ctx context.Context, logger *zap.Logger, response *domain.GatewayResponse, report *domain.Report) (Resolution, error) {
	fields := report.Fields()
	if domain.IsBlank(fields.Message) && domain.IsStructuredMessage(response.Message) {
		fields.Message = domain.StringPtr(reconciledMessage)
	}

	var resolution Resolution
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := r.ledger.Lock(ctx, tx, response.ID)
		if err != nil {
			return err
		}
		if !r.classifier.NeedsResolution(current) {
			resolution = r.superseded(current)
			return nil
		}

		updated, _, err := r.ledger.Update(ctx, tx, current.ID, fields)
		if err != nil {
			return err
		}

		resolution = Resolution{Response: updated, Action: ActionReconciled, Status: r.classifier.Status(updated)}
		if resolution.Status != domain.StatusProcessed {
			return nil
		}

		transaction, _, err := r.ledger.CreateFromResponse(ctx, tx, updated, ledger.Requested{})
		if err != nil {
			return err
		}
		resolution.Transaction = transaction
		return nil
	})
	if err != nil {
		return Resolution{}, err
	}
	if resolution.Action == ActionSuperseded {
		logger.Info("Transaction resolved concurrently, report not applied", zap.String("status", string(resolution.Status)))
		return resolution, nil
	}

	logger.Info("Fixing UNDEFINED transaction",
		zap.Bool("success", report.Success),
		zap.String("status", string(resolution.Status)),
	)
	observability.RecordReconciliation(string(ActionReconciled), string(resolution.Status))
	return resolution, nil
}

// cancelThreshold: property, then tenant config, then one hour
func (r *Resolver) cancelThreshold(ctx context.Context, tenantID uuid.UUID, opts domain.Options) time.Duration {
	if opts.CancelThreshold != nil {
		return *opts.CancelThreshold
	}
	settings, err := r.settings.Settings(ctx, tenantID)
	if err != nil {
		r.logger.Warn("Unable to load tenant settings, using default cancel threshold",
			zap.String("kb_tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return DefaultCancelThreshold
	}
	if settings != nil && settings.CancelThreshold != nil {
		return *settings.CancelThreshold
	}
	return DefaultCancelThreshold
}

// candidateReferences lists the merchant reference codes the call may have
// been sent with, most specific first, without repeats.
func candidateReferences(response *domain.GatewayResponse, opts domain.Options) []string {
	var authorizationPrefix string
	if !domain.IsBlank(response.Authorization) {
		authorizationPrefix = strings.SplitN(*response.Authorization, ";", 2)[0]
	}

	candidates := []string{
		opts.OrderID,
		deref(response.Params.MerchantReferenceCode),
		authorizationPrefix,
		response.KBPaymentTransactionID.String(),
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
