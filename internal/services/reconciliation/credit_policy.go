package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/pkg/timeutil"
	"go.uber.org/zap"
)

// DefaultAutoCreditThreshold is 60 days
const DefaultAutoCreditThreshold = 60 * 24 * time.Hour

// latestTransactionFinder is the slice of the transaction ledger the policy reads
type latestTransactionFinder interface {
	LatestTransaction(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID, types ...domain.TransactionType) (*domain.GatewayTransaction, error)
}

// CreditPolicy decides when a refund on an old payment becomes a stand-alone credit
type CreditPolicy struct {
	transactions latestTransactionFinder
	settings     ports.TenantSettingsProvider
	clock        timeutil.Clock
	logger       *zap.Logger
}

// NewCreditPolicy creates a refund-to-credit policy
func NewCreditPolicy(transactions latestTransactionFinder, settings ports.TenantSettingsProvider, clock timeutil.Clock, logger *zap.Logger) *CreditPolicy {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &CreditPolicy{
		transactions: transactions,
		settings:     settings,
		clock:        clock,
		logger:       logger,
	}
}

// ShouldCredit is true when the payment's most recent transaction is at least
// the threshold old. disable_auto_credit always wins.
func (p *CreditPolicy) ShouldCredit(ctx context.Context, tenantID, paymentID uuid.UUID, opts domain.Options) (bool, error) {
	if opts.DisableAutoCredit {
		return false, nil
	}

	candidate, err := p.transactions.LatestTransaction(ctx, nil, tenantID, paymentID)
	if err != nil {
		return false, fmt.Errorf("find refund candidate: %w", err)
	}
	if candidate == nil {
		return false, nil
	}

	threshold, err := p.threshold(ctx, tenantID, opts)
	if err != nil {
		return false, err
	}

	age := p.clock.Now().Sub(candidate.CreatedAt)
	credit := age >= threshold
	if credit {
		p.logger.Info("Refund on old payment will be issued as a credit",
			zap.String("kb_payment_id", paymentID.String()),
			zap.Duration("age", age),
			zap.Duration("auto_credit_threshold", threshold),
		)
	}
	return credit, nil
}

// threshold: property, then tenant config, then 60 days
func (p *CreditPolicy) threshold(ctx context.Context, tenantID uuid.UUID, opts domain.Options) (time.Duration, error) {
	if opts.AutoCreditThreshold != nil {
		return *opts.AutoCreditThreshold, nil
	}
	settings, err := p.settings.Settings(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("load tenant settings: %w", err)
	}
	if settings != nil && settings.AutoCreditThreshold != nil {
		return *settings.AutoCreditThreshold, nil
	}
	return DefaultAutoCreditThreshold, nil
}
