// Package bootstrap builds the dependency graph shared by cmd/server and cmd/admin.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/cybersource"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/database"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/postgres"
	"github.com/kevin07696/cybersource-plugin/internal/config"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/internal/services/ledger"
	"github.com/kevin07696/cybersource-plugin/internal/services/payment"
	"github.com/kevin07696/cybersource-plugin/internal/services/reconciliation"
	pkghttp "github.com/kevin07696/cybersource-plugin/pkg/http"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Dependencies holds the initialized adapters and services
type Dependencies struct {
	Database       *database.PostgreSQLAdapter
	DB             *postgres.DBExecutor
	PaymentMethods *postgres.PaymentMethodRepository
	Tenants        *config.TenantConfig
	Reports        domainports.ReportAPIProvider
	Ledger         *ledger.Service
	Classifier     *reconciliation.Classifier
	Resolver       *reconciliation.Resolver
	CreditPolicy   *reconciliation.CreditPolicy
	Payments       *payment.Service
}

// Close releases the database pool
func (d *Dependencies) Close() {
	if d.Database != nil {
		d.Database.Close()
	}
}

// NewLogger builds the root logger from LOG_LEVEL and LOG_DEVELOPMENT
func NewLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// Build wires the database, secrets, tenant configuration, gateway adapters
// and services. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.URL())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns

	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	deps, err := build(ctx, cfg, dbAdapter, logger)
	if err != nil {
		dbAdapter.Close()
		return nil, err
	}
	return deps, nil
}

func build(ctx context.Context, cfg *config.Config, dbAdapter *database.PostgreSQLAdapter, logger *zap.Logger) (*Dependencies, error) {
	secretManager, err := NewSecretManager(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, err
	}

	tenants, err := config.LoadTenantConfig(cfg.CyberSource.ConfigPath, secretManager, logger)
	if err != nil {
		return nil, err
	}

	db := postgres.NewDBExecutor(dbAdapter.Pool())
	responses := postgres.NewResponseRepository(db)
	transactions := postgres.NewTransactionRepository(db)
	paymentMethods := postgres.NewPaymentMethodRepository(db)

	soapCfg := cybersource.DefaultSOAPConfig()
	soapCfg.Timeout = cfg.CyberSource.Timeout
	soapCfg.MaxRetries = cfg.CyberSource.MaxRetries
	httpClient := pkghttp.NewHTTPClient(pkghttp.SOAPClientConfig(soapCfg.Timeout))

	codes := cybersource.DefaultReasonCodes()
	gateway := cybersource.NewSOAPAdapter(soapCfg, httpClient, codes, logger)
	reports := cybersource.NewReportProvider(tenants, logger)

	ledgerService := ledger.NewService(responses, transactions, nil, logger)
	classifier := reconciliation.NewClassifier(codes)
	resolver := reconciliation.NewResolver(db, ledgerService, classifier, reports, tenants, nil, logger)
	creditPolicy := reconciliation.NewCreditPolicy(ledgerService, tenants, nil, logger)

	payments := payment.NewService(
		db,
		ledgerService,
		paymentMethods,
		gateway,
		reports,
		tenants,
		classifier,
		resolver,
		creditPolicy,
		nil,
		logger,
	)

	return &Dependencies{
		Database:       dbAdapter,
		DB:             db,
		PaymentMethods: paymentMethods,
		Tenants:        tenants,
		Reports:        reports,
		Ledger:         ledgerService,
		Classifier:     classifier,
		Resolver:       resolver,
		CreditPolicy:   creditPolicy,
		Payments:       payments,
	}, nil
}
