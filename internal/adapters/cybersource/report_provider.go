package cybersource

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"go.uber.org/zap"
)

// ReportConfigSource resolves the reporting account of a tenant; nil means
// the tenant has no On-Demand account configured.
type ReportConfigSource interface {
	ReportConfig(ctx context.Context, tenantID uuid.UUID) (*ReportConfig, error)
}

type cachedReportAPI struct {
	config ReportConfig
	api    domainports.ReportAPI
}

// reportProvider builds report clients per tenant, reusing a client until the
// tenant's configuration changes
type reportProvider struct {
	source ReportConfigSource
	logger *zap.Logger

	mu       sync.Mutex
	byTenant map[uuid.UUID]cachedReportAPI
}

// NewReportProvider creates a domainports.ReportAPIProvider backed by tenant config
func NewReportProvider(source ReportConfigSource, logger *zap.Logger) domainports.ReportAPIProvider {
	return &reportProvider{
		source:   source,
		logger:   logger,
		byTenant: make(map[uuid.UUID]cachedReportAPI),
	}
}

func (p *reportProvider) ForTenant(ctx context.Context, tenantID uuid.UUID, opts domain.Options) (domainports.ReportAPI, error) {
	if opts.SkipGateway {
		return nil, nil
	}

	config, err := p.source.ReportConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.byTenant[tenantID]; ok && cached.config == *config {
		return cached.api, nil
	}

	api, err := NewReportAdapter(*config, nil, p.logger.With(zap.String("kb_tenant_id", tenantID.String())))
	if err != nil {
		p.logger.Warn("On-Demand reporting misconfigured",
			zap.String("kb_tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	p.byTenant[tenantID] = cachedReportAPI{config: *config, api: api}
	return api, nil
}
