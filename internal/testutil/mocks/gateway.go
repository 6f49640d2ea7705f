// Package mocks provides shared testify mocks for the outbound ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock of ports.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Process(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayReply, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayReply), args.Error(1)
}

// MockReportAPI is a testify mock of ports.ReportAPI
type MockReportAPI struct {
	mock.Mock
}

func (m *MockReportAPI) FetchReport(ctx context.Context, merchantReferenceCode string, date time.Time) domain.ReportOutcome {
	args := m.Called(ctx, merchantReferenceCode, date)
	return args.Get(0).(domain.ReportOutcome)
}

func (m *MockReportAPI) CheckForDuplicates() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockReportProvider is a testify mock of ports.ReportAPIProvider
type MockReportProvider struct {
	mock.Mock
}

func (m *MockReportProvider) ForTenant(ctx context.Context, tenantID uuid.UUID, opts domain.Options) (ports.ReportAPI, error) {
	args := m.Called(ctx, tenantID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.ReportAPI), args.Error(1)
}

// StaticSettings is a ports.TenantSettingsProvider returning fixed settings
type StaticSettings struct {
	Value *ports.TenantSettings
	Err   error
}

func (s StaticSettings) Settings(ctx context.Context, tenantID uuid.UUID) (*ports.TenantSettings, error) {
	return s.Value, s.Err
}
