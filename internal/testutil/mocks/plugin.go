package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

var _ ports.PaymentPlugin = (*MockPaymentPlugin)(nil)

// MockPaymentPlugin is a testify mock of ports.PaymentPlugin
type MockPaymentPlugin struct {
	mock.Mock
}

func (m *MockPaymentPlugin) info(args mock.Arguments) (*domain.PaymentTransactionInfo, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransactionInfo), args.Error(1)
}

func (m *MockPaymentPlugin) Authorize(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return m.info(m.Called(ctx, req))
}

func (m *MockPaymentPlugin) Capture(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return m.info(m.Called(ctx, req))
}

func (m *MockPaymentPlugin) Purchase(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return m.info(m.Called(ctx, req))
}

func (m *MockPaymentPlugin) Void(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return m.info(m.Called(ctx, req))
}

func (m *MockPaymentPlugin) Credit(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return m.info(m.Called(ctx, req))
}

func (m *MockPaymentPlugin) Refund(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error) {
	return m.info(m.Called(ctx, req))
}

func (m *MockPaymentPlugin) GetPaymentInfo(ctx context.Context, call domain.CallContext, paymentID uuid.UUID, props domain.Properties) ([]*domain.PaymentTransactionInfo, error) {
	args := m.Called(ctx, call, paymentID, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentTransactionInfo), args.Error(1)
}
