package reconciliation_test

import (
	"context"
	"testing"
	"time"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/services/reconciliation"
	"github.com/kevin07696/cybersource-plugin/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func guardRequest() reconciliation.GuardRequest {
	return reconciliation.GuardRequest{
		MerchantReferenceCode: "order-1",
		Date:                  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		APICall:               domain.APICallPurchase,
	}
}

func TestGuard_ProceedsWithoutReportLookup(t *testing.T) {
	guard := reconciliation.NewGuard(zap.NewNop())

	t.Run("reporting not configured", func(t *testing.T) {
		decision := guard.Check(context.Background(), nil, guardRequest(), domain.Options{})
		assert.False(t, decision.Skip)
	})

	t.Run("bypass requested", func(t *testing.T) {
		api := &mocks.MockReportAPI{}
		decision := guard.Check(context.Background(), api, guardRequest(), domain.Options{BypassDuplicateCheck: true})
		assert.False(t, decision.Skip)
		api.AssertNotCalled(t, "FetchReport", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate checks disabled for the account", func(t *testing.T) {
		api := &mocks.MockReportAPI{}
		api.On("CheckForDuplicates").Return(false)

		decision := guard.Check(context.Background(), api, guardRequest(), domain.Options{})
		assert.False(t, decision.Skip)
		api.AssertNotCalled(t, "FetchReport", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGuard_Check(t *testing.T) {
	tests := []struct {
		name        string
		outcome     domain.ReportOutcome
		wantSkip    bool
		wantSuccess bool
		wantMessage string
	}{
		{
			name:    "unavailable fails open",
			outcome: domain.ReportUnavailableOutcome(domain.ErrReportUnavailable),
		},
		{
			name:    "empty fails open",
			outcome: domain.ReportEmptyOutcome(),
		},
		{
			name: "already processed",
			outcome: domain.ReportFoundOutcome(&domain.Report{
				Success: true,
				Message: domain.StringPtr("Request was processed successfully."),
				Params:  domain.GatewayParams{MerchantReferenceCode: domain.StringPtr("order-1"), RequestID: domain.StringPtr("1")},
			}),
			wantSkip:    true,
			wantSuccess: true,
			wantMessage: reconciliation.SkippedGatewayMessage,
		},
		{
			name: "already declined",
			outcome: domain.ReportFoundOutcome(&domain.Report{
				Message: domain.StringPtr("General decline of the card"),
				Params:  domain.GatewayParams{MerchantReferenceCode: domain.StringPtr("order-1")},
			}),
			wantSkip:    true,
			wantMessage: `{"original_message":"General decline of the card","payment_plugin_status":"CANCELED"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := guardRequest()
			api := &mocks.MockReportAPI{}
			api.On("CheckForDuplicates").Return(true)
			api.On("FetchReport", mock.Anything, req.MerchantReferenceCode, req.Date).Return(tt.outcome)

			decision := reconciliation.NewGuard(zap.NewNop()).Check(context.Background(), api, req, domain.Options{})
			api.AssertExpectations(t)
			require.Equal(t, tt.wantSkip, decision.Skip)
			if !tt.wantSkip {
				return
			}

			reply := decision.Reply(req.MerchantReferenceCode)
			assert.Equal(t, tt.wantSuccess, reply.Success)
			assert.Equal(t, tt.wantMessage, *reply.Message)
			assert.Nil(t, reply.Params.RequestID)
			assert.Nil(t, reply.Authorization)
			assert.Equal(t, "order-1", *reply.Params.MerchantReferenceCode)
		})
	}
}

type panickingReportAPI struct{}

func (panickingReportAPI) FetchReport(ctx context.Context, mrc string, date time.Time) domain.ReportOutcome {
	panic("report parser exploded")
}

func (panickingReportAPI) CheckForDuplicates() bool { return true }

func TestGuard_RecoversFromPanics(t *testing.T) {
	decision := reconciliation.NewGuard(zap.NewNop()).Check(context.Background(), panickingReportAPI{}, guardRequest(), domain.Options{})
	assert.False(t, decision.Skip)
}

func TestSkippedReply(t *testing.T) {
	reply := reconciliation.SkippedReply("order-9")
	assert.True(t, reply.Success)
	assert.Equal(t, reconciliation.SkippedGatewayMessage, *reply.Message)
	assert.Equal(t, "order-9", *reply.Params.MerchantReferenceCode)
}
