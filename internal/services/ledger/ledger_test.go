package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/services/ledger"
	"github.com/kevin07696/cybersource-plugin/internal/testutil/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type steppingClock struct {
	t time.Time
}

func (c *steppingClock) Now() time.Time { return c.t }

func (c *steppingClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newService(t *testing.T) (*ledger.Service, *memstore.Store, *steppingClock, *observer.ObservedLogs) {
	t.Helper()
	store := memstore.New()
	clock := &steppingClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	core, logs := observer.New(zapcore.InfoLevel)
	svc := ledger.NewService(store.Responses(), store.Transactions(), clock, zap.New(core))
	return svc, store, clock, logs
}

func undefinedResponse() *domain.GatewayResponse {
	return &domain.GatewayResponse{
		APICall:                   domain.APICallPurchase,
		TransactionType:           domain.TransactionTypePurchase,
		PaymentProcessorAccountID: domain.DefaultPaymentProcessorAccountID,
		KBTenantID:                uuid.New(),
		KBAccountID:               uuid.New(),
		KBPaymentID:               uuid.New(),
		KBPaymentTransactionID:    uuid.New(),
		Message:                   domain.StringPtr(`{"exception_class":"*url.Error","exception_message":"Timeout","payment_plugin_status":"UNDEFINED"}`),
		Params: domain.GatewayParams{
			MerchantReferenceCode: domain.StringPtr("order-1"),
		},
	}
}

func acceptedReport() *domain.Report {
	return &domain.Report{
		Success: true,
		Message: domain.StringPtr("Request was processed successfully."),
		Params: domain.GatewayParams{
			MerchantReferenceCode: domain.StringPtr("order-1"),
			RequestID:             domain.StringPtr("6543210987654321"),
			Decision:              domain.StringPtr("ACCEPT"),
			Amount:                domain.StringPtr("100.00"),
			Currency:              domain.StringPtr("USD"),
		},
	}
}

func TestRecord_SetsTimestampsAndAlarmsOnDuplicates(t *testing.T) {
	svc, store, clock, logs := newService(t)
	ctx := context.Background()

	first := undefinedResponse()
	require.NoError(t, svc.Record(ctx, nil, first))
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, clock.Now(), first.CreatedAt)
	assert.Equal(t, 0, logs.FilterMessage("Duplicate response rows for payment transaction").Len())

	second := *first
	second.ID = uuid.Nil
	require.NoError(t, svc.Record(ctx, nil, &second))

	assert.Len(t, store.AllResponses(), 2)
	alarms := logs.FilterMessage("Duplicate response rows for payment transaction").All()
	require.Len(t, alarms, 1)
	assert.Equal(t, zapcore.WarnLevel, alarms[0].Level)
	assert.Equal(t, int64(1), alarms[0].ContextMap()["existing_rows"])
}

func TestUpdate_MergeIsIdempotent(t *testing.T) {
	svc, store, clock, _ := newService(t)
	ctx := context.Background()

	response := undefinedResponse()
	require.NoError(t, svc.Record(ctx, nil, response))

	clock.Advance(time.Minute)
	updated, written, err := svc.Update(ctx, nil, response.ID, acceptedReport().Fields())
	require.NoError(t, err)
	assert.True(t, written)
	assert.True(t, updated.Success)
	assert.Equal(t, "6543210987654321", *updated.Params.RequestID)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)
	afterFirst, err := svc.Response(ctx, nil, response.ID)
	require.NoError(t, err)
	writes := store.ResponseWrites

	clock.Advance(time.Minute)
	_, written, err = svc.Update(ctx, nil, response.ID, acceptedReport().Fields())
	require.NoError(t, err)
	assert.False(t, written)

	afterSecond, err := svc.Response(ctx, nil, response.ID)
	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, writes, store.ResponseWrites)
}

func TestUpdate_PreservesExistingValues(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	response := undefinedResponse()
	response.Params.ReasonCode = domain.StringPtr("250")
	response.Params.ProcessorResponse = domain.StringPtr("00")
	require.NoError(t, svc.Record(ctx, nil, response))

	fields := domain.ResponseFields{
		Params: domain.GatewayParams{
			ReasonCode:        domain.StringPtr("  "),
			ProcessorResponse: nil,
			RequestID:         domain.StringPtr("111"),
		},
	}
	updated, _, err := svc.Update(ctx, nil, response.ID, fields)
	require.NoError(t, err)
	assert.Equal(t, "250", *updated.Params.ReasonCode)
	assert.Equal(t, "00", *updated.Params.ProcessorResponse)
	assert.Equal(t, "111", *updated.Params.RequestID)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, _, err := svc.Update(context.Background(), nil, uuid.New(), domain.ResponseFields{})
	assert.ErrorIs(t, err, domain.ErrResponseNotFound)
}

func TestCancel_RewritesMessage(t *testing.T) {
	tests := []struct {
		name    string
		message *string
		want    string
	}{
		{
			name:    "plain message",
			message: domain.StringPtr("Internal error"),
			want:    `{"original_message":"Internal error","payment_plugin_status":"CANCELED"}`,
		},
		{
			name:    "structured message",
			message: domain.StringPtr(`{"exception_message":"Timeout","payment_plugin_status":"UNDEFINED"}`),
			want:    `{"exception_message":"Timeout","payment_plugin_status":"CANCELED"}`,
		},
		{
			name:    "no message",
			message: nil,
			want:    `{"payment_plugin_status":"CANCELED"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newService(t)
			ctx := context.Background()

			response := undefinedResponse()
			response.Message = tt.message
			response.Success = true
			require.NoError(t, svc.Record(ctx, nil, response))

			canceled, err := svc.Cancel(ctx, nil, response.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *canceled.Message)
			assert.False(t, canceled.Success)

			again, err := svc.Cancel(ctx, nil, response.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *again.Message)
		})
	}
}

func TestCreateFromResponse(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	yen := decimal.NewFromInt(1500)

	tests := []struct {
		name         string
		params       domain.GatewayParams
		requested    ledger.Requested
		wantAmount   *int64
		wantCurrency *string
		wantTxnID    *string
	}{
		{
			name: "amount from gateway",
			params: domain.GatewayParams{
				RequestID: domain.StringPtr("6543210987654321"),
				Amount:    domain.StringPtr("100.00"),
				Currency:  domain.StringPtr("usd"),
			},
			requested:    ledger.Requested{Amount: &hundred, Currency: "USD"},
			wantAmount:   int64Ptr(10000),
			wantCurrency: domain.StringPtr("USD"),
			wantTxnID:    domain.StringPtr("6543210987654321"),
		},
		{
			name:         "requested amount when gateway sent none",
			requested:    ledger.Requested{Amount: &yen, Currency: "JPY"},
			wantAmount:   int64Ptr(1500),
			wantCurrency: domain.StringPtr("JPY"),
		},
		{
			name:         "void has no amount",
			params:       domain.GatewayParams{RequestID: domain.StringPtr("1")},
			requested:    ledger.Requested{Currency: "USD"},
			wantCurrency: domain.StringPtr("USD"),
			wantTxnID:    domain.StringPtr("1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, _ := newService(t)
			ctx := context.Background()

			response := undefinedResponse()
			response.Success = true
			response.Params = tt.params
			require.NoError(t, svc.Record(ctx, nil, response))

			transaction, created, err := svc.CreateFromResponse(ctx, nil, response, tt.requested)
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, tt.wantAmount, transaction.AmountInCents)
			assert.Equal(t, tt.wantCurrency, transaction.Currency)
			assert.Equal(t, tt.wantTxnID, transaction.TxnID)
			assert.Equal(t, response.ID, transaction.ResponseID)

			again, created, err := svc.CreateFromResponse(ctx, nil, response, tt.requested)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, transaction.ID, again.ID)
			assert.Len(t, store.AllTransactions(), 1)
		})
	}
}

func TestCreateFromResponse_InvalidCurrency(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	response := undefinedResponse()
	response.Params.Amount = domain.StringPtr("1.00")
	response.Params.Currency = domain.StringPtr("ZZZ")
	require.NoError(t, svc.Record(ctx, nil, response))

	_, _, err := svc.CreateFromResponse(ctx, nil, response, ledger.Requested{})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}

func TestRekey(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	response := undefinedResponse()
	require.NoError(t, svc.Record(ctx, nil, response))

	moved := uuid.New()
	require.NoError(t, svc.Rekey(ctx, nil, response.ID, moved))

	stored, err := svc.Response(ctx, nil, response.ID)
	require.NoError(t, err)
	assert.Equal(t, moved, stored.KBPaymentTransactionID)
}

func int64Ptr(v int64) *int64 { return &v }
