package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	handler "github.com/kevin07696/cybersource-plugin/internal/handlers/payment"
	"github.com/kevin07696/cybersource-plugin/internal/services/ledger"
	"github.com/kevin07696/cybersource-plugin/internal/testutil/fixtures"
	"github.com/kevin07696/cybersource-plugin/internal/testutil/memstore"
	"github.com/kevin07696/cybersource-plugin/internal/testutil/mocks"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	tenantID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	accountID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	paymentID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	txID      = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

type harness struct {
	plugin *mocks.MockPaymentPlugin
	store  *memstore.Store
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memstore.New()
	plugin := &mocks.MockPaymentPlugin{}
	t.Cleanup(func() { plugin.AssertExpectations(t) })

	ledgerService := ledger.NewService(store.Responses(), store.Transactions(), nil, zap.NewNop())
	h := handler.NewHandler(plugin, ledgerService, store.PaymentMethods(), zap.NewNop())

	r := chi.NewRouter()
	r.Mount(handler.BasePath, h.Routes())
	return &harness{plugin: plugin, store: store, router: r}
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, handler.BasePath+path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, handler.BasePath+path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func callHeaders() map[string]string {
	return map[string]string{
		handler.HeaderTenantID:  tenantID.String(),
		handler.HeaderAccountID: accountID.String(),
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRunOperation_Purchase(t *testing.T) {
	h := newHarness(t)
	pmID := uuid.New()

	info := &domain.PaymentTransactionInfo{
		KBPaymentID:     paymentID,
		KBTransactionID: txID,
		TransactionType: domain.TransactionTypePurchase,
		Status:          domain.StatusProcessed,
		Currency:        "USD",
	}
	h.plugin.On("Purchase", mock.Anything, mock.MatchedBy(func(req *domain.OperationRequest) bool {
		return req.Call.TenantID == tenantID &&
			req.Call.AccountID == accountID &&
			req.PaymentID == paymentID &&
			req.PaymentTransactionID == txID &&
			req.PaymentMethodID == pmID &&
			req.Amount.Equal(decimal.RequireFromString("10.50")) &&
			req.Currency == "USD" &&
			len(req.Properties) == 1 && req.Properties[0].Key == domain.PropOrderID
	})).Return(info, nil).Once()

	body := `{"kb_payment_transaction_id":"` + txID.String() + `","kb_payment_method_id":"` + pmID.String() +
		`","amount":"10.50","currency":"usd","properties":[{"key":"order_id","value":"order-1"}]}`
	rec := h.do(http.MethodPost, "/payments/"+paymentID.String()+"/purchase", body, callHeaders())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got domain.PaymentTransactionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusProcessed, got.Status)
	assert.Equal(t, txID, got.KBTransactionID)
}

func TestRunOperation_Dispatch(t *testing.T) {
	for _, op := range []string{"authorize", "capture", "void", "credit", "refund"} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t)
			method := strings.ToUpper(op[:1]) + op[1:]
			h.plugin.On(method, mock.Anything, mock.Anything).
				Return(&domain.PaymentTransactionInfo{Status: domain.StatusProcessed}, nil).Once()

			body := `{"kb_payment_transaction_id":"` + txID.String() + `"}`
			rec := h.do(http.MethodPost, "/payments/"+paymentID.String()+"/"+op, body, callHeaders())
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestRunOperation_AppliesOperationTimeout(t *testing.T) {
	store := memstore.New()
	plugin := &mocks.MockPaymentPlugin{}
	defer plugin.AssertExpectations(t)

	h := handler.NewHandler(plugin, ledger.NewService(store.Responses(), store.Transactions(), nil, zap.NewNop()), store.PaymentMethods(), zap.NewNop()).
		WithTimeouts(resilience.TimeoutConfig{Operation: 2 * time.Second})
	r := chi.NewRouter()
	r.Mount(handler.BasePath, h.Routes())

	start := time.Now()
	plugin.On("Void", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && deadline.Sub(start) <= 2*time.Second
	}), mock.Anything).Return(&domain.PaymentTransactionInfo{Status: domain.StatusProcessed}, nil).Once()

	body := `{"kb_payment_transaction_id":"` + txID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, handler.BasePath+"/payments/"+paymentID.String()+"/void", strings.NewReader(body))
	for k, v := range callHeaders() {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRunOperation_Rejections(t *testing.T) {
	validBody := `{"kb_payment_transaction_id":"` + txID.String() + `"}`

	tests := []struct {
		name       string
		path       string
		body       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing tenant",
			path:       "/payments/" + paymentID.String() + "/purchase",
			body:       validBody,
			headers:    map[string]string{handler.HeaderAccountID: accountID.String()},
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationFailed),
		},
		{
			name:       "missing account",
			path:       "/payments/" + paymentID.String() + "/purchase",
			body:       validBody,
			headers:    map[string]string{handler.HeaderTenantID: tenantID.String()},
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationFailed),
		},
		{
			name:       "bad payment id",
			path:       "/payments/not-a-uuid/purchase",
			body:       validBody,
			headers:    callHeaders(),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationFailed),
		},
		{
			name:       "unknown operation",
			path:       "/payments/" + paymentID.String() + "/chargeback",
			body:       validBody,
			headers:    callHeaders(),
			wantStatus: http.StatusNotFound,
			wantCode:   string(domain.ErrorCodeValidationFailed),
		},
		{
			name:       "unknown field",
			path:       "/payments/" + paymentID.String() + "/purchase",
			body:       `{"kb_payment_transaction_id":"` + txID.String() + `","card_number":"4111"}`,
			headers:    callHeaders(),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationFailed),
		},
		{
			name:       "missing transaction id",
			path:       "/payments/" + paymentID.String() + "/purchase",
			body:       `{}`,
			headers:    callHeaders(),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationFailed),
		},
		{
			name:       "negative amount",
			path:       "/payments/" + paymentID.String() + "/purchase",
			body:       `{"kb_payment_transaction_id":"` + txID.String() + `","amount":"-1"}`,
			headers:    callHeaders(),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationAmountInvalid),
		},
		{
			name:       "malformed amount",
			path:       "/payments/" + paymentID.String() + "/purchase",
			body:       `{"kb_payment_transaction_id":"` + txID.String() + `","amount":"ten"}`,
			headers:    callHeaders(),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(domain.ErrorCodeValidationAmountInvalid),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(http.MethodPost, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestRunOperation_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no capture candidate", domain.ErrNoCaptureCandidate.WithDetail("kb_payment_id", paymentID.String()), http.StatusConflict, string(domain.ErrorCodeNoCaptureCandidate)},
		{"gateway not configured", domain.ErrGatewayNotConfigured, http.StatusUnprocessableEntity, string(domain.ErrorCodeGatewayNotConfigured)},
		{"invalid property", domain.ErrInvalidProperty.WithDetail("skip_gw", "maybe"), http.StatusBadRequest, string(domain.ErrorCodeValidationProperty)},
		{"payment method required", domain.ErrPaymentMethodRequired, http.StatusBadRequest, string(domain.ErrorCodePMRequired)},
		{"payment method missing", domain.ErrPaymentMethodNotFound, http.StatusNotFound, string(domain.ErrorCodePMNotFound)},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError, string(domain.ErrorCodeInternalError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.plugin.On("Capture", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			body := `{"kb_payment_transaction_id":"` + txID.String() + `"}`
			rec := h.do(http.MethodPost, "/payments/"+paymentID.String()+"/capture", body, callHeaders())

			assert.Equal(t, tt.wantStatus, rec.Code)
			got := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", got.Message, "internal errors are not leaked")
			}
		})
	}
}

func TestGetPaymentInfo(t *testing.T) {
	h := newHarness(t)
	infos := []*domain.PaymentTransactionInfo{
		{KBPaymentID: paymentID, TransactionType: domain.TransactionTypeAuthorize, Status: domain.StatusProcessed},
		{KBPaymentID: paymentID, TransactionType: domain.TransactionTypeCapture, Status: domain.StatusUndefined},
	}
	h.plugin.On("GetPaymentInfo", mock.Anything, domain.CallContext{TenantID: tenantID}, paymentID, mock.MatchedBy(func(props domain.Properties) bool {
		v, ok := props.Get(domain.PropCancelThreshold)
		return ok && v == "30m"
	})).Return(infos, nil).Once()

	rec := h.do(http.MethodGet, "/payments/"+paymentID.String()+"?cancel_threshold=30m", "",
		map[string]string{handler.HeaderTenantID: tenantID.String()})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []domain.PaymentTransactionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, domain.StatusUndefined, got[1].Status)
}

func TestLookups(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	own := fixtures.NewResponse().
		WithTenantID(tenantID).
		WithPaymentID(paymentID).
		WithPaymentTransactionID(txID).
		WithCreatedAt(created).
		Build()
	foreign := fixtures.NewResponse().WithCreatedAt(created).Build()
	require.NoError(t, h.store.Responses().Create(ctx, nil, own))
	require.NoError(t, h.store.Responses().Create(ctx, nil, foreign))

	transaction := fixtures.NewTransactionFor(own).Build()
	_, err := h.store.Transactions().Create(ctx, nil, transaction)
	require.NoError(t, err)

	pm := fixtures.NewPaymentMethod().WithTenantID(tenantID).Build()
	require.NoError(t, h.store.PaymentMethods().Create(ctx, nil, pm))

	tenantOnly := map[string]string{handler.HeaderTenantID: tenantID.String()}

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantID     string
	}{
		{"own response", "/responses/" + own.ID.String(), http.StatusOK, own.ID.String()},
		{"other tenant's response", "/responses/" + foreign.ID.String(), http.StatusNotFound, ""},
		{"unknown response", "/responses/" + uuid.NewString(), http.StatusNotFound, ""},
		{"transaction", "/transactions/" + transaction.ID.String(), http.StatusOK, transaction.ID.String()},
		{"unknown transaction", "/transactions/" + uuid.NewString(), http.StatusNotFound, ""},
		{"payment method", "/payment_methods/" + pm.KBPaymentMethodID.String(), http.StatusOK, pm.ID.String()},
		{"unknown payment method", "/payment_methods/" + uuid.NewString(), http.StatusNotFound, ""},
		{"malformed id", "/responses/123", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodGet, tt.path, "", tenantOnly)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantID == "" {
				return
			}
			var body struct {
				ID string `json:"id"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantID, body.ID)
		})
	}
}
