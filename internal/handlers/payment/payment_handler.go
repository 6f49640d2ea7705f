// Package payment exposes the plugin operations and ledger lookups over HTTP.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/pkg/encoding"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BasePath is where the plugin routes are mounted
const BasePath = "/plugins/cybersource/1.0"

// Headers the billing platform sends with every call
const (
	HeaderTenantID  = "X-Killbill-Tenant-Id"
	HeaderAccountID = "X-Killbill-Account-Id"
)

// maxBodyBytes bounds operation request bodies
const maxBodyBytes = 1 << 20

// LedgerReader is the lookup surface of the ledger service
type LedgerReader interface {
	Response(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error)
	Transaction(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayTransaction, error)
}

// Handler serves the plugin HTTP surface
type Handler struct {
	plugin         ports.PaymentPlugin
	ledger         LedgerReader
	paymentMethods ports.PaymentMethodRepository
	timeouts       resilience.TimeoutConfig
	logger         *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(plugin ports.PaymentPlugin, ledger LedgerReader, paymentMethods ports.PaymentMethodRepository, logger *zap.Logger) *Handler {
	return &Handler{
		plugin:         plugin,
		ledger:         ledger,
		paymentMethods: paymentMethods,
		timeouts:       resilience.DefaultTimeoutConfig(),
		logger:         logger,
	}
}

// WithTimeouts overrides the per-request deadlines; zero fields keep their defaults
func (h *Handler) WithTimeouts(tc resilience.TimeoutConfig) *Handler {
	h.timeouts = tc.WithDefaults()
	return h
}

// Routes returns the router to mount at BasePath
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/responses/{id}", h.GetResponse)
	r.Get("/transactions/{id}", h.GetTransaction)
	r.Get("/payment_methods/{id}", h.GetPaymentMethod)
	r.Get("/payments/{paymentId}", h.GetPaymentInfo)
	r.Post("/payments/{paymentId}/{operation}", h.RunOperation)
	return r
}

// OperationRequest is the JSON body of POST /payments/{paymentId}/{operation}
type OperationRequest struct {
	PaymentTransactionID string            `json:"kb_payment_transaction_id"`
	PaymentMethodID      string            `json:"kb_payment_method_id,omitempty"`
	Amount               *string           `json:"amount,omitempty"`
	Currency             string            `json:"currency,omitempty"`
	Properties           domain.Properties `json:"properties,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx answer
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type operationFunc func(ctx context.Context, req *domain.OperationRequest) (*domain.PaymentTransactionInfo, error)

func (h *Handler) operation(name string) (operationFunc, bool) {
	switch name {
	case "authorize":
		return h.plugin.Authorize, true
	case "capture":
		return h.plugin.Capture, true
	case "purchase":
		return h.plugin.Purchase, true
	case "void":
		return h.plugin.Void, true
	case "credit":
		return h.plugin.Credit, true
	case "refund":
		return h.plugin.Refund, true
	default:
		return nil, false
	}
}

// RunOperation runs one payment operation
// Endpoint: POST /plugins/cybersource/1.0/payments/{paymentId}/{operation}
func (h *Handler) RunOperation(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callContext(w, r, true)
	if !ok {
		return
	}
	paymentID, ok := h.uuidParam(w, r, "paymentId")
	if !ok {
		return
	}

	name := chi.URLParam(r, "operation")
	run, ok := h.operation(name)
	if !ok {
		writeError(w, http.StatusNotFound, string(domain.ErrorCodeValidationFailed), "unknown operation "+name)
		return
	}

	var body OperationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), "invalid request body")
		return
	}

	req, err := toOperationRequest(call, paymentID, &body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.timeouts.OperationContext(r.Context())
	defer cancel()

	info, err := run(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetPaymentInfo lists a payment's results; query parameters become plugin properties
// Endpoint: GET /plugins/cybersource/1.0/payments/{paymentId}
func (h *Handler) GetPaymentInfo(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callContext(w, r, false)
	if !ok {
		return
	}
	paymentID, ok := h.uuidParam(w, r, "paymentId")
	if !ok {
		return
	}

	ctx, cancel := h.timeouts.OperationContext(r.Context())
	defer cancel()

	infos, err := h.plugin.GetPaymentInfo(ctx, call, paymentID, queryProperties(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// GetResponse returns one response ledger row
// Endpoint: GET /plugins/cybersource/1.0/responses/{id}
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callContext(w, r, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.timeouts.LookupContext(r.Context())
	defer cancel()

	response, err := h.ledger.Response(ctx, nil, id)
	if err == nil && response.KBTenantID != call.TenantID {
		err = domain.ErrResponseNotFound
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// GetTransaction returns one transaction ledger row
// Endpoint: GET /plugins/cybersource/1.0/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callContext(w, r, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.timeouts.LookupContext(r.Context())
	defer cancel()

	transaction, err := h.ledger.Transaction(ctx, nil, id)
	if err == nil && transaction.KBTenantID != call.TenantID {
		err = domain.ErrTransactionNotFound
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}

// GetPaymentMethod returns a stored payment method by billing platform id
// Endpoint: GET /plugins/cybersource/1.0/payment_methods/{id}
func (h *Handler) GetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callContext(w, r, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.timeouts.LookupContext(r.Context())
	defer cancel()

	pm, err := h.paymentMethods.GetByKBPaymentMethodID(ctx, nil, call.TenantID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}

// callContext reads the tenant (always required) and account headers
func (h *Handler) callContext(w http.ResponseWriter, r *http.Request, requireAccount bool) (domain.CallContext, bool) {
	tenantID, err := uuid.Parse(r.Header.Get(HeaderTenantID))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), HeaderTenantID+" header must be a UUID")
		return domain.CallContext{}, false
	}

	call := domain.CallContext{TenantID: tenantID}
	if raw := r.Header.Get(HeaderAccountID); raw != "" || requireAccount {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), HeaderAccountID+" header must be a UUID")
			return domain.CallContext{}, false
		}
		call.AccountID = accountID
	}
	return call, true
}

func (h *Handler) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func toOperationRequest(call domain.CallContext, paymentID uuid.UUID, body *OperationRequest) (*domain.OperationRequest, error) {
	txID, err := uuid.Parse(body.PaymentTransactionID)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("kb_payment_transaction_id", body.PaymentTransactionID)
	}

	req := &domain.OperationRequest{
		Call:                 call,
		PaymentID:            paymentID,
		PaymentTransactionID: txID,
		Currency:             strings.ToUpper(strings.TrimSpace(body.Currency)),
		Properties:           body.Properties,
	}

	if body.PaymentMethodID != "" {
		pmID, err := uuid.Parse(body.PaymentMethodID)
		if err != nil {
			return nil, domain.ErrValidationFailed.WithDetail("kb_payment_method_id", body.PaymentMethodID)
		}
		req.PaymentMethodID = pmID
	}

	if body.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*body.Amount))
		if err != nil || amount.IsNegative() {
			return nil, domain.ErrInvalidAmount.WithDetail("amount", *body.Amount)
		}
		req.Amount = &amount
	}
	return req, nil
}

// queryProperties turns ?order_id=x&skip_gw=true into plugin properties
func queryProperties(r *http.Request) domain.Properties {
	var props domain.Properties
	for key, values := range r.URL.Query() {
		for _, v := range values {
			props = append(props, domain.PluginProperty{Key: key, Value: v})
		}
	}
	return props
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsValidationError(err), errors.Is(err, domain.ErrPaymentMethodRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoCaptureCandidate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := string(domain.GetErrorCode(err))
	message := err.Error()

	if status >= http.StatusInternalServerError {
		h.logger.Error("Plugin request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		code = string(domain.ErrorCodeInternalError)
		message = "internal server error"
	} else {
		h.logger.Debug("Plugin request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	if code == "" {
		code = string(domain.ErrorCodeInternalError)
	}
	writeError(w, status, code, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	payload, err := encoding.EncodeJSON(body)
	if err != nil {
		http.Error(w, `{"code":"INTERNAL_ERROR","message":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
