package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// TimeoutMessage is the message a gateway timeout leaves on an UNDEFINED row.
const TimeoutMessage = `{"exception_class":"*url.Error","exception_message":"Timeout","payment_plugin_status":"UNDEFINED"}`

// ResponseBuilder provides a fluent API for building response ledger rows.
type ResponseBuilder struct {
	response *domain.GatewayResponse
}

// NewResponse starts a successful purchase on the default processor account.
func NewResponse() *ResponseBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	paymentTransactionID := uuid.New()
	return &ResponseBuilder{
		response: &domain.GatewayResponse{
			APICall:                   domain.APICallPurchase,
			TransactionType:           domain.TransactionTypePurchase,
			PaymentProcessorAccountID: domain.DefaultPaymentProcessorAccountID,
			KBAccountID:               uuid.New(),
			KBTenantID:                uuid.New(),
			KBPaymentID:               uuid.New(),
			KBPaymentTransactionID:    paymentTransactionID,
			Message:                   StringPtr("Request was processed successfully."),
			Success:                   true,
			Params: domain.GatewayParams{
				MerchantReferenceCode: StringPtr(paymentTransactionID.String()),
				Decision:              StringPtr("ACCEPT"),
				ReasonCode:            StringPtr("100"),
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *ResponseBuilder) WithID(id uuid.UUID) *ResponseBuilder {
	b.response.ID = id
	return b
}

func (b *ResponseBuilder) WithTenantID(id uuid.UUID) *ResponseBuilder {
	b.response.KBTenantID = id
	return b
}

func (b *ResponseBuilder) WithAccountID(id uuid.UUID) *ResponseBuilder {
	b.response.KBAccountID = id
	return b
}

func (b *ResponseBuilder) WithPaymentID(id uuid.UUID) *ResponseBuilder {
	b.response.KBPaymentID = id
	return b
}

// WithPaymentTransactionID also moves the merchant reference code, which
// defaults to the transaction id.
func (b *ResponseBuilder) WithPaymentTransactionID(id uuid.UUID) *ResponseBuilder {
	b.response.KBPaymentTransactionID = id
	b.response.Params.MerchantReferenceCode = StringPtr(id.String())
	return b
}

func (b *ResponseBuilder) WithTransactionType(t domain.TransactionType) *ResponseBuilder {
	b.response.TransactionType = t
	b.response.APICall = domain.APICallFor(t)
	return b
}

func (b *ResponseBuilder) WithMerchantReferenceCode(mrc string) *ResponseBuilder {
	b.response.Params.MerchantReferenceCode = StringPtr(mrc)
	return b
}

func (b *ResponseBuilder) WithRequestID(requestID string) *ResponseBuilder {
	b.response.Params.RequestID = StringPtr(requestID)
	return b
}

func (b *ResponseBuilder) WithAmount(amount, currency string) *ResponseBuilder {
	b.response.Params.Amount = StringPtr(amount)
	b.response.Params.Currency = StringPtr(currency)
	return b
}

func (b *ResponseBuilder) WithCreatedAt(t time.Time) *ResponseBuilder {
	b.response.CreatedAt = t
	b.response.UpdatedAt = t
	return b
}

// Undefined turns the row into the record of a gateway call that timed out.
func (b *ResponseBuilder) Undefined() *ResponseBuilder {
	b.response.Success = false
	b.response.Message = StringPtr(TimeoutMessage)
	b.response.Params.Decision = nil
	b.response.Params.ReasonCode = nil
	b.response.Params.RequestID = nil
	return b
}

// Declined turns the row into a REJECT with the given reason code.
func (b *ResponseBuilder) Declined(reasonCode string) *ResponseBuilder {
	b.response.Success = false
	b.response.Message = StringPtr("Request was rejected.")
	b.response.Params.Decision = StringPtr("REJECT")
	b.response.Params.ReasonCode = StringPtr(reasonCode)
	return b
}

// SkippedGateway marks the row as synthesized without a gateway call.
func (b *ResponseBuilder) SkippedGateway() *ResponseBuilder {
	b.response.SkippedGateway = true
	return b
}

func (b *ResponseBuilder) Build() *domain.GatewayResponse {
	return b.response
}
