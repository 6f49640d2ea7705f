package ports

import (
	"context"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/shopspring/decimal"
)

// GatewayCredentials authenticate a SOAP request
type GatewayCredentials struct {
	MerchantID     string
	TransactionKey string
	Test           bool
}

// MerchantDescriptor is sent as the invoice header
type MerchantDescriptor struct {
	Name    string
	Contact string
}

// GatewayReference points a follow-on request at a prior gateway request
type GatewayReference struct {
	Amount       *decimal.Decimal
	RequestID    string
	RequestToken string
	Currency     string
	Type         domain.TransactionType
}

// GatewayRequest represents one outbound CyberSource request
type GatewayRequest struct {
	Credentials           GatewayCredentials
	Amount                *decimal.Decimal
	Reference             *GatewayReference
	MerchantDescriptor    *MerchantDescriptor
	Type                  domain.TransactionType
	MerchantReferenceCode string
	Currency              string
	Token                 string // CyberSource subscription id
	Email                 string
	CommerceIndicator     string
	RequestID             string // sent as X-Request-Id
	IgnoreAVS             bool
	IgnoreCVV             bool
}

// GatewayReply is the parsed outcome of a gateway call. Transport failures are
// represented as a reply with a structured UNDEFINED message, not as an error.
type GatewayReply struct {
	Message       *string
	Authorization *string
	Params        domain.GatewayParams
	Verification  domain.VerificationResult
	Success       bool
	FraudReview   bool
	Test          bool
}

// Fields converts the reply into a ledger merge payload
func (r *GatewayReply) Fields() domain.ResponseFields {
	return domain.ResponseFields{
		Message:       r.Message,
		Authorization: r.Authorization,
		FraudReview:   domain.BoolPtr(r.FraudReview),
		Test:          domain.BoolPtr(r.Test),
		Success:       domain.BoolPtr(r.Success),
		Params:        r.Params,
		Verification:  r.Verification,
	}
}

// PaymentGateway sends requests to CyberSource. An error is returned only for
// requests that could not be built; every sent request yields a reply.
type PaymentGateway interface {
	Process(ctx context.Context, req *GatewayRequest) (*GatewayReply, error)
}
