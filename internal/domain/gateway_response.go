package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GatewayParams are the CyberSource correlation fields kept on a ledger row.
// Every field is optional; a nil or blank value means the gateway did not send it.
type GatewayParams struct {
	MerchantReferenceCode *string `json:"merchant_reference_code"`
	RequestID             *string `json:"request_id"`
	Decision              *string `json:"decision"`
	ReasonCode            *string `json:"reason_code"`
	RequestToken          *string `json:"request_token"`
	Currency              *string `json:"currency"`
	Amount                *string `json:"amount"`
	AuthorizationCode     *string `json:"authorization_code"`
	AVSCode               *string `json:"avs_code"`
	AVSCodeRaw            *string `json:"avs_code_raw"`
	CVCode                *string `json:"cv_code"`
	AuthorizedDateTime    *string `json:"authorized_date_time"`
	ProcessorResponse     *string `json:"processor_response"`
	ReconciliationID      *string `json:"reconciliation_id"`
	SubscriptionID        *string `json:"subscription_id"`
}

// VerificationResult holds the AVS and CVV sub-results.
type VerificationResult struct {
	AVSResultCode        *string `json:"avs_result_code"`
	AVSResultMessage     *string `json:"avs_result_message"`
	AVSResultStreetMatch *string `json:"avs_result_street_match"`
	AVSResultPostalMatch *string `json:"avs_result_postal_match"`
	CVVResultCode        *string `json:"cvv_result_code"`
	CVVResultMessage     *string `json:"cvv_result_message"`
}

// GatewayResponse is one ledger row per gateway call attempt or synthesized result.
type GatewayResponse struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Message       *string `json:"message"`
	Authorization *string `json:"authorization"`

	Params       GatewayParams      `json:"params"`
	Verification VerificationResult `json:"verification"`

	APICall                   APICall         `json:"api_call"`
	TransactionType           TransactionType `json:"transaction_type"`
	PaymentProcessorAccountID string          `json:"payment_processor_account_id"`

	ID                     uuid.UUID `json:"id"`
	KBAccountID            uuid.UUID `json:"kb_account_id"`
	KBTenantID             uuid.UUID `json:"kb_tenant_id"`
	KBPaymentID            uuid.UUID `json:"kb_payment_id"`
	KBPaymentTransactionID uuid.UUID `json:"kb_payment_transaction_id"`

	Success     bool `json:"success"`
	FraudReview bool `json:"fraud_review"`
	Test        bool `json:"test"`

	// SkippedGateway marks rows synthesized without a real gateway answer
	// (duplicate guard or skip_gw). A CANCELED row carrying it is a placeholder.
	SkippedGateway bool `json:"skipped_gateway"`
}

// ResponseFields is the merge payload applied by a ledger update.
// Nil and blank values never replace what the row already holds.
type ResponseFields struct {
	Message        *string
	Authorization  *string
	FraudReview    *bool
	Test           *bool
	Success        *bool
	SkippedGateway *bool
	Params         GatewayParams
	Verification   VerificationResult
}

// Merge applies fields to the response and reports whether anything changed.
// UpdatedAt is left to the caller.
func (r *GatewayResponse) Merge(f ResponseFields) bool {
	changed := false

	changed = mergeString(&r.Message, f.Message) || changed
	changed = mergeString(&r.Authorization, f.Authorization) || changed
	changed = mergeBool(&r.FraudReview, f.FraudReview) || changed
	changed = mergeBool(&r.Test, f.Test) || changed
	changed = mergeBool(&r.Success, f.Success) || changed
	changed = mergeBool(&r.SkippedGateway, f.SkippedGateway) || changed

	p, q := &r.Params, f.Params
	changed = mergeString(&p.MerchantReferenceCode, q.MerchantReferenceCode) || changed
	changed = mergeString(&p.RequestID, q.RequestID) || changed
	changed = mergeString(&p.Decision, q.Decision) || changed
	changed = mergeString(&p.ReasonCode, q.ReasonCode) || changed
	changed = mergeString(&p.RequestToken, q.RequestToken) || changed
	changed = mergeString(&p.Currency, q.Currency) || changed
	changed = mergeString(&p.Amount, q.Amount) || changed
	changed = mergeString(&p.AuthorizationCode, q.AuthorizationCode) || changed
	changed = mergeString(&p.AVSCode, q.AVSCode) || changed
	changed = mergeString(&p.AVSCodeRaw, q.AVSCodeRaw) || changed
	changed = mergeString(&p.CVCode, q.CVCode) || changed
	changed = mergeString(&p.AuthorizedDateTime, q.AuthorizedDateTime) || changed
	changed = mergeString(&p.ProcessorResponse, q.ProcessorResponse) || changed
	changed = mergeString(&p.ReconciliationID, q.ReconciliationID) || changed
	changed = mergeString(&p.SubscriptionID, q.SubscriptionID) || changed

	v, w := &r.Verification, f.Verification
	changed = mergeString(&v.AVSResultCode, w.AVSResultCode) || changed
	changed = mergeString(&v.AVSResultMessage, w.AVSResultMessage) || changed
	changed = mergeString(&v.AVSResultStreetMatch, w.AVSResultStreetMatch) || changed
	changed = mergeString(&v.AVSResultPostalMatch, w.AVSResultPostalMatch) || changed
	changed = mergeString(&v.CVVResultCode, w.CVVResultCode) || changed
	changed = mergeString(&v.CVVResultMessage, w.CVVResultMessage) || changed

	return changed
}

// IsPlaceholder reports whether the row is an inferred result awaiting an authoritative answer.
func (r *GatewayResponse) IsPlaceholder() bool {
	return r.SkippedGateway && !r.Success
}

// OrderID is the merchant reference code the row was sent with, falling back to
// the first segment of the stored authorization.
func (r *GatewayResponse) OrderID() string {
	if !IsBlank(r.Params.MerchantReferenceCode) {
		return *r.Params.MerchantReferenceCode
	}
	if IsBlank(r.Authorization) {
		return ""
	}
	return strings.SplitN(*r.Authorization, ";", 2)[0]
}

// IsBlank reports whether s is nil or only whitespace.
func IsBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

func mergeString(dst **string, src *string) bool {
	if IsBlank(src) {
		return false
	}
	if *dst != nil && **dst == *src {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func mergeBool(dst *bool, src *bool) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}
