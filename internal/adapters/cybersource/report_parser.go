package cybersource

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// Transaction Detail Report, only the parts reconciliation reads
type tdrReport struct {
	XMLName  xml.Name     `xml:"Report"`
	Requests []tdrRequest `xml:"Requests>Request"`
}

type tdrRequest struct {
	MerchantReferenceNumber    string                `xml:"MerchantReferenceNumber,attr"`
	RequestID                  string                `xml:"RequestID,attr"`
	SubscriptionID             string                `xml:"SubscriptionID,attr"`
	TransactionReferenceNumber string                `xml:"TransactionReferenceNumber,attr"`
	ApplicationReplies         []tdrApplicationReply `xml:"ApplicationReplies>ApplicationReply"`
	PaymentData                *tdrPaymentData       `xml:"PaymentData"`
	Profiles                   []tdrProfile          `xml:"ProfileList>Profile"`
}

type tdrApplicationReply struct {
	Name  string  `xml:"Name,attr"`
	RCode string  `xml:"RCode"`
	RMsg  *string `xml:"RMsg"`
}

type tdrPaymentData struct {
	PaymentRequestID  string `xml:"PaymentRequestID"`
	Amount            string `xml:"Amount"`
	CurrencyCode      string `xml:"CurrencyCode"`
	AuthorizationCode string `xml:"AuthorizationCode"`
	AVSResult         string `xml:"AVSResult"`
	AVSResultMapped   string `xml:"AVSResultMapped"`
}

type tdrProfile struct {
	Name            string `xml:"Name,attr"`
	ProfileDecision string `xml:"ProfileDecision"`
}

// parseTransactionReport reads a single transaction report. A report without
// any request yields an empty Report; callers check IsEmpty.
func parseTransactionReport(body []byte) (*domain.Report, error) {
	var doc tdrReport
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeReportMalformed, "failed to parse transaction report", err)
	}

	report := &domain.Report{
		Test: strings.HasPrefix(doc.XMLName.Space, reportTestNamespace),
	}
	if len(doc.Requests) == 0 {
		return report, nil
	}

	// single transaction query: the first request is the one asked for
	req := doc.Requests[0]

	requestID := req.RequestID
	pd := req.PaymentData
	if pd == nil {
		pd = &tdrPaymentData{}
	}
	if strings.TrimSpace(requestID) == "" {
		requestID = pd.PaymentRequestID
	}

	var decision string
	if len(req.Profiles) > 0 {
		decision = req.Profiles[0].ProfileDecision
	}

	report.Params = domain.GatewayParams{
		MerchantReferenceCode: trimmed(req.MerchantReferenceNumber),
		RequestID:             trimmed(requestID),
		Decision:              trimmed(decision),
		Currency:              trimmed(pd.CurrencyCode),
		Amount:                trimmed(pd.Amount),
		AuthorizationCode:     trimmed(pd.AuthorizationCode),
		AVSCode:               trimmed(pd.AVSResultMapped),
		AVSCodeRaw:            trimmed(pd.AVSResult),
		ReconciliationID:      trimmed(req.TransactionReferenceNumber),
		SubscriptionID:        trimmed(req.SubscriptionID),
	}
	report.Success, report.Message = applicationOutcome(req.ApplicationReplies)

	return report, nil
}

// applicationOutcome is successful only when every application replied RCode 1.
// The message is the last application's RMsg.
func applicationOutcome(replies []tdrApplicationReply) (bool, *string) {
	if len(replies) == 0 {
		return false, nil
	}
	success := true
	var msg *string
	for _, r := range replies {
		success = success && strings.TrimSpace(r.RCode) == "1"
		msg = nil
		if r.RMsg != nil {
			msg = trimmed(*r.RMsg)
		}
	}
	return success, msg
}

func trimmed(s string) *string {
	return domain.StringPtr(strings.TrimSpace(s))
}
