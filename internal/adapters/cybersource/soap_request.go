package cybersource

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/pkg/encoding"
	"github.com/shopspring/decimal"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	wsseNS         = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	passwordType   = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"
	transactionNS  = "urn:schemas-cybersource-com:transaction-data-" + xmlSchemaVersion
)

// encoding/xml writes prefixed names verbatim, which is what the WS-Security header needs.
type soapEnvelope struct {
	XMLName xml.Name   `xml:"s:Envelope"`
	NS      string     `xml:"xmlns:s,attr"`
	Header  soapHeader `xml:"s:Header"`
	Body    soapBody   `xml:"s:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	MustUnderstand string        `xml:"s:mustUnderstand,attr"`
	NS             string        `xml:"xmlns:wsse,attr"`
	UsernameToken  usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string       `xml:"wsse:Username"`
	Password wssePassword `xml:"wsse:Password"`
}

type wssePassword struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

type soapBody struct {
	RequestMessage requestMessage `xml:"requestMessage"`
}

// Element order follows the transaction-data XSD.
type requestMessage struct {
	XMLName                   xml.Name                   `xml:"requestMessage"`
	NS                        string                     `xml:"xmlns,attr"`
	MerchantID                string                     `xml:"merchantID"`
	MerchantReferenceCode     string                     `xml:"merchantReferenceCode"`
	ClientLibrary             string                     `xml:"clientLibrary,omitempty"`
	InvoiceHeader             *invoiceHeader             `xml:"invoiceHeader,omitempty"`
	BillTo                    *billTo                    `xml:"billTo,omitempty"`
	PurchaseTotals            *purchaseTotals            `xml:"purchaseTotals,omitempty"`
	RecurringSubscriptionInfo *recurringSubscriptionInfo `xml:"recurringSubscriptionInfo,omitempty"`
	CCAuthService             *ccAuthService             `xml:"ccAuthService,omitempty"`
	CCCaptureService          *ccCaptureService          `xml:"ccCaptureService,omitempty"`
	CCCreditService           *ccCreditService           `xml:"ccCreditService,omitempty"`
	CCAuthReversalService     *ccAuthReversalService     `xml:"ccAuthReversalService,omitempty"`
	VoidService               *voidService               `xml:"voidService,omitempty"`
	BusinessRules             *businessRules             `xml:"businessRules,omitempty"`
}

type invoiceHeader struct {
	MerchantDescriptor        string `xml:"merchantDescriptor,omitempty"`
	MerchantDescriptorContact string `xml:"merchantDescriptorContact,omitempty"`
}

type billTo struct {
	Email string `xml:"email"`
}

type purchaseTotals struct {
	Currency         string `xml:"currency"`
	GrandTotalAmount string `xml:"grandTotalAmount,omitempty"`
}

type recurringSubscriptionInfo struct {
	SubscriptionID string `xml:"subscriptionID"`
}

type ccAuthService struct {
	Run               string `xml:"run,attr"`
	CommerceIndicator string `xml:"commerceIndicator,omitempty"`
}

type ccCaptureService struct {
	Run              string `xml:"run,attr"`
	AuthRequestID    string `xml:"authRequestID,omitempty"`
	AuthRequestToken string `xml:"authRequestToken,omitempty"`
}

type ccCreditService struct {
	Run                 string `xml:"run,attr"`
	CaptureRequestID    string `xml:"captureRequestID,omitempty"`
	CaptureRequestToken string `xml:"captureRequestToken,omitempty"`
	CommerceIndicator   string `xml:"commerceIndicator,omitempty"`
}

type ccAuthReversalService struct {
	Run              string `xml:"run,attr"`
	AuthRequestID    string `xml:"authRequestID"`
	AuthRequestToken string `xml:"authRequestToken,omitempty"`
}

type voidService struct {
	Run              string `xml:"run,attr"`
	VoidRequestID    string `xml:"voidRequestID"`
	VoidRequestToken string `xml:"voidRequestToken,omitempty"`
}

type businessRules struct {
	IgnoreAVSResult string `xml:"ignoreAVSResult,omitempty"`
	IgnoreCVResult  string `xml:"ignoreCVResult,omitempty"`
}

// buildRequestMessage maps a gateway request onto the requestMessage services
func buildRequestMessage(req *domainports.GatewayRequest) (*requestMessage, error) {
	if req.Credentials.MerchantID == "" || req.Credentials.TransactionKey == "" {
		return nil, domain.ErrGatewayNotConfigured
	}
	if req.MerchantReferenceCode == "" {
		return nil, domain.ErrValidationFailed.WithDetail("field", "merchantReferenceCode")
	}

	msg := &requestMessage{
		NS:                    transactionNS,
		MerchantID:            req.Credentials.MerchantID,
		MerchantReferenceCode: req.MerchantReferenceCode,
		ClientLibrary:         "Go",
	}

	if d := req.MerchantDescriptor; d != nil && (d.Name != "" || d.Contact != "") {
		msg.InvoiceHeader = &invoiceHeader{MerchantDescriptor: d.Name, MerchantDescriptorContact: d.Contact}
	}
	if req.Email != "" {
		msg.BillTo = &billTo{Email: req.Email}
	}

	switch req.Type {
	case domain.TransactionTypeAuthorize:
		if err := withCharge(msg, req); err != nil {
			return nil, err
		}
		msg.CCAuthService = &ccAuthService{Run: "true", CommerceIndicator: req.CommerceIndicator}
		msg.BusinessRules = rulesFor(req)

	case domain.TransactionTypePurchase:
		if err := withCharge(msg, req); err != nil {
			return nil, err
		}
		msg.CCAuthService = &ccAuthService{Run: "true", CommerceIndicator: req.CommerceIndicator}
		msg.CCCaptureService = &ccCaptureService{Run: "true"}
		msg.BusinessRules = rulesFor(req)

	case domain.TransactionTypeCapture:
		ref, err := requireReference(req)
		if err != nil {
			return nil, err
		}
		if msg.PurchaseTotals, err = totals(req.Amount, req.Currency); err != nil {
			return nil, err
		}
		msg.CCCaptureService = &ccCaptureService{Run: "true", AuthRequestID: ref.RequestID, AuthRequestToken: ref.RequestToken}

	case domain.TransactionTypeRefund:
		ref, err := requireReference(req)
		if err != nil {
			return nil, err
		}
		if msg.PurchaseTotals, err = totals(req.Amount, req.Currency); err != nil {
			return nil, err
		}
		msg.CCCreditService = &ccCreditService{Run: "true", CaptureRequestID: ref.RequestID, CaptureRequestToken: ref.RequestToken}

	case domain.TransactionTypeCredit:
		if err := withCharge(msg, req); err != nil {
			return nil, err
		}
		msg.CCCreditService = &ccCreditService{Run: "true", CommerceIndicator: req.CommerceIndicator}

	case domain.TransactionTypeVoid:
		ref, err := requireReference(req)
		if err != nil {
			return nil, err
		}
		if ref.Type == domain.TransactionTypeAuthorize {
			// Authorizations are reversed, not voided
			if msg.PurchaseTotals, err = totals(ref.Amount, ref.Currency); err != nil {
				return nil, err
			}
			msg.CCAuthReversalService = &ccAuthReversalService{Run: "true", AuthRequestID: ref.RequestID, AuthRequestToken: ref.RequestToken}
		} else {
			msg.VoidService = &voidService{Run: "true", VoidRequestID: ref.RequestID, VoidRequestToken: ref.RequestToken}
		}

	default:
		return nil, domain.ErrValidationFailed.WithDetail("transaction_type", string(req.Type))
	}

	return msg, nil
}

// withCharge adds the totals and the stored subscription used as payment source
func withCharge(msg *requestMessage, req *domainports.GatewayRequest) error {
	if req.Token == "" {
		return domain.ErrPaymentMethodRequired
	}
	t, err := totals(req.Amount, req.Currency)
	if err != nil {
		return err
	}
	msg.PurchaseTotals = t
	msg.RecurringSubscriptionInfo = &recurringSubscriptionInfo{SubscriptionID: req.Token}
	return nil
}

// totals renders the amount with the currency's minor-unit scale
func totals(amount *decimal.Decimal, currency string) (*purchaseTotals, error) {
	if currency == "" {
		return nil, domain.ErrInvalidCurrency.WithDetail("currency", currency)
	}
	t := &purchaseTotals{Currency: strings.ToUpper(currency)}
	if amount == nil {
		return t, nil
	}
	if amount.IsNegative() {
		return nil, domain.ErrInvalidAmount.WithDetail("amount", amount.String())
	}
	formatted, err := domain.FormatAmount(*amount, currency)
	if err != nil {
		return nil, err
	}
	t.GrandTotalAmount = formatted
	return t, nil
}

func requireReference(req *domainports.GatewayRequest) (*domainports.GatewayReference, error) {
	if req.Reference == nil || req.Reference.RequestID == "" {
		return nil, domain.ErrNoCaptureCandidate.WithDetail("transaction_type", string(req.Type))
	}
	return req.Reference, nil
}

func rulesFor(req *domainports.GatewayRequest) *businessRules {
	if !req.IgnoreAVS && !req.IgnoreCVV {
		return nil
	}
	rules := &businessRules{}
	if req.IgnoreAVS {
		rules.IgnoreAVSResult = "true"
	}
	if req.IgnoreCVV {
		rules.IgnoreCVResult = "true"
	}
	return rules
}

// marshalEnvelope renders the signed SOAP envelope
func marshalEnvelope(creds domainports.GatewayCredentials, msg *requestMessage) ([]byte, error) {
	env := soapEnvelope{
		NS: soapEnvelopeNS,
		Header: soapHeader{Security: wsseSecurity{
			MustUnderstand: "1",
			NS:             wsseNS,
			UsernameToken: usernameToken{
				Username: creds.MerchantID,
				Password: wssePassword{Type: passwordType, Value: creds.TransactionKey},
			},
		}},
		Body: soapBody{RequestMessage: *msg},
	}

	body, err := encoding.EncodeXML(env, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SOAP envelope: %w", err)
	}
	return body, nil
}
