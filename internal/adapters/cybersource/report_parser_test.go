package cybersource

import (
	"testing"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleReplyReport = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE Report SYSTEM "https://ebctest.cybersource.com/ebctest/reports/dtd/tdr_1_3.dtd">
<Report xmlns="https://ebctest.cybersource.com/ebctest/reports/dtd/tdr_1_3.dtd"
        Name="Transaction Detail" Version="1.3" MerchantID="testMerchant"
        ReportStartDate="2008-09-10 21:46:41.765-08:00" ReportEndDate="2008-09-10 21:46:41.765-08:00">
  <Requests>
    <Request MerchantReferenceNumber="33038191" RequestDate="2008-09-10T14:00:08-08:00"
             RequestID="2210804330010167904567" SubscriptionID="" Source="SCMP API"
             User="merchant123" TransactionReferenceNumber="0001094522">
      <BillTo><FirstName>JANE</FirstName><Email>null@cybersource.com</Email></BillTo>
      <ApplicationReplies>
        <ApplicationReply Name="ics_bill">
          <RCode>1</RCode>
          <RFlag>SOK</RFlag>
          <RMsg>Request was processed successfully.</RMsg>
        </ApplicationReply>
      </ApplicationReplies>
      <PaymentData>
        <PaymentProcessor>vital</PaymentProcessor>
        <Amount>1.81</Amount>
        <CurrencyCode>eur</CurrencyCode>
        <EventType>TRANSMITTED</EventType>
      </PaymentData>
    </Request>
  </Requests>
</Report>`

const multiReplyReport = `<?xml version="1.0" encoding="UTF-8"?>
<Report xmlns="https://ebc.cybersource.com/ebc/reports/dtd/tdr_1_6.dtd" Name="Transaction Detail" Version="1.6" MerchantID="ok_go">
  <Requests>
    <Request MerchantReferenceNumber="1234" SubscriptionID="" TransactionReferenceNumber="00013791KV8BZF3P">
      <ApplicationReplies>
        <ApplicationReply Name="ics_auth"><RCode>1</RCode><RFlag>SOK</RFlag><RMsg>Request was processed successfully.</RMsg></ApplicationReply>
        <ApplicationReply Name="ics_decision"><RCode>0</RCode><RFlag>DREVIEW</RFlag><RMsg>Decision is REVIEW.</RMsg></ApplicationReply>
        <ApplicationReply Name="ics_decision_early"><RCode>1</RCode><RFlag/></ApplicationReply>
        <ApplicationReply Name="ics_score"><RCode>1</RCode><RFlag>DSCORE</RFlag><RMsg>Score exceeds threshold. Score = 84</RMsg></ApplicationReply>
      </ApplicationReplies>
      <PaymentData>
        <PaymentRequestID>2434465504100167904567</PaymentRequestID>
        <Amount>2.00</Amount>
        <CurrencyCode>USD</CurrencyCode>
        <AuthorizationCode>888888</AuthorizationCode>
        <AVSResult>I1</AVSResult>
        <AVSResultMapped>X</AVSResultMapped>
      </PaymentData>
      <ProfileList>
        <Profile Name="Default Profile">
          <ProfileMode>Active</ProfileMode>
          <ProfileDecision>ACCEPT</ProfileDecision>
        </Profile>
      </ProfileList>
    </Request>
    <Request MerchantReferenceNumber="ignored" RequestID="999"/>
  </Requests>
</Report>`

func TestParseTransactionReport_SingleReply(t *testing.T) {
	report, err := parseTransactionReport([]byte(singleReplyReport))
	require.NoError(t, err)

	assert.False(t, report.IsEmpty())
	assert.True(t, report.Success)
	assert.True(t, report.Test)
	assert.Equal(t, "Request was processed successfully.", *report.Message)

	p := report.Params
	assert.Equal(t, "33038191", *p.MerchantReferenceCode)
	assert.Equal(t, "2210804330010167904567", *p.RequestID)
	assert.Equal(t, "eur", *p.Currency)
	assert.Equal(t, "1.81", *p.Amount)
	assert.Equal(t, "0001094522", *p.ReconciliationID)
	assert.Nil(t, p.Decision)
	assert.Nil(t, p.ReasonCode)
	assert.Nil(t, p.RequestToken)
	assert.Nil(t, p.AuthorizationCode)
	assert.Nil(t, p.AVSCode)
	assert.Nil(t, p.SubscriptionID)

	assert.Equal(t, "33038191;2210804330010167904567;", *report.Authorization())
}

func TestParseTransactionReport_MultipleReplies(t *testing.T) {
	report, err := parseTransactionReport([]byte(multiReplyReport))
	require.NoError(t, err)

	assert.False(t, report.Success)
	assert.False(t, report.Test)
	assert.Equal(t, "Score exceeds threshold. Score = 84", *report.Message)

	p := report.Params
	assert.Equal(t, "1234", *p.MerchantReferenceCode)
	assert.Equal(t, "2434465504100167904567", *p.RequestID, "falls back to PaymentRequestID")
	assert.Equal(t, "ACCEPT", *p.Decision)
	assert.Equal(t, "USD", *p.Currency)
	assert.Equal(t, "2.00", *p.Amount)
	assert.Equal(t, "888888", *p.AuthorizationCode)
	assert.Equal(t, "X", *p.AVSCode)
	assert.Equal(t, "I1", *p.AVSCodeRaw)
	assert.Equal(t, "00013791KV8BZF3P", *p.ReconciliationID)
}

func TestParseTransactionReport_NoRequests(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<Report xmlns="https://ebctest.cybersource.com/ebctest/reports/dtd/tdr_1_7.dtd" Name="Transaction Detail"><Requests/></Report>`

	report, err := parseTransactionReport([]byte(body))
	require.NoError(t, err)
	assert.True(t, report.IsEmpty())
	assert.True(t, report.Test)
	assert.Equal(t, domain.ReportEmpty, domain.ReportFoundOutcome(report).Kind)
}

func TestParseTransactionReport_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"html", "<html><body>Unauthorized</body></html>"},
		{"plain text", "Invalid merchant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTransactionReport([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedReport)
		})
	}
}

func TestApplicationOutcome(t *testing.T) {
	msg := func(s string) *string { return &s }

	tests := []struct {
		name        string
		replies     []tdrApplicationReply
		wantSuccess bool
		wantMessage *string
	}{
		{"no replies", nil, false, nil},
		{"all ok", []tdrApplicationReply{{RCode: "1", RMsg: msg("a")}, {RCode: "1", RMsg: msg("b")}}, true, msg("b")},
		{"one failed", []tdrApplicationReply{{RCode: "0", RMsg: msg("a")}, {RCode: "1", RMsg: msg("b")}}, false, msg("b")},
		{"last without message", []tdrApplicationReply{{RCode: "1", RMsg: msg("a")}, {RCode: "1"}}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			success, message := applicationOutcome(tt.replies)
			assert.Equal(t, tt.wantSuccess, success)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}
