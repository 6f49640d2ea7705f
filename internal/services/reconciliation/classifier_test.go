package reconciliation_test

import (
	"testing"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/cybersource"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/services/reconciliation"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := reconciliation.NewClassifier(cybersource.DefaultReasonCodes())

	tests := []struct {
		name    string
		outcome reconciliation.Outcome
		want    domain.PaymentPluginStatus
	}{
		{"accepted", reconciliation.Outcome{Success: true, ReasonCode: domain.StringPtr("100")}, domain.StatusProcessed},
		{"partial approval", reconciliation.Outcome{Success: true, ReasonCode: domain.StringPtr("110")}, domain.StatusProcessed},
		{"merchant configuration problem", reconciliation.Outcome{ReasonCode: domain.StringPtr("234")}, domain.StatusCanceled},
		{"missing field", reconciliation.Outcome{ReasonCode: domain.StringPtr("101")}, domain.StatusCanceled},
		{"duplicate reference code", reconciliation.Outcome{ReasonCode: domain.StringPtr("104")}, domain.StatusCanceled},
		{"system error", reconciliation.Outcome{ReasonCode: domain.StringPtr("150")}, domain.StatusCanceled},
		{"processor timeout", reconciliation.Outcome{ReasonCode: domain.StringPtr("151")}, domain.StatusUndefined},
		{"processing timeout", reconciliation.Outcome{ReasonCode: domain.StringPtr("152")}, domain.StatusUndefined},
		{"processor unreachable", reconciliation.Outcome{ReasonCode: domain.StringPtr("250")}, domain.StatusUndefined},
		{"general decline", reconciliation.Outcome{ReasonCode: domain.StringPtr("203")}, domain.StatusError},
		{"unknown code", reconciliation.Outcome{ReasonCode: domain.StringPtr("999")}, domain.StatusError},
		{"no reason code", reconciliation.Outcome{Message: domain.StringPtr("Declined")}, domain.StatusError},
		{"blank reason code", reconciliation.Outcome{ReasonCode: domain.StringPtr(" ")}, domain.StatusError},
		{
			"structured undefined message",
			reconciliation.Outcome{Message: domain.StringPtr(`{"exception_message":"Timeout","payment_plugin_status":"UNDEFINED"}`)},
			domain.StatusUndefined,
		},
		{
			"structured canceled message wins over success",
			reconciliation.Outcome{Success: true, Message: domain.StringPtr(`{"original_message":"x","payment_plugin_status":"CANCELED"}`)},
			domain.StatusCanceled,
		},
		{
			"cancel-class code wins over decision",
			reconciliation.Outcome{ReasonCode: domain.StringPtr("236"), Message: domain.StringPtr("Processor failure")},
			domain.StatusCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.outcome))
		})
	}
}

func TestClassifier_CancelClassCodes(t *testing.T) {
	classifier := reconciliation.NewClassifier(cybersource.DefaultReasonCodes())

	for _, code := range []string{"101", "102", "104", "150", "207", "232", "234", "235", "236", "237",
		"238", "239", "240", "241", "243", "246", "247", "254"} {
		assert.Equal(t, domain.StatusCanceled, classifier.Classify(reconciliation.Outcome{ReasonCode: &code}), code)
	}
}

func TestClassifier_NeedsResolution(t *testing.T) {
	classifier := reconciliation.NewClassifier(cybersource.DefaultReasonCodes())

	tests := []struct {
		name     string
		response domain.GatewayResponse
		want     bool
	}{
		{"undefined", domain.GatewayResponse{Params: domain.GatewayParams{ReasonCode: domain.StringPtr("151")}}, true},
		{"processed", domain.GatewayResponse{Success: true}, false},
		{"authoritative cancel", domain.GatewayResponse{Params: domain.GatewayParams{ReasonCode: domain.StringPtr("234")}}, false},
		{"error", domain.GatewayResponse{Params: domain.GatewayParams{ReasonCode: domain.StringPtr("203")}}, false},
		{
			"placeholder cancel",
			domain.GatewayResponse{
				SkippedGateway: true,
				Message:        domain.StringPtr(`{"original_message":"declined","payment_plugin_status":"CANCELED"}`),
			},
			true,
		},
		{"skipped success", domain.GatewayResponse{SkippedGateway: true, Success: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.NeedsResolution(&tt.response))
		})
	}
}
