package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOverride(t *testing.T) {
	tests := []struct {
		name    string
		message *string
		want    PaymentPluginStatus
		ok      bool
	}{
		{name: "nil", message: nil},
		{name: "plain text", message: StringPtr("Request was processed successfully.")},
		{name: "json without status", message: StringPtr(`{"exception_message":"boom"}`)},
		{name: "lower case status", message: StringPtr(`{"payment_plugin_status":"canceled"}`), want: StatusCanceled, ok: true},
		{name: "undefined", message: StringPtr(` {"payment_plugin_status":"UNDEFINED"}`), want: StatusUndefined, ok: true},
		{name: "unknown status", message: StringPtr(`{"payment_plugin_status":"PENDING"}`)},
		{name: "broken json", message: StringPtr(`{"payment_plugin_status":`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StatusOverride(tt.message)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCancelMessage(t *testing.T) {
	tests := []struct {
		name    string
		message *string
		want    string
	}{
		{name: "nil", message: nil, want: `{"payment_plugin_status":"CANCELED"}`},
		{name: "plain text kept", message: StringPtr("Request timed out"), want: `{"original_message":"Request timed out","payment_plugin_status":"CANCELED"}`},
		{
			name:    "structured keeps keys",
			message: StringPtr(`{"exception_class":"Timeout","payment_plugin_status":"UNDEFINED"}`),
			want:    `{"exception_class":"Timeout","payment_plugin_status":"CANCELED"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CancelMessage(tt.message)
			assert.Equal(t, tt.want, got)

			status, ok := StatusOverride(&got)
			require.True(t, ok)
			assert.Equal(t, StatusCanceled, status)
		})
	}
}

func TestExceptionMessage(t *testing.T) {
	msg := ExceptionMessage("SocketTimeout", "read timed out", StatusUndefined)
	assert.Equal(t, `{"exception_class":"SocketTimeout","exception_message":"read timed out","payment_plugin_status":"UNDEFINED"}`, msg)

	assert.Equal(t, `{"payment_plugin_status":"ERROR"}`, ExceptionMessage("", "", StatusError))
}

func TestDisplayMessage(t *testing.T) {
	plain := StringPtr("Declined")
	assert.Equal(t, plain, DisplayMessage(plain))

	structured := StringPtr(`{"exception_message":"read timed out","payment_plugin_status":"UNDEFINED"}`)
	got := DisplayMessage(structured)
	require.NotNil(t, got)
	assert.Equal(t, "read timed out", *got)

	canceled := StringPtr(CancelMessage(StringPtr("Request timed out")))
	got = DisplayMessage(canceled)
	require.NotNil(t, got)
	assert.Equal(t, "Request timed out", *got)

	assert.Nil(t, DisplayMessage(nil))
}
