package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

const statusKey = "payment_plugin_status"

// IsStructuredMessage reports whether a ledger message carries a JSON override.
func IsStructuredMessage(message *string) bool {
	return message != nil && strings.HasPrefix(strings.TrimSpace(*message), "{")
}

// StatusOverride returns the payment_plugin_status carried by a structured message.
func StatusOverride(message *string) (PaymentPluginStatus, bool) {
	fields, ok := decodeMessage(message)
	if !ok {
		return "", false
	}
	raw, ok := fields[statusKey].(string)
	if !ok {
		return "", false
	}
	status := PaymentPluginStatus(strings.ToUpper(raw))
	if !status.IsValid() {
		return "", false
	}
	return status, true
}

// CancelMessage rewrites a ledger message into its canceled form. JSON object
// messages keep their keys; anything else is kept under original_message.
func CancelMessage(message *string) string {
	fields, ok := decodeMessage(message)
	if !ok {
		fields = make(map[string]interface{})
		if !IsBlank(message) {
			fields["original_message"] = *message
		}
	}
	fields[statusKey] = string(StatusCanceled)
	return encodeMessage(fields)
}

// ExceptionMessage builds the structured message recorded when the gateway
// could not be reached or answered with something unusable.
func ExceptionMessage(class, message string, status PaymentPluginStatus) string {
	fields := map[string]interface{}{statusKey: string(status)}
	if class != "" {
		fields["exception_class"] = class
	}
	if message != "" {
		fields["exception_message"] = message
	}
	return encodeMessage(fields)
}

// DisplayMessage extracts a human readable message from a ledger message.
func DisplayMessage(message *string) *string {
	fields, ok := decodeMessage(message)
	if !ok {
		return message
	}
	for _, key := range []string{"exception_message", "original_message"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return &s
		}
	}
	return message
}

func decodeMessage(message *string) (map[string]interface{}, bool) {
	if !IsStructuredMessage(message) {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(*message))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// encoding/json sorts map keys, which keeps the output stable across rewrites.
func encodeMessage(fields map[string]interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return `{"` + statusKey + `":"` + string(StatusCanceled) + `"}`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
