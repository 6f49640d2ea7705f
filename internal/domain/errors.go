package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Ledger Errors (LEDGER_*)
	ErrorCodeResponseNotFound    ErrorCode = "LEDGER_RESPONSE_NOT_FOUND"
	ErrorCodeTransactionNotFound ErrorCode = "LEDGER_TRANSACTION_NOT_FOUND"
	ErrorCodeNoCaptureCandidate  ErrorCode = "LEDGER_NO_CANDIDATE_TRANSACTION"

	// Payment Method Errors (PM_*)
	ErrorCodePMNotFound ErrorCode = "PM_NOT_FOUND"
	ErrorCodePMRequired ErrorCode = "PM_REQUIRED"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed          ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid   ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationCurrencyInvalid ErrorCode = "VALIDATION_CURRENCY_INVALID"
	ErrorCodeValidationProperty        ErrorCode = "VALIDATION_PROPERTY_INVALID"

	// Configuration Errors (CONFIG_*)
	ErrorCodeGatewayNotConfigured ErrorCode = "CONFIG_GATEWAY_NOT_CONFIGURED"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayUnreachable ErrorCode = "GATEWAY_UNREACHABLE"

	// Reporting Errors (REPORT_*)
	ErrorCodeReportUnavailable ErrorCode = "REPORT_UNAVAILABLE"
	ErrorCodeReportMalformed   ErrorCode = "REPORT_MALFORMED"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so wrapped sentinels still compare equal.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// WithDetail returns a copy of the error carrying an extra detail field.
// Sentinels are shared, so they are never mutated in place.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeResponseNotFound ||
		code == ErrorCodeTransactionNotFound ||
		code == ErrorCodePMNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationCurrencyInvalid ||
		code == ErrorCodeValidationProperty
}

var (
	ErrResponseNotFound    = NewDomainError(ErrorCodeResponseNotFound, "gateway response not found")
	ErrTransactionNotFound = NewDomainError(ErrorCodeTransactionNotFound, "gateway transaction not found")
	ErrNoCaptureCandidate  = NewDomainError(ErrorCodeNoCaptureCandidate, "no prior transaction to reference")

	ErrPaymentMethodNotFound = NewDomainError(ErrorCodePMNotFound, "payment method not found")
	ErrPaymentMethodRequired = NewDomainError(ErrorCodePMRequired, "payment method required")

	ErrValidationFailed = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrInvalidAmount    = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrInvalidCurrency  = NewDomainError(ErrorCodeValidationCurrencyInvalid, "invalid currency")
	ErrInvalidProperty  = NewDomainError(ErrorCodeValidationProperty, "invalid plugin property")

	ErrGatewayNotConfigured = NewDomainError(ErrorCodeGatewayNotConfigured, "cybersource is not configured for this tenant")
	ErrGatewayUnreachable   = NewDomainError(ErrorCodeGatewayUnreachable, "gateway unreachable")

	ErrReportUnavailable = NewDomainError(ErrorCodeReportUnavailable, "reconciliation report unavailable")
	ErrMalformedReport   = NewDomainError(ErrorCodeReportMalformed, "malformed reconciliation report")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
