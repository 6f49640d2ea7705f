package resilience

import (
	"context"
	"time"
)

// TimeoutConfig bounds the work a single inbound request may do.
//
// Operation covers the duplicate-call guard, the gateway call and any
// report lookups it triggers. Lookup covers a single ledger read.
type TimeoutConfig struct {
	Operation time.Duration
	Lookup    time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Operation: 120 * time.Second,
		Lookup:    15 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultTimeoutConfig
func (tc TimeoutConfig) WithDefaults() TimeoutConfig {
	def := DefaultTimeoutConfig()
	if tc.Operation <= 0 {
		tc.Operation = def.Operation
	}
	if tc.Lookup <= 0 {
		tc.Lookup = def.Lookup
	}
	return tc
}

// OperationContext derives a context for one payment operation
func (tc TimeoutConfig) OperationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Operation)
}

// LookupContext derives a context for one ledger read
func (tc TimeoutConfig) LookupContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Lookup)
}
