// Package reconciliation classifies gateway outcomes and promotes indeterminate
// ledger rows to terminal ones once the transaction report has an answer.
package reconciliation

import (
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

// Outcome is everything classification reads from a reply, report or ledger row
type Outcome struct {
	Message    *string
	ReasonCode *string
	Success    bool
}

// OutcomeOfResponse reads the classification inputs of a ledger row
func OutcomeOfResponse(r *domain.GatewayResponse) Outcome {
	return Outcome{Message: r.Message, ReasonCode: r.Params.ReasonCode, Success: r.Success}
}

// OutcomeOfReply reads the classification inputs of a gateway reply
func OutcomeOfReply(r *ports.GatewayReply) Outcome {
	return Outcome{Message: r.Message, ReasonCode: r.Params.ReasonCode, Success: r.Success}
}

// Classifier maps outcomes to plugin statuses with an injected reason-code table
type Classifier struct {
	codes *domain.ReasonCodeTable
}

// NewClassifier creates a classifier over codes
func NewClassifier(codes *domain.ReasonCodeTable) *Classifier {
	return &Classifier{codes: codes}
}

// Classify is pure. A payment_plugin_status carried by a structured message
// wins, then success, then the reason-code bucket.
func (c *Classifier) Classify(o Outcome) domain.PaymentPluginStatus {
	if status, ok := domain.StatusOverride(o.Message); ok {
		return status
	}
	if o.Success {
		return domain.StatusProcessed
	}
	if domain.IsBlank(o.ReasonCode) {
		return domain.StatusError
	}

	switch c.codes.Bucket(*o.ReasonCode) {
	case domain.BucketCanceled:
		return domain.StatusCanceled
	case domain.BucketUndefined:
		return domain.StatusUndefined
	}
	return domain.StatusError
}

// Status classifies a ledger row
func (c *Classifier) Status(r *domain.GatewayResponse) domain.PaymentPluginStatus {
	return c.Classify(OutcomeOfResponse(r))
}

// NeedsResolution reports whether a row can still change: UNDEFINED rows and
// placeholder rows synthesized without an authoritative answer.
func (c *Classifier) NeedsResolution(r *domain.GatewayResponse) bool {
	return r.IsPlaceholder() || c.Status(r) == domain.StatusUndefined
}
