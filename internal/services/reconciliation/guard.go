package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"go.uber.org/zap"
)

// SkippedGatewayMessage is recorded on rows synthesized instead of a gateway call
const SkippedGatewayMessage = "Skipped Gateway call"

// GuardRequest identifies the call about to be sent
type GuardRequest struct {
	Date                  time.Time
	MerchantReferenceCode string
	APICall               domain.APICall
}

// GuardDecision tells the caller whether to skip the gateway call. Report is
// set when Skip is.
type GuardDecision struct {
	Report *domain.Report
	Skip   bool
}

// Reply synthesizes the reply recorded for a skipped call. It carries no
// correlation ids: a successful report becomes "Skipped Gateway call", a failed
// one a CANCELED placeholder the resolver may still correct.
func (d GuardDecision) Reply(merchantReferenceCode string) *ports.GatewayReply {
	reply := &ports.GatewayReply{
		Params: domain.GatewayParams{MerchantReferenceCode: domain.StringPtr(merchantReferenceCode)},
	}
	if d.Report == nil {
		return reply
	}
	reply.Test = d.Report.Test
	if d.Report.Success {
		reply.Success = true
		reply.Message = domain.StringPtr(SkippedGatewayMessage)
		return reply
	}
	message := domain.CancelMessage(d.Report.Message)
	reply.Message = &message
	return reply
}

// SkippedReply is the reply recorded when the caller asked to skip the gateway
func SkippedReply(merchantReferenceCode string) *ports.GatewayReply {
	return &ports.GatewayReply{
		Message: domain.StringPtr(SkippedGatewayMessage),
		Success: true,
		Params:  domain.GatewayParams{MerchantReferenceCode: domain.StringPtr(merchantReferenceCode)},
	}
}

// Guard consults the transaction report before a gateway call. It fails open:
// anything short of a found report lets the call through.
type Guard struct {
	logger *zap.Logger
}

// NewGuard creates a duplicate-call guard
func NewGuard(logger *zap.Logger) *Guard {
	return &Guard{logger: logger}
}

// Check decides whether req was already submitted. A nil api means reporting
// is not configured for the tenant.
func (g *Guard) Check(ctx context.Context, api ports.ReportAPI, req GuardRequest, opts domain.Options) (decision GuardDecision) {
	if opts.BypassDuplicateCheck || api == nil || !api.CheckForDuplicates() {
		return GuardDecision{}
	}

	defer func() {
		if p := recover(); p != nil {
			g.logger.Warn("Error checking for duplicate payment",
				zap.String("merchant_reference_code", req.MerchantReferenceCode),
				zap.Error(fmt.Errorf("panic: %v", p)),
			)
			decision = GuardDecision{}
		}
	}()

	outcome := api.FetchReport(ctx, req.MerchantReferenceCode, req.Date)
	switch outcome.Kind {
	case domain.ReportUnavailable:
		g.logger.Warn("Error checking for duplicate payment",
			zap.String("merchant_reference_code", req.MerchantReferenceCode),
			zap.Error(outcome.Err),
		)
		return GuardDecision{}
	case domain.ReportEmpty:
		return GuardDecision{}
	}

	status := domain.StatusProcessed
	if !outcome.Report.Success {
		status = domain.StatusCanceled
	}
	g.logger.Info("Skipping gateway call for existing transaction",
		zap.String("merchant_reference_code", req.MerchantReferenceCode),
		zap.String("api_call", string(req.APICall)),
		zap.Bool("report_success", outcome.Report.Success),
	)
	observability.RecordDuplicateSkip(string(req.APICall), string(status))

	return GuardDecision{Skip: true, Report: outcome.Report}
}
