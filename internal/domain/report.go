package domain

import "strings"

// Report is the authoritative record returned by the On-Demand reporting service.
type Report struct {
	Message *string
	Params  GatewayParams
	Success bool
	Test    bool
}

// IsEmpty reports whether the service answered without a matching request.
func (r *Report) IsEmpty() bool {
	return r == nil || IsBlank(r.Params.MerchantReferenceCode)
}

// Authorization mirrors the authorization string stored for synchronous replies.
func (r *Report) Authorization() *string {
	if IsBlank(r.Params.RequestID) {
		return nil
	}
	parts := []string{deref(r.Params.MerchantReferenceCode), *r.Params.RequestID, deref(r.Params.RequestToken)}
	s := strings.Join(parts, ";")
	return &s
}

// Fields converts the report into a ledger merge payload. The row stops being a
// placeholder once an authoritative answer has been merged into it.
func (r *Report) Fields() ResponseFields {
	return ResponseFields{
		Message:        r.Message,
		Authorization:  r.Authorization(),
		Success:        BoolPtr(r.Success),
		Test:           BoolPtr(r.Test),
		SkippedGateway: BoolPtr(false),
		Params:         r.Params,
	}
}

// ReportOutcomeKind discriminates a report lookup result.
type ReportOutcomeKind int

const (
	ReportUnavailable ReportOutcomeKind = iota
	ReportEmpty
	ReportFound
)

func (k ReportOutcomeKind) String() string {
	switch k {
	case ReportFound:
		return "found"
	case ReportEmpty:
		return "empty"
	}
	return "unavailable"
}

// ReportOutcome is Found(Report) | Empty | Unavailable. Err, when set, explains
// an Unavailable outcome; it is informational and never fatal.
type ReportOutcome struct {
	Report *Report
	Err    error
	Kind   ReportOutcomeKind
}

func ReportFoundOutcome(r *Report) ReportOutcome {
	if r.IsEmpty() {
		return ReportEmptyOutcome()
	}
	return ReportOutcome{Kind: ReportFound, Report: r}
}

func ReportEmptyOutcome() ReportOutcome {
	return ReportOutcome{Kind: ReportEmpty}
}

func ReportUnavailableOutcome(err error) ReportOutcome {
	return ReportOutcome{Kind: ReportUnavailable, Err: err}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
