package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// ReportAPI queries the On-Demand single transaction report
type ReportAPI interface {
	// FetchReport never returns an error: failures are an Unavailable outcome
	FetchReport(ctx context.Context, merchantReferenceCode string, date time.Time) domain.ReportOutcome

	// CheckForDuplicates reports whether the duplicate guard should consult this API
	CheckForDuplicates() bool
}

// ReportAPIProvider builds the report client for a tenant. It returns nil, nil
// when reporting is not configured or the call options rule out a network lookup.
type ReportAPIProvider interface {
	ForTenant(ctx context.Context, tenantID uuid.UUID, opts domain.Options) (ReportAPI, error)
}
