package cybersource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	pkghttp "github.com/kevin07696/cybersource-plugin/pkg/http"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
	"github.com/kevin07696/cybersource-plugin/pkg/timeutil"
	"go.uber.org/zap"
)

const (
	reportType    = "transaction"
	reportSubtype = "transactionDetail"
	reportVersion = "1.7"
)

// errRetryableStatus marks 5xx answers from the reporting host
var errRetryableStatus = errors.New("report service unavailable")

// reportAdapter implements domainports.ReportAPI against the On-Demand
// single transaction query
type reportAdapter struct {
	config     ReportConfig
	httpClient ports.HTTPClient
	logger     *zap.Logger
	backoff    resilience.BackoffStrategy
}

// NewReportAdapter creates a report client for one reporting account.
// A nil httpClient gets one built from the account's timeouts and proxy.
func NewReportAdapter(config ReportConfig, httpClient ports.HTTPClient, logger *zap.Logger) (domainports.ReportAPI, error) {
	config = config.withDefaults()
	if config.MerchantID == "" || config.Username == "" {
		return nil, domain.ErrGatewayNotConfigured.WithDetail("component", "on_demand")
	}

	if httpClient == nil {
		proxy, err := config.proxyURL()
		if err != nil {
			return nil, err
		}
		httpClient = pkghttp.NewHTTPClient(pkghttp.ReportClientConfig(config.OpenTimeout, config.ReadTimeout, proxy))
	}

	return &reportAdapter{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		backoff:    resilience.ReportBackoff(),
	}, nil
}

func (a *reportAdapter) CheckForDuplicates() bool {
	return a.config.CheckForDuplicates
}

// FetchReport looks up the transaction sent with merchantReferenceCode on date
func (a *reportAdapter) FetchReport(ctx context.Context, merchantReferenceCode string, date time.Time) domain.ReportOutcome {
	start := time.Now()
	outcome := a.fetch(ctx, merchantReferenceCode, date)
	observability.RecordReportFetch(outcome.Kind.String(), time.Since(start).Seconds())
	return outcome
}

func (a *reportAdapter) fetch(ctx context.Context, merchantReferenceCode string, date time.Time) domain.ReportOutcome {
	form := url.Values{
		"merchantID":              {a.config.MerchantID},
		"merchantReferenceNumber": {merchantReferenceCode},
		"targetDate":              {timeutil.ReportDate(date)},
		"type":                    {reportType},
		"subtype":                 {reportSubtype},
		"versionNumber":           {reportVersion},
	}.Encode()

	a.logger.Info("Retrieving transaction report",
		zap.String("merchant_reference_code", merchantReferenceCode),
		zap.String("target_date", timeutil.ReportDate(date)),
		zap.String("merchant_id", a.config.MerchantID),
	)

	var body []byte
	lastErr := resilience.Retry(ctx, resilience.RetryPolicy{
		MaxRetries: a.config.MaxRetries,
		Backoff:    a.backoff,
		Retryable:  a.isRetryable,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			a.logger.Warn("Retrying transaction report",
				zap.Int("attempt", attempt),
				zap.Duration("backoff_delay", delay),
				zap.Error(err),
			)
		},
	}, func(int) error {
		var err error
		body, err = a.post(ctx, form)
		return err
	})

	if lastErr != nil {
		a.logger.Warn("Transaction report unavailable",
			zap.String("merchant_reference_code", merchantReferenceCode),
			zap.Error(lastErr),
		)
		return domain.ReportUnavailableOutcome(domain.WrapError(domain.ErrorCodeReportUnavailable, "report query failed", lastErr))
	}

	report, err := parseTransactionReport(body)
	if err != nil {
		a.logger.Warn("Error checking for duplicate payment, unparseable report",
			zap.String("merchant_reference_code", merchantReferenceCode),
			zap.Int("body_length", len(body)),
			zap.Error(err),
		)
		return domain.ReportUnavailableOutcome(err)
	}

	return domain.ReportFoundOutcome(report)
}

func (a *reportAdapter) post(ctx context.Context, form string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.endpoint(), strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.SetBasicAuth(a.config.Username, a.config.Password)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", errRetryableStatus, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("report query rejected: HTTP %d", resp.StatusCode)
	}
	return body, nil
}

// isRetryable: queries are read-only, so transport errors and 5xx are retried
func (a *reportAdapter) isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errRetryableStatus) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// proxyURL builds the outbound proxy from tenant settings
func (c ReportConfig) proxyURL() (*url.URL, error) {
	if c.ProxyAddress == "" {
		return nil, nil
	}
	host := c.ProxyAddress
	if c.ProxyPort > 0 {
		host = host + ":" + strconv.Itoa(c.ProxyPort)
	}
	u := &url.URL{Scheme: "http", Host: host}
	if c.ProxyUser != "" {
		u.User = url.UserPassword(c.ProxyUser, c.ProxyPassword)
	}
	if _, err := url.Parse(u.String()); err != nil {
		return nil, domain.ErrGatewayNotConfigured.WithDetail("proxy_address", c.ProxyAddress)
	}
	return u, nil
}
