package cybersource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/adapters/ports"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	domainports "github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	pkghttp "github.com/kevin07696/cybersource-plugin/pkg/http"
	"github.com/kevin07696/cybersource-plugin/pkg/observability"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
	"go.uber.org/zap"
)

// transportError wraps a failure to get a usable answer. sent is false only
// when the request provably never left this process.
type transportError struct {
	err  error
	sent bool
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// isUnsent reports whether err is a transport failure that is safe to resend.
func isUnsent(err error) bool {
	var te *transportError
	return errors.As(err, &te) && !te.sent
}

// soapAdapter implements domainports.PaymentGateway over the SOAP toolkit API
type soapAdapter struct {
	config         *SOAPConfig
	httpClient     ports.HTTPClient
	logger         *zap.Logger
	circuitBreaker *resilience.CircuitBreaker
	backoff        resilience.BackoffStrategy
	codes          *domain.ReasonCodeTable
}

// NewSOAPAdapter creates the CyberSource transaction processor adapter.
// A nil httpClient gets a pooled client tuned for the gateway.
func NewSOAPAdapter(config *SOAPConfig, httpClient ports.HTTPClient, codes *domain.ReasonCodeTable, logger *zap.Logger) domainports.PaymentGateway {
	if config == nil {
		config = DefaultSOAPConfig()
	}
	if httpClient == nil {
		httpClient = pkghttp.NewHTTPClient(pkghttp.SOAPClientConfig(config.Timeout))
	}
	if codes == nil {
		codes = DefaultReasonCodes()
	}

	cbConfig := resilience.DefaultCircuitBreakerConfig("cybersource_soap")
	cbConfig.IsFailure = func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}
	cbConfig.OnStateChange = func(name string, from, to resilience.CircuitState) {
		observability.SetCircuitState(name, int(to))
		logger.Warn("Circuit breaker state changed",
			zap.String("host", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &soapAdapter{
		config:         config,
		httpClient:     httpClient,
		logger:         logger,
		circuitBreaker: resilience.NewCircuitBreaker(cbConfig),
		backoff:        resilience.DefaultExponentialBackoff(),
		codes:          codes,
	}
}

// Process sends one request. Declines, faults and transport failures are all
// returned as replies; an error means the request could not be built.
func (a *soapAdapter) Process(ctx context.Context, req *domainports.GatewayRequest) (*domainports.GatewayReply, error) {
	msg, err := buildRequestMessage(req)
	if err != nil {
		a.logger.Error("Invalid CyberSource request",
			zap.String("transaction_type", string(req.Type)),
			zap.Error(err),
		)
		return nil, err
	}

	body, err := marshalEnvelope(req.Credentials, msg)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to build SOAP request", err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	endpoint := a.config.endpoint(req.Credentials.Test)
	apiCall := string(domain.APICallFor(req.Type))

	a.logger.Info("Processing CyberSource transaction",
		zap.String("api_call", apiCall),
		zap.String("merchant_reference_code", req.MerchantReferenceCode),
		zap.String("request_id", requestID),
		zap.Bool("test", req.Credentials.Test),
	)

	start := time.Now()
	var reply *domainports.GatewayReply
	err = a.circuitBreaker.Call(func() error {
		return resilience.Retry(ctx, resilience.RetryPolicy{
			MaxRetries: a.config.MaxRetries,
			Backoff:    a.backoff,
			Retryable:  isUnsent,
			OnRetry: func(attempt int, delay time.Duration, err error) {
				a.logger.Warn("Retrying unsent CyberSource request",
					zap.Int("attempt", attempt),
					zap.Int("max_retries", a.config.MaxRetries),
					zap.Duration("backoff_delay", delay),
					zap.Error(err),
				)
			},
		}, func(int) error {
			parsed, err := a.send(ctx, endpoint, requestID, req.MerchantReferenceCode, body, req.Credentials.Test)
			if err != nil {
				return err
			}
			reply = parsed
			return nil
		})
	})
	elapsed := time.Since(start)

	if err != nil {
		a.logger.Error("CyberSource request failed",
			zap.String("api_call", apiCall),
			zap.String("merchant_reference_code", req.MerchantReferenceCode),
			zap.String("circuit_state", a.circuitBreaker.State().String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		observability.RecordGatewayRequest(apiCall, "transport_error", elapsed.Seconds())
		return failureReply(err, req.Credentials.Test), nil
	}

	outcome := "reply"
	if reply.Params.RequestID == nil {
		outcome = "fault"
	}
	observability.RecordGatewayRequest(apiCall, outcome, elapsed.Seconds())

	a.logger.Info("Received CyberSource reply",
		zap.String("api_call", apiCall),
		zap.Bool("success", reply.Success),
		zap.Stringp("reason_code", reply.Params.ReasonCode),
		zap.Stringp("request_id", reply.Params.RequestID),
		zap.Duration("elapsed", elapsed),
	)

	return reply, nil
}

// send performs one HTTP round trip. The body is parsed regardless of status
// since SOAP faults arrive with HTTP 500.
func (a *soapAdapter) send(ctx context.Context, endpoint, requestID, orderID string, body []byte, test bool) (*domainports.GatewayReply, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("X-Request-Id", requestID)
	httpReq.Header.Set("User-Agent", a.config.UserAgent)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &transportError{err: err, sent: !isDialError(err)}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("failed to read response: %w", err), sent: true}
	}

	a.logger.Debug("CyberSource response body",
		zap.Int("status_code", httpResp.StatusCode),
		zap.Int("body_length", len(raw)),
	)

	reply, err := parseReply(raw, orderID, test, a.codes)
	if err != nil {
		return nil, &transportError{
			err:  fmt.Errorf("unusable response (HTTP %d): %w", httpResp.StatusCode, err),
			sent: true,
		}
	}
	return reply, nil
}

// isDialError reports whether err happened before any byte reached the host
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// failureReply records a transport failure as undefined, including requests
// that never reached the host; the resolver cancels those once the report
// stays empty past the threshold. Only a breaker that refused the call cancels
// outright.
func failureReply(err error, test bool) *domainports.GatewayReply {
	status := domain.StatusUndefined
	cause := err

	var te *transportError
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		status = domain.StatusCanceled
	case errors.As(err, &te):
		cause = te.err
	}

	class := fmt.Sprintf("%T", cause)
	if inner := errors.Unwrap(cause); inner != nil {
		class = fmt.Sprintf("%T", inner)
	}

	message := domain.ExceptionMessage(class, err.Error(), status)
	return &domainports.GatewayReply{Message: &message, Test: test}
}
