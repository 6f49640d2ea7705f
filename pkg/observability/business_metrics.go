package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment operation outcomes
	paymentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybersource_operations_total",
		Help: "Total number of payment operations by classified status",
	}, []string{
		"api_call",    // authorize, capture, purchase, void, credit, refund
		"status",      // PROCESSED, ERROR, CANCELED, UNDEFINED
		"reason_code", // CyberSource reason code, empty when absent
	})

	paymentAmountMinorUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybersource_settled_amount_minor_units_total",
		Help: "Total settled amount in minor currency units",
	}, []string{
		"transaction_type",
		"currency",
	})

	// Gateway round trips
	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cybersource_gateway_request_duration_seconds",
		Help:    "Duration of SOAP gateway requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"api_call",
		"outcome", // reply, fault, transport_error
	})

	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cybersource_circuit_state",
		Help: "Circuit breaker state per remote host (0=closed, 1=open, 2=half-open)",
	}, []string{"host"})

	// Reconciliation side channel
	reportFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybersource_report_fetches_total",
		Help: "On-Demand report lookups by outcome",
	}, []string{
		"outcome", // found, empty, unavailable
	})

	reportFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cybersource_report_fetch_duration_seconds",
		Help:    "Duration of On-Demand report lookups",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybersource_reconciliations_total",
		Help: "Results of reconciling indeterminate ledger rows",
	}, []string{
		"result", // resolved, canceled, pending
		"status", // status after reconciliation
	})

	duplicateSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybersource_duplicate_skips_total",
		Help: "Gateway calls skipped because the report already showed the request",
	}, []string{"api_call", "status"})

	duplicateResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybersource_duplicate_responses_total",
		Help: "Ledger rows recorded for an operation that already had one",
	}, []string{"api_call"})

	autoCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cybersource_refunds_redirected_to_credit_total",
		Help: "Refunds executed as stand-alone credits because the charge was too old",
	})
)

// RecordPaymentOperation records the classified result of a payment operation
func RecordPaymentOperation(apiCall, status, reasonCode string) {
	paymentOperationsTotal.WithLabelValues(apiCall, status, reasonCode).Inc()
}

// RecordSettledAmount records the amount of a newly created ledger transaction
func RecordSettledAmount(transactionType, currency string, amountMinorUnits int64) {
	if amountMinorUnits <= 0 {
		return
	}
	paymentAmountMinorUnits.WithLabelValues(transactionType, currency).Add(float64(amountMinorUnits))
}

// RecordGatewayRequest records one SOAP round trip
func RecordGatewayRequest(apiCall, outcome string, seconds float64) {
	gatewayRequestDuration.WithLabelValues(apiCall, outcome).Observe(seconds)
}

// SetCircuitState publishes a circuit breaker transition
func SetCircuitState(host string, state int) {
	circuitState.WithLabelValues(host).Set(float64(state))
}

// RecordReportFetch records an On-Demand report lookup
func RecordReportFetch(outcome string, seconds float64) {
	reportFetchesTotal.WithLabelValues(outcome).Inc()
	reportFetchDuration.Observe(seconds)
}

// RecordReconciliation records what happened to an indeterminate ledger row
func RecordReconciliation(result, status string) {
	reconciliationsTotal.WithLabelValues(result, status).Inc()
}

// RecordDuplicateSkip records a gateway call answered from the report
func RecordDuplicateSkip(apiCall, status string) {
	duplicateSkipsTotal.WithLabelValues(apiCall, status).Inc()
}

// RecordDuplicateResponse raises the duplicate ledger row alarm
func RecordDuplicateResponse(apiCall string) {
	duplicateResponsesTotal.WithLabelValues(apiCall).Inc()
}

// RecordAutoCredit records a refund redirected to a credit
func RecordAutoCredit() {
	autoCreditsTotal.Inc()
}
