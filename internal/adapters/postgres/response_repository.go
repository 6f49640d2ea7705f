package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

const responseColumns = `id, api_call, kb_account_id, kb_payment_id, kb_payment_transaction_id,
	transaction_type, payment_processor_account_id, kb_tenant_id,
	message, authorization_value, fraud_review, test, skipped_gateway,
	params_merchant_reference_code, params_request_id, params_decision, params_reason_code,
	params_request_token, params_currency, params_amount, params_authorization_code,
	params_avs_code, params_avs_code_raw, params_cv_code, params_authorized_date_time,
	params_processor_response, params_reconciliation_id, params_subscription_id,
	avs_result_code, avs_result_message, avs_result_street_match, avs_result_postal_match,
	cvv_result_code, cvv_result_message,
	success, created_at, updated_at`

// ResponseRepository implements ports.ResponseRepository with hand-written SQL
type ResponseRepository struct {
	pool ports.DBTX
}

// NewResponseRepository creates a new response ledger repository
func NewResponseRepository(db ports.DBPort) *ResponseRepository {
	return &ResponseRepository{pool: db.GetDB()}
}

// Create inserts a new ledger row. ID and timestamps are filled in when zero.
func (r *ResponseRepository) Create(ctx context.Context, db ports.DBTX, response *domain.GatewayResponse) error {
	q := executor(db, r.pool)

	if response.ID == uuid.Nil {
		response.ID = uuid.New()
	}
	now := time.Now().UTC()
	if response.CreatedAt.IsZero() {
		response.CreatedAt = now
	}
	if response.UpdatedAt.IsZero() {
		response.UpdatedAt = response.CreatedAt
	}

	_, err := q.Exec(ctx, `INSERT INTO cybersource_responses (`+responseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)`,
		responseArgs(response)...,
	)
	if err != nil {
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}

// GetByID retrieves a ledger row by its ID
func (r *ResponseRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	q := executor(db, r.pool)

	row := q.QueryRow(ctx, `SELECT `+responseColumns+` FROM cybersource_responses WHERE id = $1`, id)
	response, err := scanResponse(row)
	if err != nil {
		return nil, notFound("get response by id", err, domain.ErrResponseNotFound)
	}
	return response, nil
}

// GetForUpdate locks the row for the rest of db's transaction. Concurrent
// reconciliations of the same row queue here and see each other's writes.
func (r *ResponseRepository) GetForUpdate(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	q := executor(db, r.pool)

	row := q.QueryRow(ctx, `SELECT `+responseColumns+` FROM cybersource_responses WHERE id = $1 FOR UPDATE`, id)
	response, err := scanResponse(row)
	if err != nil {
		return nil, notFound("lock response", err, domain.ErrResponseNotFound)
	}
	return response, nil
}

// ListByPayment returns the rows for a payment, oldest first
func (r *ResponseRepository) ListByPayment(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID) ([]*domain.GatewayResponse, error) {
	q := executor(db, r.pool)

	rows, err := q.Query(ctx, `SELECT `+responseColumns+` FROM cybersource_responses
		WHERE kb_tenant_id = $1 AND kb_payment_id = $2
		ORDER BY created_at ASC, id ASC`, tenantID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list responses by payment: %w", err)
	}
	defer rows.Close()

	var responses []*domain.GatewayResponse
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, response)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list responses by payment: %w", err)
	}
	return responses, nil
}

// LatestForTransaction returns the most recent row for a payment transaction
func (r *ResponseRepository) LatestForTransaction(ctx context.Context, db ports.DBTX, tenantID, paymentID, paymentTransactionID uuid.UUID) (*domain.GatewayResponse, error) {
	q := executor(db, r.pool)

	row := q.QueryRow(ctx, `SELECT `+responseColumns+` FROM cybersource_responses
		WHERE kb_tenant_id = $1 AND kb_payment_id = $2 AND kb_payment_transaction_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, tenantID, paymentID, paymentTransactionID)
	response, err := scanResponse(row)
	if err != nil {
		return nil, notFound("latest response for transaction", err, domain.ErrResponseNotFound)
	}
	return response, nil
}

// CountForOperation counts rows recorded for the same operation
func (r *ResponseRepository) CountForOperation(ctx context.Context, db ports.DBTX, tenantID, paymentID, paymentTransactionID uuid.UUID, apiCall domain.APICall) (int, error) {
	q := executor(db, r.pool)

	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cybersource_responses
		WHERE kb_tenant_id = $1 AND kb_payment_id = $2 AND kb_payment_transaction_id = $3 AND api_call = $4`,
		tenantID, paymentID, paymentTransactionID, string(apiCall),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count responses for operation: %w", err)
	}
	return count, nil
}

// Update rewrites the mutable columns. The IS DISTINCT FROM guard keeps a
// repeated update from touching updated_at.
func (r *ResponseRepository) Update(ctx context.Context, db ports.DBTX, response *domain.GatewayResponse) (bool, error) {
	q := executor(db, r.pool)

	p, v := response.Params, response.Verification
	tag, err := q.Exec(ctx, `UPDATE cybersource_responses SET
			message = $2, authorization_value = $3, fraud_review = $4, test = $5, skipped_gateway = $6, success = $7,
			params_merchant_reference_code = $8, params_request_id = $9, params_decision = $10,
			params_reason_code = $11, params_request_token = $12, params_currency = $13, params_amount = $14,
			params_authorization_code = $15, params_avs_code = $16, params_avs_code_raw = $17,
			params_cv_code = $18, params_authorized_date_time = $19, params_processor_response = $20,
			params_reconciliation_id = $21, params_subscription_id = $22,
			avs_result_code = $23, avs_result_message = $24, avs_result_street_match = $25,
			avs_result_postal_match = $26, cvv_result_code = $27, cvv_result_message = $28,
			updated_at = $29
		WHERE id = $1 AND (
			message, authorization_value, fraud_review, test, skipped_gateway, success,
			params_merchant_reference_code, params_request_id, params_decision,
			params_reason_code, params_request_token, params_currency, params_amount,
			params_authorization_code, params_avs_code, params_avs_code_raw,
			params_cv_code, params_authorized_date_time, params_processor_response,
			params_reconciliation_id, params_subscription_id,
			avs_result_code, avs_result_message, avs_result_street_match,
			avs_result_postal_match, cvv_result_code, cvv_result_message
		) IS DISTINCT FROM (
			$2::text, $3::text, $4::boolean, $5::boolean, $6::boolean, $7::boolean,
			$8::varchar, $9::varchar, $10::varchar, $11::varchar, $12::text, $13::varchar, $14::varchar,
			$15::varchar, $16::varchar, $17::varchar, $18::varchar, $19::varchar, $20::varchar,
			$21::varchar, $22::varchar, $23::varchar, $24::text, $25::varchar, $26::varchar,
			$27::varchar, $28::text
		)`,
		response.ID,
		response.Message, response.Authorization, response.FraudReview, response.Test, response.SkippedGateway, response.Success,
		p.MerchantReferenceCode, p.RequestID, p.Decision,
		p.ReasonCode, p.RequestToken, p.Currency, p.Amount,
		p.AuthorizationCode, p.AVSCode, p.AVSCodeRaw,
		p.CVCode, p.AuthorizedDateTime, p.ProcessorResponse,
		p.ReconciliationID, p.SubscriptionID,
		v.AVSResultCode, v.AVSResultMessage, v.AVSResultStreetMatch,
		v.AVSResultPostalMatch, v.CVVResultCode, v.CVVResultMessage,
		response.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update response: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// nothing written: either unchanged or missing
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cybersource_responses WHERE id = $1)`, response.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("update response: %w", err)
	}
	if !exists {
		return false, domain.ErrResponseNotFound
	}
	return false, nil
}

// Rekey moves a row to another payment transaction id
func (r *ResponseRepository) Rekey(ctx context.Context, db ports.DBTX, id, paymentTransactionID uuid.UUID) error {
	q := executor(db, r.pool)

	tag, err := q.Exec(ctx, `UPDATE cybersource_responses
		SET kb_payment_transaction_id = $2, updated_at = NOW()
		WHERE id = $1`, id, paymentTransactionID)
	if err != nil {
		return fmt.Errorf("rekey response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}

func responseArgs(r *domain.GatewayResponse) []interface{} {
	p, v := r.Params, r.Verification
	return []interface{}{
		r.ID, string(r.APICall), r.KBAccountID, r.KBPaymentID, r.KBPaymentTransactionID,
		string(r.TransactionType), r.PaymentProcessorAccountID, r.KBTenantID,
		r.Message, r.Authorization, r.FraudReview, r.Test, r.SkippedGateway,
		p.MerchantReferenceCode, p.RequestID, p.Decision, p.ReasonCode,
		p.RequestToken, p.Currency, p.Amount, p.AuthorizationCode,
		p.AVSCode, p.AVSCodeRaw, p.CVCode, p.AuthorizedDateTime,
		p.ProcessorResponse, p.ReconciliationID, p.SubscriptionID,
		v.AVSResultCode, v.AVSResultMessage, v.AVSResultStreetMatch, v.AVSResultPostalMatch,
		v.CVVResultCode, v.CVVResultMessage,
		r.Success, r.CreatedAt, r.UpdatedAt,
	}
}

func scanResponse(row pgx.Row) (*domain.GatewayResponse, error) {
	var r domain.GatewayResponse
	var apiCall, transactionType string
	p, v := &r.Params, &r.Verification

	err := row.Scan(
		&r.ID, &apiCall, &r.KBAccountID, &r.KBPaymentID, &r.KBPaymentTransactionID,
		&transactionType, &r.PaymentProcessorAccountID, &r.KBTenantID,
		&r.Message, &r.Authorization, &r.FraudReview, &r.Test, &r.SkippedGateway,
		&p.MerchantReferenceCode, &p.RequestID, &p.Decision, &p.ReasonCode,
		&p.RequestToken, &p.Currency, &p.Amount, &p.AuthorizationCode,
		&p.AVSCode, &p.AVSCodeRaw, &p.CVCode, &p.AuthorizedDateTime,
		&p.ProcessorResponse, &p.ReconciliationID, &p.SubscriptionID,
		&v.AVSResultCode, &v.AVSResultMessage, &v.AVSResultStreetMatch, &v.AVSResultPostalMatch,
		&v.CVVResultCode, &v.CVVResultMessage,
		&r.Success, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.APICall = domain.APICall(apiCall)
	r.TransactionType = domain.TransactionType(transactionType)
	return &r, nil
}
