package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

const transactionColumns = `id, cybersource_response_id, api_call, kb_account_id, kb_payment_id,
	kb_payment_transaction_id, transaction_type, payment_processor_account_id,
	txn_id, amount_in_cents, currency, kb_tenant_id, created_at, updated_at`

// TransactionRepository implements ports.TransactionRepository with hand-written SQL
type TransactionRepository struct {
	pool ports.DBTX
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{pool: db.GetDB()}
}

// Create inserts a transaction. The unique response link turns a second insert
// for the same response into a no-op.
func (r *TransactionRepository) Create(ctx context.Context, db ports.DBTX, transaction *domain.GatewayTransaction) (bool, error) {
	q := executor(db, r.pool)

	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	now := time.Now().UTC()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = now
	}
	if transaction.UpdatedAt.IsZero() {
		transaction.UpdatedAt = transaction.CreatedAt
	}

	tag, err := q.Exec(ctx, `INSERT INTO cybersource_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (cybersource_response_id) DO NOTHING`,
		transaction.ID,
		transaction.ResponseID,
		string(transaction.APICall),
		transaction.KBAccountID,
		transaction.KBPaymentID,
		transaction.KBPaymentTransactionID,
		string(transaction.TransactionType),
		transaction.PaymentProcessorAccountID,
		transaction.TxnID,
		transaction.AmountInCents,
		transaction.Currency,
		transaction.KBTenantID,
		transaction.CreatedAt,
		transaction.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create transaction: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayTransaction, error) {
	q := executor(db, r.pool)

	row := q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM cybersource_transactions WHERE id = $1`, id)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, notFound("get transaction by id", err, domain.ErrTransactionNotFound)
	}
	return transaction, nil
}

// GetByResponseID returns the transaction linked to a response, or nil
func (r *TransactionRepository) GetByResponseID(ctx context.Context, db ports.DBTX, responseID uuid.UUID) (*domain.GatewayTransaction, error) {
	q := executor(db, r.pool)

	row := q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM cybersource_transactions WHERE cybersource_response_id = $1`, responseID)
	transaction, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by response id: %w", err)
	}
	return transaction, nil
}

// LatestByPayment returns the most recent transaction of the payment, optionally
// restricted to the given types
func (r *TransactionRepository) LatestByPayment(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID, types ...domain.TransactionType) (*domain.GatewayTransaction, error) {
	q := executor(db, r.pool)

	query := `SELECT ` + transactionColumns + ` FROM cybersource_transactions
		WHERE kb_tenant_id = $1 AND kb_payment_id = $2`
	args := []interface{}{tenantID, paymentID}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query += ` AND transaction_type = ANY($3)`
		args = append(args, names)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	transaction, err := scanTransaction(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest transaction by payment (%s): %w", typeList(types), err)
	}
	return transaction, nil
}

func scanTransaction(row pgx.Row) (*domain.GatewayTransaction, error) {
	var t domain.GatewayTransaction
	var apiCall, transactionType string

	err := row.Scan(
		&t.ID, &t.ResponseID, &apiCall, &t.KBAccountID, &t.KBPaymentID,
		&t.KBPaymentTransactionID, &transactionType, &t.PaymentProcessorAccountID,
		&t.TxnID, &t.AmountInCents, &t.Currency, &t.KBTenantID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.APICall = domain.APICall(apiCall)
	t.TransactionType = domain.TransactionType(transactionType)
	return &t, nil
}

func typeList(types []domain.TransactionType) string {
	if len(types) == 0 {
		return "any"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}
