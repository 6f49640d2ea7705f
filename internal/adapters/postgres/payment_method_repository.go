package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/cybersource-plugin/internal/converters"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

const paymentMethodColumns = `id, kb_payment_method_id, kb_account_id, kb_tenant_id, token,
	cc_first_name, cc_last_name, cc_type, cc_exp_month, cc_exp_year, cc_last_4, zip,
	is_default, is_deleted, created_at, updated_at`

// PaymentMethodRepository implements ports.PaymentMethodRepository
type PaymentMethodRepository struct {
	pool ports.DBTX
}

// NewPaymentMethodRepository creates a new payment method repository
func NewPaymentMethodRepository(db ports.DBPort) *PaymentMethodRepository {
	return &PaymentMethodRepository{pool: db.GetDB()}
}

// Create stores a tokenized payment method
func (r *PaymentMethodRepository) Create(ctx context.Context, db ports.DBTX, pm *domain.PaymentMethod) error {
	q := executor(db, r.pool)

	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	now := time.Now().UTC()
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = now
	}
	pm.UpdatedAt = now

	_, err := q.Exec(ctx, `INSERT INTO cybersource_payment_methods (`+paymentMethodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		pm.ID, pm.KBPaymentMethodID, pm.KBAccountID, pm.KBTenantID, pm.Token,
		pm.CCFirstName, pm.CCLastName, pm.CCType, converters.ToNullableInt32(pm.CCExpMonth), converters.ToNullableInt32(pm.CCExpYear),
		pm.CCLastDigits, pm.Zip, pm.IsDefault, pm.IsDeleted, pm.CreatedAt, pm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create payment method: %w", err)
	}
	return nil
}

// GetByID retrieves a payment method by its ID
func (r *PaymentMethodRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentMethod, error) {
	q := executor(db, r.pool)

	pm, err := scanPaymentMethod(q.QueryRow(ctx, `SELECT `+paymentMethodColumns+`
		FROM cybersource_payment_methods WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("get payment method by id", err, domain.ErrPaymentMethodNotFound)
	}
	return pm, nil
}

// GetByKBPaymentMethodID resolves the live payment method stored for a billing-platform id
func (r *PaymentMethodRepository) GetByKBPaymentMethodID(ctx context.Context, db ports.DBTX, tenantID, kbPaymentMethodID uuid.UUID) (*domain.PaymentMethod, error) {
	q := executor(db, r.pool)

	pm, err := scanPaymentMethod(q.QueryRow(ctx, `SELECT `+paymentMethodColumns+`
		FROM cybersource_payment_methods
		WHERE kb_tenant_id = $1 AND kb_payment_method_id = $2 AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT 1`, tenantID, kbPaymentMethodID))
	if err != nil {
		return nil, notFound("get payment method by kb id", err, domain.ErrPaymentMethodNotFound)
	}
	return pm, nil
}

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	var firstName, lastName, ccType, lastDigits, zip pgtype.Text
	var expMonth, expYear pgtype.Int4

	err := row.Scan(
		&pm.ID, &pm.KBPaymentMethodID, &pm.KBAccountID, &pm.KBTenantID, &pm.Token,
		&firstName, &lastName, &ccType, &expMonth, &expYear, &lastDigits, &zip,
		&pm.IsDefault, &pm.IsDeleted, &pm.CreatedAt, &pm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	pm.CCFirstName = converters.FromNullableText(firstName)
	pm.CCLastName = converters.FromNullableText(lastName)
	pm.CCType = converters.FromNullableText(ccType)
	pm.CCLastDigits = converters.FromNullableText(lastDigits)
	pm.Zip = converters.FromNullableText(zip)
	pm.CCExpMonth = converters.FromNullableInt32(expMonth)
	pm.CCExpYear = converters.FromNullableInt32(expYear)
	return &pm, nil
}
