package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
)

var _ ports.DBPort = (*DBExecutor)(nil)

// SQLSTATE classes worth another attempt: serialization_failure, deadlock_detected.
var retryableSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
}

const maxTxRetries = 2

// DBExecutor runs ledger writes against PostgreSQL
type DBExecutor struct {
	pool    *pgxpool.Pool
	backoff resilience.BackoffStrategy
}

func NewDBExecutor(pool *pgxpool.Pool) *DBExecutor {
	return &DBExecutor{
		pool: pool,
		backoff: &resilience.ExponentialBackoff{
			BaseDelay:  20 * time.Millisecond,
			MaxDelay:   200 * time.Millisecond,
			Multiplier: 2,
			Jitter:     0.2,
		},
	}
}

func (db *DBExecutor) GetDB() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity for the health endpoint
func (db *DBExecutor) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// WithTransaction runs fn in a read-write transaction, retrying the whole
// unit when PostgreSQL aborts it with a serialization failure or deadlock.
func (db *DBExecutor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return resilience.Retry(ctx, resilience.RetryPolicy{
		MaxRetries: maxTxRetries,
		Backoff:    db.backoff,
		Retryable:  isRetryableTxError,
	}, func(int) error {
		return db.runOnce(ctx, fn)
	})
}

func (db *DBExecutor) runOnce(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && retryableSQLStates[pgErr.Code]
}
