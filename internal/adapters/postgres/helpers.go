package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

// executor picks the caller's transaction when one is given
func executor(db ports.DBTX, pool ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return pool
}

// notFound maps pgx.ErrNoRows to the given domain sentinel
func notFound(op string, err error, sentinel *domain.DomainError) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}
