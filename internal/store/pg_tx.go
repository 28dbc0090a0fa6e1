package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/supermarket/internal/store/db"
	"github.com/jackc/pgx/v5"
)

// PgPool is the part of pgxpool.Pool the stores need.
type PgPool interface {
	db.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// PgTransactor binds a pgx transaction to the context handed to fn. Pg stores called with
// that context run their statements inside it.
type PgTransactor struct {
	pool PgPool
}

func NewPgTransactor(pool PgPool) *PgTransactor {
	return &PgTransactor{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise. A context that already
// carries a transaction is reused.
func (t *PgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queries returns queries bound to the context transaction, or to the pool.
func queries(ctx context.Context, pool PgPool) *db.Queries {
	if tx, ok := txFromContext(ctx); ok {
		return db.New(tx)
	}
	return db.New(pool)
}

// withTransaction runs fn inside the context transaction, or inside a new one.
func withTransaction(ctx context.Context, pool PgPool, fn func(qtx *db.Queries) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(db.New(tx))
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(db.New(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
