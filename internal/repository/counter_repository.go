package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// counterName identifies the single receipt counter row.
const counterName = "transactionCounter"

// CounterRepository guards the shared receipt-number counter. The counter is
// only ever mutated through Allocate; there is no unguarded write path.
type CounterRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCounterRepository(db *pgxpool.Pool, logger *zap.Logger) *CounterRepository {
	return &CounterRepository{
		db:     db,
		logger: logger,
	}
}

// Allocate reserves the next receipt number with a read-modify-write inside a
// database transaction. The row lock serializes racing allocators, so two
// concurrent calls can never observe the same current value. A missing
// counter row yields ErrCounterMissing, never a silent restart from 1.
//
// The reservation is not rolled back if the caller's later steps fail: a gap
// in the sequence is acceptable, a duplicate is not.
func (r *CounterRepository) Allocate(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var current int64
	err = tx.QueryRow(ctx,
		"SELECT current_number FROM counters WHERE name = $1 FOR UPDATE",
		counterName,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCounterMissing
	}
	if err != nil {
		return 0, err
	}

	next := current + 1
	if _, err := tx.Exec(ctx,
		"UPDATE counters SET current_number = $1 WHERE name = $2",
		next, counterName,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	r.logger.Debug("Allocated receipt number", zap.Int64("number", next))
	return next, nil
}

// Current reads the counter without reserving anything.
func (r *CounterRepository) Current(ctx context.Context) (int64, error) {
	var current int64
	err := r.db.QueryRow(ctx,
		"SELECT current_number FROM counters WHERE name = $1", counterName,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCounterMissing
	}
	return current, err
}
