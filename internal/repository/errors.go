package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when a row the caller addressed does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCounterMissing is returned when the receipt counter row is absent.
	// Allocation must fail loudly in that case: defaulting to 1 would reissue
	// numbers already handed out.
	ErrCounterMissing = errors.New("transaction counter does not exist")
)

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
