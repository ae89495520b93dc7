package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"transparencia/internal/models"
)

// TransactionsChannel is the NOTIFY channel mutations are announced on.
const TransactionsChannel = "transactions_changed"

var transactionColumns = []string{
	"id", "type", "amount", "date", "is_date_approximate",
	"description", "receipt_number", "receipt_url", "added_by", "created_at",
}

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns(transactionColumns...).
		Values(tx.ID, tx.Type, tx.Amount, tx.Date, tx.IsDateApproximate,
			tx.Description, tx.ReceiptNumber, tx.ReceiptURL, tx.AddedBy, tx.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return err
	}
	r.notify(ctx, tx.ID.String())
	return nil
}

// Update applies a partial patch of column name to value. Columns absent
// from the patch are left untouched.
func (r *TransactionRepository) Update(ctx context.Context, id uuid.UUID, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	query := squirrel.Update("transactions").
		SetMap(patch).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.notify(ctx, id.String())
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.notify(ctx, id.String())
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&tx.ID, &tx.Type, &tx.Amount, &tx.Date, &tx.IsDateApproximate,
		&tx.Description, &tx.ReceiptNumber, &tx.ReceiptURL, &tx.AddedBy, &tx.CreatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &tx, nil
}

// ListAll fetches the whole collection ordered by date descending, the order
// the portal's snapshot cache expects.
func (r *TransactionRepository) ListAll(ctx context.Context) ([]models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		OrderBy("date DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.Type, &tx.Amount, &tx.Date, &tx.IsDateApproximate,
			&tx.Description, &tx.ReceiptNumber, &tx.ReceiptURL, &tx.AddedBy, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// notify announces a mutation on the transactions channel. Failure to notify
// does not fail the mutation; listeners refetch wholesale anyway.
func (r *TransactionRepository) notify(ctx context.Context, payload string) {
	if _, err := r.db.Exec(ctx, "SELECT pg_notify($1, $2)", TransactionsChannel, payload); err != nil {
		r.logger.Warn("Failed to notify transaction change", zap.Error(err))
	}
}
