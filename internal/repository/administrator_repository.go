package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"transparencia/internal/models"
)

type AdministratorRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAdministratorRepository(db *pgxpool.Pool, logger *zap.Logger) *AdministratorRepository {
	return &AdministratorRepository{
		db:     db,
		logger: logger,
	}
}

// Exists is the whole authorization model: an email is an administrator if
// and only if its allow-list row is present.
func (r *AdministratorRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := squirrel.Select("1").
		From("administrators").
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if mapNoRows(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *AdministratorRepository) GetByEmail(ctx context.Context, email string) (*models.Administrator, error) {
	query := squirrel.Select("email", "password_hash", "created_at").
		From("administrators").
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var admin models.Administrator
	err = r.db.QueryRow(ctx, sql, args...).Scan(&admin.Email, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &admin, nil
}

func (r *AdministratorRepository) Create(ctx context.Context, admin *models.Administrator) error {
	query := squirrel.Insert("administrators").
		Columns("email", "password_hash", "created_at").
		Values(admin.Email, admin.PasswordHash, admin.CreatedAt).
		Suffix("ON CONFLICT (email) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
