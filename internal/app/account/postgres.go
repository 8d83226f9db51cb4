package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lanchat/internal/app/db"
)

// PostgresRepository stores accounts in the `accounts` table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps an open, migrated pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, accountID, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (account_id, password_hash) VALUES ($1, $2)`,
		accountID, passwordHash,
	)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PasswordHash(ctx context.Context, accountID string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx,
		`SELECT password_hash FROM accounts WHERE account_id = $1`,
		accountID,
	).Scan(&hash)
	if db.IsNoRows(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select account: %w", err)
	}
	return hash, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE account_id = $1`,
		accountID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1)`,
		accountID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select account: %w", err)
	}
	return exists, nil
}
