package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/models"
)

const transactionColumns = `id, user_id, task_id, type, amount, balance_after, commission, description, created_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx inserts a transaction record inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, task_id, type, amount, balance_after, commission, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.ID, t.UserID, t.TaskID, t.Type, t.Amount, t.BalanceAfter, t.Commission, t.Description).Scan(&t.CreatedAt)
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *TransactionRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE task_id = $1 ORDER BY created_at`, taskID)
}

// SumByType returns the sum of amounts and the number of records of the given type.
func (r *TransactionRepo) SumByType(ctx context.Context, txType string) (sum int64, count int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM transactions WHERE type = $1
	`, txType).Scan(&sum, &count)
	return sum, count, err
}

func (r *TransactionRepo) list(ctx context.Context, q string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.TaskID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Commission, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
