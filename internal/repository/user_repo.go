package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/models"
)

const userColumns = `id, role, name, email, password_hash, balance, xp, level, completed_jobs, rating_sum, rating_count,
	is_pro, is_verified, is_banned, banned_at, ban_reason, saved_tasks, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.PasswordHash, &u.Balance, &u.XP, &u.Level, &u.CompletedJobs,
		&u.RatingSum, &u.RatingCount, &u.IsPro, &u.IsVerified, &u.IsBanned, &u.BannedAt, &u.BanReason, &u.SavedTasks,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a user with a zero balance. Balances only change through the ledger.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.Level == 0 {
		u.Level = 1
	}
	if u.SavedTasks == nil {
		u.SavedTasks = []uuid.UUID{}
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, role, name, email, password_hash, level, is_pro, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING balance, created_at, updated_at
	`, u.ID, u.Role, u.Name, u.Email, u.PasswordHash, u.Level, u.IsPro, u.IsVerified).Scan(&u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// GetByIDForUpdate locks the user row for update. Call within a transaction.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// Update writes profile, reputation and moderation fields. Balance is not touched.
func (r *UserRepo) Update(ctx context.Context, tx pgx.Tx, u *models.User) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET name = $2, xp = $3, level = $4, completed_jobs = $5, rating_sum = $6, rating_count = $7,
			is_pro = $8, is_verified = $9, is_banned = $10, banned_at = $11, ban_reason = $12, saved_tasks = $13, updated_at = now()
		WHERE id = $1
	`, u.ID, u.Name, u.XP, u.Level, u.CompletedJobs, u.RatingSum, u.RatingCount,
		u.IsPro, u.IsVerified, u.IsBanned, u.BannedAt, u.BanReason, u.SavedTasks)
	return err
}

// DeductBalance atomically deducts amount if balance >= amount. Returns pgx.ErrNoRows when the
// balance is too low.
func (r *UserRepo) DeductBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// AddBalance adds amount to the user and returns the new balance.
func (r *UserRepo) AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, notFound(err)
}
