package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/models"
)

const taskColumns = `id, type, title, category, description, price, author_id, assignee_id, parent_task_id, status,
	submission_ref, submission_name, submission_at, rating, review,
	cancellation_requested, cancellation_status, cancellation_requested_by, cancellation_reason, cancelled_at, cancelled_by,
	refunded_amount, retained_amount, dispute_opened, dispute_status, dispute_id, created_at, updated_at`

// TaskFilter narrows List. Zero values are ignored.
type TaskFilter struct {
	Type       string
	Status     string
	Category   string
	AuthorID   *uuid.UUID
	AssigneeID *uuid.UUID
	Limit      int
}

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Type, &t.Title, &t.Category, &t.Description, &t.Price, &t.AuthorID, &t.AssigneeID, &t.ParentTaskID, &t.Status,
		&t.SubmissionRef, &t.SubmissionName, &t.SubmissionAt, &t.Rating, &t.Review,
		&t.CancellationRequested, &t.CancellationStatus, &t.CancellationRequestedBy, &t.CancellationReason, &t.CancelledAt, &t.CancelledBy,
		&t.RefundedAmount, &t.RetainedAmount, &t.DisputeOpened, &t.DisputeStatus, &t.DisputeID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Create inserts the task inside tx so the escrow debit and the row commit together.
func (r *TaskRepo) Create(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	return tx.QueryRow(ctx, `
		INSERT INTO tasks (id, type, title, category, description, price, author_id, assignee_id, parent_task_id, status,
			cancellation_status, dispute_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.Type, t.Title, t.Category, t.Description, t.Price, t.AuthorID, t.AssigneeID, t.ParentTaskID, t.Status,
		t.CancellationStatus, t.DisputeStatus).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetByIDForUpdate locks the task row for update. Call within a transaction.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

func (r *TaskRepo) Update(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET title = $2, category = $3, description = $4, assignee_id = $5, status = $6,
			submission_ref = $7, submission_name = $8, submission_at = $9, rating = $10, review = $11,
			cancellation_requested = $12, cancellation_status = $13, cancellation_requested_by = $14, cancellation_reason = $15,
			cancelled_at = $16, cancelled_by = $17, refunded_amount = $18, retained_amount = $19,
			dispute_opened = $20, dispute_status = $21, dispute_id = $22, updated_at = now()
		WHERE id = $1
	`, t.ID, t.Title, t.Category, t.Description, t.AssigneeID, t.Status,
		t.SubmissionRef, t.SubmissionName, t.SubmissionAt, t.Rating, t.Review,
		t.CancellationRequested, t.CancellationStatus, t.CancellationRequestedBy, t.CancellationReason,
		t.CancelledAt, t.CancelledBy, t.RefundedAmount, t.RetainedAmount,
		t.DisputeOpened, t.DisputeStatus, t.DisputeID)
	return err
}

func (r *TaskRepo) List(ctx context.Context, f TaskFilter) ([]*models.Task, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.AuthorID != nil {
		add("author_id = $%d", *f.AuthorID)
	}
	if f.AssigneeID != nil {
		add("assignee_id = $%d", *f.AssigneeID)
	}
	q := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Delete removes the task row inside tx.
func (r *TaskRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	return err
}
