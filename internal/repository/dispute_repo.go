package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/models"
)

const disputeColumns = `id, task_id, opened_by, against, reason, description, attachments, status, resolution,
	refund_percentage, refund_amount, resolved_by, resolved_at, created_at, updated_at`

type DisputeRepo struct {
	pool *pgxpool.Pool
}

func NewDisputeRepo(pool *pgxpool.Pool) *DisputeRepo {
	return &DisputeRepo{pool: pool}
}

func scanDispute(row pgx.Row) (*models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(&d.ID, &d.TaskID, &d.OpenedBy, &d.Against, &d.Reason, &d.Description, &d.Attachments, &d.Status, &d.Resolution,
		&d.RefundPercentage, &d.RefundAmount, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *DisputeRepo) Create(ctx context.Context, tx pgx.Tx, d *models.Dispute) error {
	if d.Attachments == nil {
		d.Attachments = []string{}
	}
	return tx.QueryRow(ctx, `
		INSERT INTO disputes (id, task_id, opened_by, against, reason, description, attachments, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, d.ID, d.TaskID, d.OpenedBy, d.Against, d.Reason, d.Description, d.Attachments, d.Status).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *DisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return scanDispute(r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id))
}

// GetByIDForUpdate locks the dispute row for update. Call within a transaction.
func (r *DisputeRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Dispute, error) {
	return scanDispute(tx.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id))
}

func (r *DisputeRepo) Update(ctx context.Context, tx pgx.Tx, d *models.Dispute) error {
	_, err := tx.Exec(ctx, `
		UPDATE disputes SET status = $2, resolution = $3, refund_percentage = $4, refund_amount = $5,
			resolved_by = $6, resolved_at = $7, updated_at = now()
		WHERE id = $1
	`, d.ID, d.Status, d.Resolution, d.RefundPercentage, d.RefundAmount, d.ResolvedBy, d.ResolvedAt)
	return err
}

// List returns disputes, newest first. An empty status lists all.
func (r *DisputeRepo) List(ctx context.Context, status string) ([]*models.Dispute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+disputeColumns+` FROM disputes WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
