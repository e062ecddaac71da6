package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type UserRepo struct{ s *Store }

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if u.Level == 0 {
		u.Level = 1
	}
	now := time.Now().UTC()
	u.Balance = 0
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		list = append(list, copyUser(u))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *UserRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepo) Update(_ context.Context, tx pgx.Tx, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return nil
	}
	r.s.journalUser(tx, u.ID)
	next := copyUser(u)
	next.Balance = cur.Balance
	next.Email = cur.Email
	next.PasswordHash = cur.PasswordHash
	next.Role = cur.Role
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = next
	return nil
}

// DeductBalance mirrors the conditional UPDATE: pgx.ErrNoRows when the balance is too low.
func (r *UserRepo) DeductBalance(_ context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Balance < amount {
		return 0, pgx.ErrNoRows
	}
	r.s.journalUser(tx, id)
	u.Balance -= amount
	u.UpdatedAt = time.Now().UTC()
	return u.Balance, nil
}

func (r *UserRepo) AddBalance(_ context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	r.s.journalUser(tx, id)
	u.Balance += amount
	u.UpdatedAt = time.Now().UTC()
	return u.Balance, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

type TaskRepo struct{ s *Store }

func (s *Store) Tasks() *TaskRepo { return &TaskRepo{s: s} }

func (r *TaskRepo) Create(_ context.Context, tx pgx.Tx, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.journalTask(tx, t.ID)
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	r.s.tasks[t.ID] = copyTask(t)
	return nil
}

func (r *TaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTask(t), nil
}

func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *TaskRepo) Update(_ context.Context, tx pgx.Tx, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tasks[t.ID]
	if !ok {
		return nil
	}
	r.s.journalTask(tx, t.ID)
	next := copyTask(t)
	next.Type, next.Price, next.AuthorID, next.ParentTaskID = cur.Type, cur.Price, cur.AuthorID, cur.ParentTaskID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	r.s.tasks[t.ID] = next
	return nil
}

func (r *TaskRepo) List(_ context.Context, f repository.TaskFilter) ([]*models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*models.Task
	for _, t := range r.s.tasks {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.AuthorID != nil && t.AuthorID != *f.AuthorID {
			continue
		}
		if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
			continue
		}
		list = append(list, copyTask(t))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func (r *TaskRepo) Delete(_ context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.journalTask(tx, id)
	delete(r.s.tasks, id)
	for tid, t := range r.s.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == id {
			r.s.journalTask(tx, tid)
			t.ParentTaskID = nil
		}
	}
	for did, d := range r.s.disputes {
		if d.TaskID == id {
			r.s.journalDispute(tx, did)
			delete(r.s.disputes, did)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type TransactionRepo struct{ s *Store }

func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.CreatedAt = time.Now().UTC()
	cp := *t
	r.s.transactions = append(r.s.transactions, &cp)
	return nil
}

func (r *TransactionRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	return r.filter(func(t *models.Transaction) bool { return t.UserID == userID }, true), nil
}

func (r *TransactionRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*models.Transaction, error) {
	return r.filter(func(t *models.Transaction) bool { return t.TaskID != nil && *t.TaskID == taskID }, false), nil
}

func (r *TransactionRepo) SumByType(_ context.Context, txType string) (int64, int64, error) {
	var sum, count int64
	for _, t := range r.filter(func(t *models.Transaction) bool { return t.Type == txType }, false) {
		sum += t.Amount
		count++
	}
	return sum, count, nil
}

// All returns every record in insertion order.
func (r *TransactionRepo) All() []*models.Transaction {
	return r.filter(func(*models.Transaction) bool { return true }, false)
}

func (r *TransactionRepo) filter(keep func(*models.Transaction) bool, newestFirst bool) []*models.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range r.s.transactions {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Disputes
// ---------------------------------------------------------------------------

type DisputeRepo struct{ s *Store }

func (s *Store) Disputes() *DisputeRepo { return &DisputeRepo{s: s} }

func (r *DisputeRepo) Create(_ context.Context, tx pgx.Tx, d *models.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.journalDispute(tx, d.ID)
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	r.s.disputes[d.ID] = copyDispute(d)
	return nil
}

func (r *DisputeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDispute(d), nil
}

func (r *DisputeRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r *DisputeRepo) Update(_ context.Context, tx pgx.Tx, d *models.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.disputes[d.ID]; !ok {
		return nil
	}
	r.s.journalDispute(tx, d.ID)
	next := copyDispute(d)
	next.UpdatedAt = time.Now().UTC()
	r.s.disputes[d.ID] = next
	return nil
}

func (r *DisputeRepo) List(_ context.Context, status string) ([]*models.Dispute, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*models.Dispute
	for _, d := range r.s.disputes {
		if status == "" || d.Status == status {
			list = append(list, copyDispute(d))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

type NotificationRepo struct{ s *Store }

func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s: s} }

func (r *NotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.notifications {
		if existing.ID == n.ID {
			return nil
		}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	cp := *n
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var list []*models.Notification
	for i := len(r.s.notifications) - 1; i >= 0 && len(list) < limit; i-- {
		if n := r.s.notifications[i]; n.UserID == userID {
			cp := *n
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}
