package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigmarket/backend/internal/models"
)

var (
	// ErrInsufficientBalance is returned when a debit would take a balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// BalanceRepo is the minimal user repository the ledger needs.
type BalanceRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	DeductBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
	AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
}

// TransactionRepo records one row per balance mutation.
type TransactionRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Entry describes one balance mutation. Amount is always positive; Debit stores it negated.
type Entry struct {
	UserID      uuid.UUID
	TaskID      *uuid.UUID
	Type        string
	Amount      int64
	Commission  int64
	Description string
}

// Ledger applies balance mutations inside the caller's transaction. It is not
// idempotent; callers guard repeated application through task status.
type Ledger struct {
	Users        BalanceRepo
	Transactions TransactionRepo
}

func New(users BalanceRepo, transactions TransactionRepo) *Ledger {
	return &Ledger{Users: users, Transactions: transactions}
}

// Credit locks the user row, adds e.Amount and inserts the transaction record.
func (l *Ledger) Credit(ctx context.Context, tx pgx.Tx, e Entry) (*models.Transaction, error) {
	if e.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := l.Users.GetByIDForUpdate(ctx, tx, e.UserID); err != nil {
		return nil, fmt.Errorf("lock user %s: %w", e.UserID, err)
	}
	newBalance, err := l.Users.AddBalance(ctx, tx, e.UserID, e.Amount)
	if err != nil {
		return nil, fmt.Errorf("credit user %s: %w", e.UserID, err)
	}
	return l.record(ctx, tx, e, e.Amount, newBalance)
}

// Debit locks the user row, deducts e.Amount if the balance covers it and inserts the
// transaction record. The balance is never left negative.
func (l *Ledger) Debit(ctx context.Context, tx pgx.Tx, e Entry) (*models.Transaction, error) {
	if e.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	u, err := l.Users.GetByIDForUpdate(ctx, tx, e.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", e.UserID, err)
	}
	if u.Balance < e.Amount {
		return nil, ErrInsufficientBalance
	}
	newBalance, err := l.Users.DeductBalance(ctx, tx, e.UserID, e.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("debit user %s: %w", e.UserID, err)
	}
	return l.record(ctx, tx, e, -e.Amount, newBalance)
}

// Lock takes row locks on the given users in uuid string order so that operations
// touching several users cannot deadlock. Duplicate and nil ids are skipped.
func (l *Ledger) Lock(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*models.User, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	users := make(map[uuid.UUID]*models.User, len(ordered))
	for _, id := range ordered {
		u, err := l.Users.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock user %s: %w", id, err)
		}
		users[id] = u
	}
	return users, nil
}

func (l *Ledger) record(ctx context.Context, tx pgx.Tx, e Entry, signed, balanceAfter int64) (*models.Transaction, error) {
	rec := &models.Transaction{
		ID:           uuid.New(),
		UserID:       e.UserID,
		TaskID:       e.TaskID,
		Type:         e.Type,
		Amount:       signed,
		BalanceAfter: balanceAfter,
		Commission:   e.Commission,
		Description:  e.Description,
	}
	if err := l.Transactions.CreateTx(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("record %s transaction: %w", e.Type, err)
	}
	return rec, nil
}
