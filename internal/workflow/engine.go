package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigmarket/backend/internal/commission"
	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/notify"
	"github.com/gigmarket/backend/internal/telemetry"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type TaskRepo interface {
	Create(ctx context.Context, tx pgx.Tx, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, tx pgx.Tx, t *models.Task) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type UserRepo interface {
	Update(ctx context.Context, tx pgx.Tx, u *models.User) error
}

type DisputeRepo interface {
	Create(ctx context.Context, tx pgx.Tx, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, tx pgx.Tx, d *models.Dispute) error
}

// Ledger is the balance-mutation contract the engine needs.
type Ledger interface {
	Credit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
	Debit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
	Lock(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*models.User, error)
}

type Emitter interface {
	Emit(ctx context.Context, events ...notify.Event)
}

// Engine runs the task lifecycle. Every operation executes in one transaction: the
// task row is locked first, then the involved users in uuid order, and all ledger
// entries commit or roll back together. Notifications go out after commit.
type Engine struct {
	Pool       TxBeginner
	Tasks      TaskRepo
	Users      UserRepo
	Disputes   DisputeRepo
	Ledger     Ledger
	Commission commission.Policy
	Events     Emitter
	Logger     *slog.Logger
	Now        func() time.Time
}

// unit accumulates the side effects of one transaction.
type unit struct {
	tx      pgx.Tx
	events  []notify.Event
	entries []*models.Transaction
}

func (u *unit) emit(events ...notify.Event) {
	u.events = append(u.events, events...)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// run executes fn in a transaction and emits the collected events after commit.
func (e *Engine) run(ctx context.Context, op string, fn func(u *unit) error) error {
	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	u := &unit{tx: tx}
	if err := fn(u); err != nil {
		telemetry.Transitions.WithLabelValues(op, outcome(err)).Inc()
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		telemetry.Transitions.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("commit: %w", err)
	}
	telemetry.Transitions.WithLabelValues(op, "ok").Inc()
	for _, rec := range u.entries {
		telemetry.LedgerEntries.WithLabelValues(rec.Type).Inc()
	}
	e.logger().Debug("workflow operation committed", "operation", op, "ledger_entries", len(u.entries), "events", len(u.events))
	if e.Events != nil {
		e.Events.Emit(ctx, u.events...)
	}
	return nil
}

func (e *Engine) credit(ctx context.Context, u *unit, entry ledger.Entry) (*models.Transaction, error) {
	rec, err := e.Ledger.Credit(ctx, u.tx, entry)
	if err != nil {
		return nil, err
	}
	u.entries = append(u.entries, rec)
	return rec, nil
}

func (e *Engine) debit(ctx context.Context, u *unit, entry ledger.Entry) (*models.Transaction, error) {
	rec, err := e.Ledger.Debit(ctx, u.tx, entry)
	if err != nil {
		return nil, err
	}
	u.entries = append(u.entries, rec)
	return rec, nil
}

// lockTask locks the task row and then every user in ids (plus the task parties), and
// returns the acting user. Banned actors are rejected.
func (e *Engine) lockTask(ctx context.Context, u *unit, taskID, actorID uuid.UUID, ids ...uuid.UUID) (*models.Task, map[uuid.UUID]*models.User, error) {
	t, err := e.Tasks.GetByIDForUpdate(ctx, u.tx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	ids = append(ids, t.AuthorID)
	if t.AssigneeID != nil {
		ids = append(ids, *t.AssigneeID)
	}
	users, err := e.lockUsers(ctx, u, actorID, ids...)
	if err != nil {
		return nil, nil, err
	}
	return t, users, nil
}

func (e *Engine) lockUsers(ctx context.Context, u *unit, actorID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]*models.User, error) {
	users, err := e.Ledger.Lock(ctx, u.tx, append(ids, actorID)...)
	if err != nil {
		return nil, err
	}
	actor, ok := users[actorID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", actorID, ErrNotFound)
	}
	if actor.IsBanned {
		return nil, fmt.Errorf("%w: account is suspended", ErrForbidden)
	}
	return users, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrAlreadyPending),
		errors.Is(err, ErrAlreadyOpen), errors.Is(err, ErrNoPendingRequest):
		return "conflict"
	}
	return "error"
}

// GetTask returns the task without locking it.
func (e *Engine) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return e.Tasks.GetByID(ctx, id)
}

// GetDispute returns the dispute without locking it.
func (e *Engine) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return e.Disputes.GetByID(ctx, id)
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
