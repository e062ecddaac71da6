package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/notify"
	"github.com/gigmarket/backend/internal/telemetry"
	"github.com/gigmarket/backend/internal/workflow"
)

// DefaultProPrice is the one-off cost of the PRO tier.
const DefaultProPrice int64 = 990

// TransactionHistoryLimit caps the wallet history returned to a user.
const TransactionHistoryLimit = 50

var (
	ErrAlreadyPro        = errors.New("user is already PRO")
	ErrNothingToWithdraw = errors.New("no revenue to withdraw")
)

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, tx pgx.Tx, u *models.User) error
}

type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

type TransactionLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// Service handles wallet movements that are not tied to a task, plus saved tasks.
type Service struct {
	Pool     TxBeginner
	Users    UserRepo
	Tasks    TaskReader
	History  TransactionLister
	Ledger   workflow.Ledger
	Events   workflow.Emitter
	ProPrice int64
	Logger   *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) proPrice() int64 {
	if s.ProPrice > 0 {
		return s.ProPrice
	}
	return DefaultProPrice
}

// lockActor locks the acting user and rejects banned accounts.
func (s *Service) lockActor(ctx context.Context, tx pgx.Tx, userID uuid.UUID, extra ...uuid.UUID) (map[uuid.UUID]*models.User, error) {
	users, err := s.Ledger.Lock(ctx, tx, append([]uuid.UUID{userID}, extra...)...)
	if err != nil {
		return nil, err
	}
	if users[userID].IsBanned {
		return nil, fmt.Errorf("%w: account is suspended", workflow.ErrForbidden)
	}
	return users, nil
}

// TopUp credits amount to the user's balance and returns the new balance.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", workflow.ErrInvalidInput)
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := s.lockActor(ctx, tx, userID); err != nil {
		return 0, err
	}
	rec, err := s.Ledger.Credit(ctx, tx, ledger.Entry{UserID: userID, Type: models.TxTopUp, Amount: amount, Description: "Balance top-up"})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	telemetry.LedgerEntries.WithLabelValues(rec.Type).Inc()
	s.logger().Info("balance topped up", "user_id", userID, "amount", amount)
	return rec.BalanceAfter, nil
}

// Withdraw debits amount from the user's balance and returns the new balance.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", workflow.ErrInvalidInput)
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := s.lockActor(ctx, tx, userID); err != nil {
		return 0, err
	}
	rec, err := s.Ledger.Debit(ctx, tx, ledger.Entry{UserID: userID, Type: models.TxWithdraw, Amount: amount, Description: "Withdrawal to card"})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	telemetry.LedgerEntries.WithLabelValues(rec.Type).Inc()
	s.logger().Info("balance withdrawn", "user_id", userID, "amount", amount)
	return rec.BalanceAfter, nil
}

// BuyPro charges the PRO price and upgrades the user. PRO workers pay no commission.
func (s *Service) BuyPro(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	users, err := s.lockActor(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	u := users[userID]
	if u.IsPro {
		return nil, ErrAlreadyPro
	}
	rec, err := s.Ledger.Debit(ctx, tx, ledger.Entry{UserID: userID, Type: models.TxPayPro, Amount: s.proPrice(), Description: "PRO status purchase"})
	if err != nil {
		return nil, err
	}
	u.IsPro = true
	u.Balance = rec.BalanceAfter
	if err := s.Users.Update(ctx, tx, u); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	telemetry.LedgerEntries.WithLabelValues(rec.Type).Inc()
	if s.Events != nil {
		s.Events.Emit(ctx, notify.Event{
			UserID:  userID,
			Type:    notify.System,
			Title:   "PRO activated",
			Message: "You no longer pay commission on completed tasks",
			Metadata: notify.Metadata{
				Amount: notify.Int64(s.proPrice()),
			},
		})
	}
	return u, nil
}

// WithdrawRevenue pays out the whole platform account balance. Admin only.
func (s *Service) WithdrawRevenue(ctx context.Context, adminID uuid.UUID) (int64, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	users, err := s.lockActor(ctx, tx, adminID, models.PlatformAccountID)
	if err != nil {
		return 0, err
	}
	if !users[adminID].IsAdmin() {
		return 0, fmt.Errorf("%w: admin only", workflow.ErrForbidden)
	}
	amount := users[models.PlatformAccountID].Balance
	if amount <= 0 {
		return 0, ErrNothingToWithdraw
	}
	rec, err := s.Ledger.Debit(ctx, tx, ledger.Entry{
		UserID: models.PlatformAccountID, Type: models.TxWithdraw, Amount: amount, Description: "Platform revenue withdrawal",
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	telemetry.LedgerEntries.WithLabelValues(rec.Type).Inc()
	s.logger().Info("platform revenue withdrawn", "admin_id", adminID, "amount", amount)
	return amount, nil
}

// Transactions returns the user's most recent wallet records, newest first.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	list, err := s.History.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(list) > TransactionHistoryLimit {
		list = list[:TransactionHistoryLimit]
	}
	return list, nil
}

// ToggleSaved adds the task to the user's saved list, or removes it if already there.
// It reports whether the task is saved afterwards.
func (s *Service) ToggleSaved(ctx context.Context, userID, taskID uuid.UUID) (bool, error) {
	if _, err := s.Tasks.GetByID(ctx, taskID); err != nil {
		return false, fmt.Errorf("task %s: %w", taskID, err)
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	users, err := s.Ledger.Lock(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	u := users[userID]
	saved := !u.HasSaved(taskID)
	if saved {
		u.SavedTasks = append(u.SavedTasks, taskID)
	} else {
		kept := u.SavedTasks[:0]
		for _, id := range u.SavedTasks {
			if id != taskID {
				kept = append(kept, id)
			}
		}
		u.SavedTasks = kept
	}
	if err := s.Users.Update(ctx, tx, u); err != nil {
		return false, err
	}
	return saved, tx.Commit(ctx)
}

// SavedTasks returns the user's saved tasks. Tasks removed since are skipped.
func (s *Service) SavedTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0, len(u.SavedTasks))
	for _, id := range u.SavedTasks {
		t, err := s.Tasks.GetByID(ctx, id)
		if errors.Is(err, workflow.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
