package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/notify"
	"github.com/gigmarket/backend/internal/repository"
	"github.com/gigmarket/backend/internal/workflow"
)

const defaultBanReason = "Violation of terms of service"

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, tx pgx.Tx, u *models.User) error
	List(ctx context.Context) ([]*models.User, error)
}

type TaskLister interface {
	List(ctx context.Context, f repository.TaskFilter) ([]*models.Task, error)
}

type DisputeLister interface {
	List(ctx context.Context, status string) ([]*models.Dispute, error)
}

type TransactionSummer interface {
	SumByType(ctx context.Context, txType string) (sum int64, count int64, err error)
}

// Service holds the admin-only account and reporting operations.
type Service struct {
	Pool         TxBeginner
	Users        UserRepo
	Tasks        TaskLister
	Disputes     DisputeLister
	Transactions TransactionSummer
	Events       workflow.Emitter
	Logger       *slog.Logger
	Now          func() time.Time
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) requireAdmin(ctx context.Context, adminID uuid.UUID) error {
	admin, err := s.Users.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin() || admin.IsBanned {
		return fmt.Errorf("%w: admin only", workflow.ErrForbidden)
	}
	return nil
}

// modify locks the target user, applies fn and persists the result.
func (s *Service) modify(ctx context.Context, adminID, userID uuid.UUID, fn func(u *models.User) error) (*models.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := s.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if err := s.Users.Update(ctx, tx, u); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) tell(ctx context.Context, userID uuid.UUID, title, message, reason string) {
	if s.Events == nil {
		return
	}
	s.Events.Emit(ctx, notify.Event{
		UserID:      userID,
		Type:        notify.System,
		Title:       title,
		Message:     message,
		RelatedID:   &userID,
		RelatedType: "user",
		Metadata:    notify.Metadata{Reason: reason},
	})
}

// Ban suspends a user. Admin accounts cannot be banned.
func (s *Service) Ban(ctx context.Context, adminID, userID uuid.UUID, reason string) (*models.User, error) {
	if strings.TrimSpace(reason) == "" {
		reason = defaultBanReason
	}
	u, err := s.modify(ctx, adminID, userID, func(u *models.User) error {
		if u.IsAdmin() {
			return fmt.Errorf("%w: cannot ban admin users", workflow.ErrForbidden)
		}
		if u.IsBanned {
			return fmt.Errorf("%w: user is already banned", workflow.ErrInvalidTransition)
		}
		now := s.now()
		u.IsBanned = true
		u.BannedAt = &now
		u.BanReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("user banned", "user_id", userID, "admin_id", adminID, "reason", reason)
	s.tell(ctx, userID, "Account suspended", "Your account has been suspended. Reason: "+reason, reason)
	return u, nil
}

func (s *Service) Unban(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error) {
	u, err := s.modify(ctx, adminID, userID, func(u *models.User) error {
		if !u.IsBanned {
			return fmt.Errorf("%w: user is not banned", workflow.ErrInvalidTransition)
		}
		u.IsBanned = false
		u.BannedAt = nil
		u.BanReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("user unbanned", "user_id", userID, "admin_id", adminID)
	s.tell(ctx, userID, "Account restored", "Your account has been restored", "")
	return u, nil
}

func (s *Service) Verify(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error) {
	u, err := s.modify(ctx, adminID, userID, func(u *models.User) error {
		u.IsVerified = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.tell(ctx, userID, "Account verified", "Your account has been verified", "")
	return u, nil
}

func (s *Service) Unverify(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error) {
	return s.modify(ctx, adminID, userID, func(u *models.User) error {
		u.IsVerified = false
		return nil
	})
}

// UserFilter narrows ListUsers. Status is one of active, banned, verified, pro.
type UserFilter struct {
	Role   string
	Status string
	Search string
}

func (f UserFilter) match(u *models.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	switch f.Status {
	case "active":
		if u.IsBanned {
			return false
		}
	case "banned":
		if !u.IsBanned {
			return false
		}
	case "verified":
		if !u.IsVerified {
			return false
		}
	case "pro":
		if !u.IsPro {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q)
	}
	return true
}

// ListUsers returns users matching f, newest first. The platform account is excluded.
func (s *Service) ListUsers(ctx context.Context, adminID uuid.UUID, f UserFilter) ([]*models.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	all, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(all))
	for _, u := range all {
		if u.ID != models.PlatformAccountID && f.match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}
