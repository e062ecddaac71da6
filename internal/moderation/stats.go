package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repository"
)

type UserStats struct {
	Total       int `json:"total"`
	Clients     int `json:"clients"`
	Freelancers int `json:"freelancers"`
	Banned      int `json:"banned"`
	Verified    int `json:"verified"`
	Pro         int `json:"pro"`
	NewThisWeek int `json:"new_this_week"`
}

type TaskStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

type DisputeStats struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

// Financials are summed from the ledger by transaction type. Withdrawals and volume are
// reported as positive amounts.
type Financials struct {
	Volume             int64 `json:"volume"`
	PlatformCommission int64 `json:"platform_commission"`
	PlatformBalance    int64 `json:"platform_balance"`
	Topups             int64 `json:"topups"`
	Withdrawals        int64 `json:"withdrawals"`
	Payouts            int64 `json:"payouts"`
	Refunds            int64 `json:"refunds"`
	ProSales           int64 `json:"pro_sales"`
}

type Stats struct {
	Users      UserStats    `json:"users"`
	Tasks      TaskStats    `json:"tasks"`
	Disputes   DisputeStats `json:"disputes"`
	Financials Financials   `json:"financials"`
}

// Stats builds the admin dashboard summary.
func (s *Service) Stats(ctx context.Context, adminID uuid.UUID) (*Stats, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	var st Stats
	weekAgo := s.now().Add(-7 * 24 * time.Hour)

	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == models.PlatformAccountID {
			st.Financials.PlatformBalance = u.Balance
			continue
		}
		st.Users.Total++
		switch u.Role {
		case models.RoleClient:
			st.Users.Clients++
		case models.RoleFreelancer:
			st.Users.Freelancers++
		}
		if u.IsBanned {
			st.Users.Banned++
		}
		if u.IsVerified {
			st.Users.Verified++
		}
		if u.IsPro {
			st.Users.Pro++
		}
		if u.CreatedAt.After(weekAgo) {
			st.Users.NewThisWeek++
		}
	}

	tasks, err := s.Tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		st.Tasks.Total++
		switch t.Status {
		case models.TaskStatusOpen:
			st.Tasks.Open++
		case models.TaskStatusInProgress:
			st.Tasks.InProgress++
		case models.TaskStatusReview:
			st.Tasks.Review++
		case models.TaskStatusCompleted:
			st.Tasks.Completed++
		case models.TaskStatusCancelled:
			st.Tasks.Cancelled++
		}
	}

	disputes, err := s.Disputes.List(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, d := range disputes {
		st.Disputes.Total++
		if d.IsPending() {
			st.Disputes.Active++
		}
	}

	sums := make(map[string]int64)
	for _, typ := range []string{
		models.TxPayJob, models.TxPayGig, models.TxCommissionEarn, models.TxTopUp,
		models.TxWithdraw, models.TxEarn, models.TxRefund, models.TxPayPro,
	} {
		sum, _, err := s.Transactions.SumByType(ctx, typ)
		if err != nil {
			return nil, err
		}
		sums[typ] = sum
	}
	st.Financials.Volume = -(sums[models.TxPayJob] + sums[models.TxPayGig])
	st.Financials.PlatformCommission = sums[models.TxCommissionEarn]
	st.Financials.Topups = sums[models.TxTopUp]
	st.Financials.Withdrawals = -sums[models.TxWithdraw]
	st.Financials.Payouts = sums[models.TxEarn]
	st.Financials.Refunds = sums[models.TxRefund]
	st.Financials.ProSales = -sums[models.TxPayPro]
	return &st, nil
}
