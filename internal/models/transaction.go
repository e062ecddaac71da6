package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types. Debits carry a negative Amount.
const (
	TxTopUp          = "topup"
	TxPayJob         = "pay_job"
	TxPayGig         = "pay_gig"
	TxEarn           = "earn"
	TxWithdraw       = "withdraw"
	TxPayPro         = "pay_pro"
	TxRefund         = "refund"
	TxCommissionEarn = "commission_earn"
)

// Transaction is an immutable record of one balance mutation.
// Commission is the amount withheld on an earn entry, or the amount
// collected on a commission_earn entry.
type Transaction struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
	Type         string     `json:"type"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	Commission   int64      `json:"commission"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"created_at"`
}
