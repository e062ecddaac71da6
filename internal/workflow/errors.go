package workflow

import (
	"errors"

	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/repository"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyPending    = errors.New("cancellation request already pending")
	ErrAlreadyOpen       = errors.New("dispute already opened for this task")
	ErrNoPendingRequest  = errors.New("no pending cancellation request")
	ErrInvalidInput      = errors.New("invalid input")
)

// Errors owned by lower layers, re-exported so callers only import workflow.
var (
	ErrNotFound            = repository.ErrNotFound
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
)
