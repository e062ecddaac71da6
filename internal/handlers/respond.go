package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/account"
	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/validator"
	"github.com/gigmarket/backend/internal/workflow"
)

// statusFor maps the domain error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, validator.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrAlreadyPending),
		errors.Is(err, workflow.ErrAlreadyOpen),
		errors.Is(err, workflow.ErrNoPendingRequest),
		errors.Is(err, account.ErrAlreadyPro),
		errors.Is(err, account.ErrNothingToWithdraw):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status. Unexpected errors are logged and
// their detail is not exposed.
func writeDomainError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if log == nil {
			log = slog.Default()
		}
		log.Error(op+" failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads the JSON body into v. Bodies have already been schema-checked by
// middleware.ValidateBody on routes that carry one.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// actor returns the authenticated user or writes 401.
func actor(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u := middleware.UserFromCtx(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return u, true
}

// pathID parses a uuid URL parameter or writes 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit reads ?limit= clamped to [1, max], defaulting to def.
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
