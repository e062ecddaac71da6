package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/account"
	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/validator"
	"github.com/gigmarket/backend/internal/workflow"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockEngine struct {
	TaskEngine
	DisputeEngine

	gotPct  int
	err     error
	dispute *models.Dispute
}

func (m *mockEngine) ApproveCancellation(_ context.Context, _, taskID uuid.UUID, pct int) (*models.Task, error) {
	m.gotPct = pct
	if m.err != nil {
		return nil, m.err
	}
	return &models.Task{ID: taskID, Status: models.TaskStatusCancelled}, nil
}

func (m *mockEngine) GetDispute(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	if m.dispute == nil {
		return nil, workflow.ErrNotFound
	}
	return m.dispute, nil
}

// request builds a request authenticated as u with chi URL params set.
func request(method, body string, u *models.User, params map[string]string) *http.Request {
	r := httptest.NewRequest(method, "/", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if u != nil {
		ctx = middleware.WithUser(ctx, u)
	}
	return r.WithContext(ctx)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{workflow.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: not yours", workflow.ErrForbidden), http.StatusForbidden},
		{workflow.ErrInvalidInput, http.StatusBadRequest},
		{ledger.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("%w: price", validator.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("debit: %w", workflow.ErrInsufficientBalance), http.StatusPaymentRequired},
		{workflow.ErrInvalidTransition, http.StatusConflict},
		{workflow.ErrAlreadyPending, http.StatusConflict},
		{workflow.ErrAlreadyOpen, http.StatusConflict},
		{workflow.ErrNoPendingRequest, http.StatusConflict},
		{account.ErrAlreadyPro, http.StatusConflict},
		{account.ErrNothingToWithdraw, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteDomainError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, nil, "op", errors.New("pq: password authentication failed"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Task handler
// ---------------------------------------------------------------------------

func TestApproveCancellation_DefaultsToFullRefund(t *testing.T) {
	eng := &mockEngine{}
	h := &TaskHandler{Engine: eng}
	u := &models.User{ID: uuid.New(), Role: models.RoleFreelancer}
	params := map[string]string{"id": uuid.NewString()}

	rec := httptest.NewRecorder()
	h.ApproveCancellation(rec, request(http.MethodPost, `{}`, u, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if eng.gotPct != 100 {
		t.Errorf("pct = %d, want 100", eng.gotPct)
	}

	rec = httptest.NewRecorder()
	h.ApproveCancellation(rec, request(http.MethodPost, `{"refund_percentage":0}`, u, params))
	if eng.gotPct != 0 {
		t.Errorf("explicit zero pct = %d, want 0", eng.gotPct)
	}
}

func TestTransition_Errors(t *testing.T) {
	u := &models.User{ID: uuid.New()}
	tests := []struct {
		name   string
		user   *models.User
		id     string
		err    error
		status int
	}{
		{"unauthenticated", nil, uuid.NewString(), nil, http.StatusUnauthorized},
		{"bad id", u, "nope", nil, http.StatusBadRequest},
		{"no pending request", u, uuid.NewString(), workflow.ErrNoPendingRequest, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &TaskHandler{Engine: &mockEngine{err: tt.err}}
			rec := httptest.NewRecorder()
			h.ApproveCancellation(rec, request(http.MethodPost, `{}`, tt.user, map[string]string{"id": tt.id}))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Dispute handler
// ---------------------------------------------------------------------------

func TestDisputeGet_PartiesAndAdminsOnly(t *testing.T) {
	opener, against := uuid.New(), uuid.New()
	d := &models.Dispute{ID: uuid.New(), OpenedBy: opener, Against: against, Status: models.DisputeOpen}
	h := &DisputeHandler{Engine: &mockEngine{dispute: d}}

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"opener", &models.User{ID: opener}, http.StatusOK},
		{"counterparty", &models.User{ID: against}, http.StatusOK},
		{"admin", &models.User{ID: uuid.New(), Role: models.RoleAdmin}, http.StatusOK},
		{"stranger", &models.User{ID: uuid.New(), Role: models.RoleClient}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Get(rec, request(http.MethodGet, "", tt.user, map[string]string{"id": d.ID.String()}))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				var got models.Dispute
				if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || got.ID != d.ID {
					t.Errorf("body = %+v, err %v", got, err)
				}
			}
		})
	}
}

func TestDisputeGet_NotFound(t *testing.T) {
	h := &DisputeHandler{Engine: &mockEngine{}}
	rec := httptest.NewRecorder()
	h.Get(rec, request(http.MethodGet, "", &models.User{ID: uuid.New()}, map[string]string{"id": uuid.NewString()}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
