package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubTokens struct {
	userID uuid.UUID
	err    error
}

func (s *stubTokens) ValidateToken(_ context.Context, _ string) (uuid.UUID, string, error) {
	return s.userID, "", s.err
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// okHandler writes 200 and the user email (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u := UserFromCtx(r.Context())
	if u != nil {
		w.Write([]byte(u.Email))
	}
	w.WriteHeader(http.StatusOK)
})

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAuth_ValidToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "test@example.com", Role: models.RoleClient}
	mw := Auth(&stubTokens{userID: user.ID}, &stubUsers{users: map[uuid.UUID]*models.User{user.ID: user}})(okHandler)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, bearerRequest("valid"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != user.Email {
		t.Errorf("expected user email %q in body, got %q", user.Email, body)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	mw := Auth(&stubTokens{}, &stubUsers{})(okHandler)

	cases := []struct {
		name   string
		header string
	}{
		{"no header at all", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	mw := Auth(&stubTokens{err: errors.New("expired")}, &stubUsers{})(okHandler)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, bearerRequest("expired"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuth_DeletedUser(t *testing.T) {
	mw := Auth(&stubTokens{userID: uuid.New()}, &stubUsers{})(okHandler)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, bearerRequest("orphan"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_BannedUser(t *testing.T) {
	user := &models.User{ID: uuid.New(), IsBanned: true}
	mw := Auth(&stubTokens{userID: user.ID}, &stubUsers{users: map[uuid.UUID]*models.User{user.ID: user}})(okHandler)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, bearerRequest("valid"))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"client", &models.User{Role: models.RoleClient}, http.StatusForbidden},
		{"admin", &models.User{Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(okHandler).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
