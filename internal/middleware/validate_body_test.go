package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gigmarket/backend/internal/validator"
)

// echoHandler writes the body it receives, proving the middleware restored it.
var echoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
})

func TestValidateBody(t *testing.T) {
	mw := ValidateBody(validator.MustNew(), validator.CreateTask)(echoHandler)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"type":"job","title":"Logo design","price":100}`, http.StatusOK},
		{"missing price", `{"type":"job","title":"Logo design"}`, http.StatusBadRequest},
		{"broken json", `{"type":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.want == http.StatusOK && rec.Body.String() != tc.body {
				t.Errorf("body not restored: got %q", rec.Body.String())
			}
		})
	}
}

func TestValidateBody_EmptyBodyAllowedByOptionalSchema(t *testing.T) {
	mw := ValidateBody(validator.MustNew(), validator.RequestCancellation)(echoHandler)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "{}" {
		t.Errorf("expected 200 with {}, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestValidateBody_TooLarge(t *testing.T) {
	mw := ValidateBody(validator.MustNew(), validator.CreateTask)(echoHandler)
	big := `{"type":"job","title":"x","description":"` + strings.Repeat("a", maxBodyBytes) + `","price":1}`
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}
