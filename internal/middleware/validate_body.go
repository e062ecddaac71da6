package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes bounds request bodies read by ValidateBody.
const maxBodyBytes = 1 << 20

// SchemaValidator checks a raw body against a named schema.
type SchemaValidator interface {
	Validate(name string, body []byte) error
}

// ValidateBody rejects requests whose JSON body does not match schema. It reads the
// body, then replaces r.Body so downstream handlers can re-read it. An empty body is
// validated as {}.
func ValidateBody(v SchemaValidator, schema string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			if len(bodyBytes) > maxBodyBytes {
				http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			if len(bytes.TrimSpace(bodyBytes)) == 0 {
				bodyBytes = []byte("{}")
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			if err := v.Validate(schema, bodyBytes); err != nil {
				msg, _ := json.Marshal(map[string]string{"error": err.Error()})
				http.Error(w, string(msg), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
