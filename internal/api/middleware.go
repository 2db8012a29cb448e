package api

import (
	"net/http"

	"github.com/google/uuid"
)

// withRequestID stamps every response with a correlation id, the same role
// svix/svix-webhooks message ids play in the teacher's delivery log: a
// stable handle an operator can grep logs for.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}
