package internal

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxRequestIDLen = 64

// requestID runs chi's RequestID with a uuid in place of a missing or
// oversized X-Request-ID header, and echoes the id on the response.
func requestID(next http.Handler) http.Handler {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
	assign := middleware.RequestID(echo)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(middleware.RequestIDHeader); id == "" || len(id) > maxRequestIDLen {
			r.Header.Set(middleware.RequestIDHeader, uuid.NewString())
		}
		assign.ServeHTTP(w, r)
	})
}
